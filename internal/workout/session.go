package workout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/meltforce/titanlift/internal/draft"
	"github.com/meltforce/titanlift/internal/models"
	"github.com/meltforce/titanlift/internal/state"
	"github.com/meltforce/titanlift/internal/timer"
)

const customTemplateName = "Custom"

// ActiveSession is an in-progress workout as shown to the user.
type ActiveSession struct {
	TemplateID   string                  `json:"templateId"`
	TemplateName string                  `json:"templateName"`
	Exercises    []models.ActiveExercise `json:"exercises"`
	ElapsedMs    int64                   `json:"elapsedMs"`
	Elapsed      string                  `json:"elapsed"`
	Running      bool                    `json:"running"`
}

// SetPatch holds the editable fields of a set; nil fields are kept.
type SetPatch struct {
	Reps      *int     `json:"reps"`
	Weight    *float64 `json:"weight"`
	Completed *bool    `json:"completed"`
}

// Start opens the session for templateID, resuming its draft when one
// exists and otherwise building a fresh one. The started session becomes
// the active one; other drafts are kept.
func (s *Service) Start(ctx context.Context, templateID string) (ActiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.templateLocked(ctx, templateID)
	if err != nil {
		return ActiveSession{}, err
	}

	exercises, ok, err := s.workingLocked(ctx, templateID)
	if err != nil {
		return ActiveSession{}, err
	}
	if !ok {
		catalog, err := s.exercisesLocked(ctx)
		if err != nil {
			return ActiveSession{}, err
		}
		exercises, err = s.drafts.Initial(ctx, t, catalog)
		if err != nil {
			return ActiveSession{}, err
		}
		if err := s.drafts.Save(ctx, templateID, exercises); err != nil {
			return ActiveSession{}, err
		}
		s.working[templateID] = exercises
		s.log.Info("session started", "template_id", templateID, "exercises", len(exercises))
	} else {
		s.log.Info("session resumed", "template_id", templateID)
	}

	if err := s.st.SetString(ctx, state.KeyActiveSession, templateID); err != nil {
		return ActiveSession{}, fmt.Errorf("marking active session: %w", err)
	}
	return s.viewLocked(ctx, templateID, t.Name, exercises)
}

// Active returns the active session. Without an explicit pointer, or when
// the pointer's draft is gone, the first stored draft is used.
func (s *Service) Active(ctx context.Context) (ActiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.activeIDLocked(ctx)
	if err != nil {
		return ActiveSession{}, err
	}
	exercises, _, err := s.workingLocked(ctx, id)
	if err != nil {
		return ActiveSession{}, err
	}
	return s.viewLocked(ctx, id, s.templateNameLocked(ctx, id), exercises)
}

// Session returns the in-progress session of templateID.
func (s *Service) Session(ctx context.Context, templateID string) (ActiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exercises, err := s.requireLocked(ctx, templateID)
	if err != nil {
		return ActiveSession{}, err
	}
	return s.viewLocked(ctx, templateID, s.templateNameLocked(ctx, templateID), exercises)
}

func (s *Service) activeIDLocked(ctx context.Context) (string, error) {
	id, ok, err := s.st.GetString(ctx, state.KeyActiveSession)
	if err != nil {
		return "", fmt.Errorf("reading active session: %w", err)
	}
	if ok && id != "" {
		if _, exists, err := s.workingLocked(ctx, id); err != nil {
			return "", err
		} else if exists {
			return id, nil
		}
	}
	ids, err := s.drafts.Templates(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", ErrNoActiveSession
	}
	return ids[0], nil
}

// Update replaces the whole draft of templateID.
func (s *Service) Update(ctx context.Context, templateID string, exercises []models.ActiveExercise) (ActiveSession, error) {
	return s.mutate(ctx, templateID, func(cur []models.ActiveExercise) ([]models.ActiveExercise, error) {
		next := models.CloneExercises(exercises)
		if next == nil {
			next = []models.ActiveExercise{}
		}
		for i := range next {
			for j := range next[i].Sets {
				next[i].Sets[j] = clampSet(next[i].Sets[j])
			}
		}
		return next, nil
	})
}

// UpdateSet edits one set. Any set edit starts the stopwatch if it is not
// running, and completing a set starts the exercise's rest timer.
func (s *Service) UpdateSet(ctx context.Context, templateID string, exIdx, setIdx int, p SetPatch) (ActiveSession, error) {
	var completedNow string
	session, err := s.mutate(ctx, templateID, func(cur []models.ActiveExercise) ([]models.ActiveExercise, error) {
		if err := checkSet(cur, exIdx, setIdx); err != nil {
			return nil, err
		}
		set := cur[exIdx].Sets[setIdx]
		if p.Reps != nil {
			set.Reps = *p.Reps
		}
		if p.Weight != nil {
			set.Weight = *p.Weight
		}
		if p.Completed != nil {
			if *p.Completed && !set.Completed {
				completedNow = cur[exIdx].ExerciseID
			}
			set.Completed = *p.Completed
		}
		cur[exIdx].Sets[setIdx] = clampSet(set)

		if err := s.tracker.Start(ctx); err != nil {
			return nil, err
		}
		return cur, nil
	})
	if err != nil {
		return session, err
	}

	if completedNow != "" {
		if _, err := s.rest.StartPreferred(ctx, completedNow); err != nil {
			s.log.Warn("rest timer not started", "exercise_id", completedNow, "error", err)
		}
	}
	// The stopwatch may have just started; refresh the view.
	return s.Session(ctx, templateID)
}

// AddSet appends a copy of the exercise's last set, uncompleted.
func (s *Service) AddSet(ctx context.Context, templateID string, exIdx int) (ActiveSession, error) {
	return s.mutate(ctx, templateID, func(cur []models.ActiveExercise) ([]models.ActiveExercise, error) {
		if err := checkExercise(cur, exIdx); err != nil {
			return nil, err
		}
		next := models.WorkoutSet{Reps: draft.DefaultReps}
		if sets := cur[exIdx].Sets; len(sets) > 0 {
			next = sets[len(sets)-1]
			next.Completed = false
		}
		cur[exIdx].Sets = append(cur[exIdx].Sets, next)
		return cur, nil
	})
}

func (s *Service) RemoveSet(ctx context.Context, templateID string, exIdx, setIdx int) (ActiveSession, error) {
	return s.mutate(ctx, templateID, func(cur []models.ActiveExercise) ([]models.ActiveExercise, error) {
		if err := checkSet(cur, exIdx, setIdx); err != nil {
			return nil, err
		}
		sets := cur[exIdx].Sets
		cur[exIdx].Sets = append(sets[:setIdx:setIdx], sets[setIdx+1:]...)
		return cur, nil
	})
}

func (s *Service) SetNotes(ctx context.Context, templateID string, exIdx int, notes string) (ActiveSession, error) {
	return s.mutate(ctx, templateID, func(cur []models.ActiveExercise) ([]models.ActiveExercise, error) {
		if err := checkExercise(cur, exIdx); err != nil {
			return nil, err
		}
		cur[exIdx].Notes = notes
		return cur, nil
	})
}

// RenameExercise changes the session's name snapshot; the catalog is untouched.
func (s *Service) RenameExercise(ctx context.Context, templateID string, exIdx int, name string) (ActiveSession, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ActiveSession{}, ErrInvalidName
	}
	return s.mutate(ctx, templateID, func(cur []models.ActiveExercise) ([]models.ActiveExercise, error) {
		if err := checkExercise(cur, exIdx); err != nil {
			return nil, err
		}
		cur[exIdx].Name = name
		return cur, nil
	})
}

// Finish logs the session and clears every trace of it: the draft, the
// active pointer and the stopwatch. Per-exercise memory is updated from
// the logged sets. All writes land in one atomic batch.
func (s *Service) Finish(ctx context.Context, templateID, generalNotes string) (models.WorkoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exercises, err := s.requireLocked(ctx, templateID)
	if err != nil {
		return models.WorkoutSession{}, err
	}
	if err := s.sched.Flush(ctx, state.DraftKey(templateID)); err != nil {
		return models.WorkoutSession{}, fmt.Errorf("flushing draft: %w", err)
	}
	// A timer-fired write may still be on its way; it must not outlive the
	// draft deletion below.
	s.sched.Cancel(state.DraftKey(templateID))
	elapsed, err := s.tracker.Elapsed(ctx)
	if err != nil {
		return models.WorkoutSession{}, err
	}

	session := models.WorkoutSession{
		ID:           s.newID(),
		TemplateID:   templateID,
		TemplateName: s.templateNameLocked(ctx, templateID),
		Date:         s.now().UTC().Format(time.RFC3339),
		Exercises:    models.CloneExercises(exercises),
		DurationMs:   elapsed.Milliseconds(),
		GeneralNotes: strings.TrimSpace(generalNotes),
	}

	s.sessions.Lock()
	defer s.sessions.Unlock()
	tx := s.st.Begin()
	if err := s.sessions.AppendInto(ctx, tx, session); err != nil {
		return models.WorkoutSession{}, err
	}
	for _, ex := range session.Exercises {
		draft.RememberInto(tx, ex)
	}
	draft.ClearInto(tx, templateID)
	if err := s.clearPointerInto(ctx, tx, templateID); err != nil {
		return models.WorkoutSession{}, err
	}
	timer.ResetInto(tx)
	if err := tx.Commit(ctx); err != nil {
		return models.WorkoutSession{}, fmt.Errorf("logging session: %w", err)
	}
	delete(s.working, templateID)

	s.log.Info("session finished",
		"session_id", session.ID,
		"template_id", templateID,
		"duration", timer.FormatDurationFull(elapsed),
	)
	if s.onFinish != nil {
		s.onFinish(session)
	}
	return session, nil
}

// Abandon discards the session of templateID without logging it. When it
// was the active session the stopwatch is reset too.
func (s *Service) Abandon(ctx context.Context, templateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireLocked(ctx, templateID); err != nil {
		return err
	}
	s.sched.Cancel(state.DraftKey(templateID))
	delete(s.working, templateID)

	active, _, err := s.st.GetString(ctx, state.KeyActiveSession)
	if err != nil {
		return fmt.Errorf("reading active session: %w", err)
	}

	tx := s.st.Begin()
	draft.ClearInto(tx, templateID)
	if active == templateID {
		tx.Delete(state.KeyActiveSession)
		timer.ResetInto(tx)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("abandoning session: %w", err)
	}
	s.log.Info("session abandoned", "template_id", templateID)
	return nil
}

// Close writes every pending draft to the store. Later edits are written
// without delay.
func (s *Service) Close(ctx context.Context) error {
	return s.sched.Close(ctx)
}

func (s *Service) mutate(ctx context.Context, templateID string, fn func([]models.ActiveExercise) ([]models.ActiveExercise, error)) (ActiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.requireLocked(ctx, templateID)
	if err != nil {
		return ActiveSession{}, err
	}
	next, err := fn(models.CloneExercises(cur))
	if err != nil {
		return ActiveSession{}, err
	}
	s.working[templateID] = next
	s.scheduleSaveLocked(templateID, next)
	return s.viewLocked(ctx, templateID, s.templateNameLocked(ctx, templateID), next)
}

func (s *Service) scheduleSaveLocked(templateID string, exercises []models.ActiveExercise) {
	snapshot := models.CloneExercises(exercises)
	s.sched.Schedule(state.DraftKey(templateID), func(ctx context.Context) error {
		return s.drafts.Save(ctx, templateID, snapshot)
	})
}

// workingLocked returns the newest known draft of templateID.
func (s *Service) workingLocked(ctx context.Context, templateID string) ([]models.ActiveExercise, bool, error) {
	if ex, ok := s.working[templateID]; ok {
		return ex, true, nil
	}
	ex, ok, err := s.drafts.Load(ctx, templateID)
	if err != nil || !ok {
		return nil, false, err
	}
	s.working[templateID] = ex
	return ex, true, nil
}

func (s *Service) requireLocked(ctx context.Context, templateID string) ([]models.ActiveExercise, error) {
	ex, ok, err := s.workingLocked(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoActiveSession
	}
	return ex, nil
}

func (s *Service) templateNameLocked(ctx context.Context, templateID string) string {
	t, err := s.templateLocked(ctx, templateID)
	if err != nil {
		if !errors.Is(err, ErrTemplateNotFound) {
			s.log.Warn("template lookup failed", "template_id", templateID, "error", err)
		}
		return customTemplateName
	}
	return t.Name
}

func (s *Service) clearPointerInto(ctx context.Context, tx *state.Tx, templateID string) error {
	active, _, err := s.st.GetString(ctx, state.KeyActiveSession)
	if err != nil {
		return fmt.Errorf("reading active session: %w", err)
	}
	if active == templateID {
		tx.Delete(state.KeyActiveSession)
	}
	return nil
}

func (s *Service) viewLocked(ctx context.Context, templateID, name string, exercises []models.ActiveExercise) (ActiveSession, error) {
	ts, err := s.tracker.State(ctx)
	if err != nil {
		return ActiveSession{}, err
	}
	elapsed, err := s.tracker.Elapsed(ctx)
	if err != nil {
		return ActiveSession{}, err
	}
	return ActiveSession{
		TemplateID:   templateID,
		TemplateName: name,
		Exercises:    models.CloneExercises(exercises),
		ElapsedMs:    elapsed.Milliseconds(),
		Elapsed:      timer.FormatDuration(elapsed),
		Running:      ts.Running,
	}, nil
}

func clampSet(set models.WorkoutSet) models.WorkoutSet {
	set.Reps = max(set.Reps, 0)
	if math.IsNaN(set.Weight) || set.Weight < 0 {
		set.Weight = 0
	}
	return set
}

func checkExercise(ex []models.ActiveExercise, exIdx int) error {
	if exIdx < 0 || exIdx >= len(ex) {
		return fmt.Errorf("exercise %d: %w", exIdx, ErrIndexOutOfRange)
	}
	return nil
}

func checkSet(ex []models.ActiveExercise, exIdx, setIdx int) error {
	if err := checkExercise(ex, exIdx); err != nil {
		return err
	}
	if setIdx < 0 || setIdx >= len(ex[exIdx].Sets) {
		return fmt.Errorf("set %d: %w", setIdx, ErrIndexOutOfRange)
	}
	return nil
}
