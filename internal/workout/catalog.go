package workout

import (
	"context"
	"fmt"
	"strings"

	"github.com/meltforce/titanlift/internal/draft"
	"github.com/meltforce/titanlift/internal/models"
	"github.com/meltforce/titanlift/internal/state"
)

const (
	newPlanName           = "New Plan"
	scannedCategory       = "Scanned"
	scannedWorkoutName    = "Scanned Workout"
	scannedDescription    = "Imported from a photo."
	customTemplatePrefix  = "custom-"
	scannedTemplatePrefix = "sc-"
)

// Exercises returns the catalog, seeded with the defaults until first saved.
func (s *Service) Exercises(ctx context.Context) ([]models.Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exercisesLocked(ctx)
}

func (s *Service) exercisesLocked(ctx context.Context) ([]models.Exercise, error) {
	var list []models.Exercise
	ok, err := s.st.GetJSON(ctx, state.KeyExercises, &list)
	if err != nil {
		return nil, fmt.Errorf("loading exercises: %w", err)
	}
	if !ok {
		return models.SeedExercises(), nil
	}
	return list, nil
}

// SaveExercises replaces the catalog.
func (s *Service) SaveExercises(ctx context.Context, list []models.Exercise) error {
	for _, e := range list {
		if e.ID == "" || strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("exercise %q: %w", e.ID, ErrInvalidName)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.st.SetJSON(ctx, state.KeyExercises, list); err != nil {
		return fmt.Errorf("saving exercises: %w", err)
	}
	return nil
}

// AddExercise appends e to the catalog, assigning an ID when empty.
func (s *Service) AddExercise(ctx context.Context, e models.Exercise) (models.Exercise, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return e, ErrInvalidName
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.exercisesLocked(ctx)
	if err != nil {
		return e, err
	}
	if e.ID == "" {
		e.ID = s.newID()
	}
	list = append(list, e)
	if err := s.st.SetJSON(ctx, state.KeyExercises, list); err != nil {
		return e, fmt.Errorf("saving exercises: %w", err)
	}
	return e, nil
}

// Templates returns all templates, seeded with the defaults until first saved.
func (s *Service) Templates(ctx context.Context) ([]models.WorkoutTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templatesLocked(ctx)
}

func (s *Service) templatesLocked(ctx context.Context) ([]models.WorkoutTemplate, error) {
	var list []models.WorkoutTemplate
	ok, err := s.st.GetJSON(ctx, state.KeyTemplates, &list)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	if !ok {
		return models.SeedTemplates(), nil
	}
	return list, nil
}

func (s *Service) saveTemplatesLocked(ctx context.Context, list []models.WorkoutTemplate) error {
	if err := s.st.SetJSON(ctx, state.KeyTemplates, list); err != nil {
		return fmt.Errorf("saving templates: %w", err)
	}
	return nil
}

func (s *Service) Template(ctx context.Context, id string) (models.WorkoutTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templateLocked(ctx, id)
}

func (s *Service) templateLocked(ctx context.Context, id string) (models.WorkoutTemplate, error) {
	list, i, err := s.templatesIndexLocked(ctx, id)
	if err != nil {
		return models.WorkoutTemplate{}, err
	}
	return list[i], nil
}

// CreateTemplate adds an empty plan at the top of the list.
func (s *Service) CreateTemplate(ctx context.Context) (models.WorkoutTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.templatesLocked(ctx)
	if err != nil {
		return models.WorkoutTemplate{}, err
	}
	t := models.WorkoutTemplate{
		ID:        customTemplatePrefix + s.newID(),
		Name:      newPlanName,
		Exercises: []string{},
	}
	list = append([]models.WorkoutTemplate{t}, list...)
	if err := s.saveTemplatesLocked(ctx, list); err != nil {
		return models.WorkoutTemplate{}, err
	}
	s.log.Info("template created", "template_id", t.ID)
	return t, nil
}

// TemplatePatch holds the editable fields of a template; nil fields are kept.
type TemplatePatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Service) UpdateTemplate(ctx context.Context, id string, p TemplatePatch) (models.WorkoutTemplate, error) {
	return s.editTemplate(ctx, id, func(t *models.WorkoutTemplate) error {
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return ErrInvalidName
			}
			t.Name = name
		}
		if p.Description != nil {
			t.Description = *p.Description
		}
		return nil
	})
}

// RenameTemplate is UpdateTemplate for the name only.
func (s *Service) RenameTemplate(ctx context.Context, id, name string) (models.WorkoutTemplate, error) {
	return s.UpdateTemplate(ctx, id, TemplatePatch{Name: &name})
}

// AddTemplateExercise appends a catalog exercise to the template.
func (s *Service) AddTemplateExercise(ctx context.Context, id, exerciseID string) (models.WorkoutTemplate, error) {
	return s.editTemplate(ctx, id, func(t *models.WorkoutTemplate) error {
		catalog, err := s.exercisesLocked(ctx)
		if err != nil {
			return err
		}
		if _, ok := models.FindExercise(catalog, exerciseID); !ok {
			return ErrExerciseNotFound
		}
		t.Exercises = append(t.Exercises, exerciseID)
		return nil
	})
}

// RemoveTemplateExercise drops every occurrence of exerciseID from the template.
func (s *Service) RemoveTemplateExercise(ctx context.Context, id, exerciseID string) (models.WorkoutTemplate, error) {
	return s.editTemplate(ctx, id, func(t *models.WorkoutTemplate) error {
		kept := make([]string, 0, len(t.Exercises))
		for _, e := range t.Exercises {
			if e != exerciseID {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(t.Exercises) {
			return ErrExerciseNotFound
		}
		t.Exercises = kept
		return nil
	})
}

func (s *Service) editTemplate(ctx context.Context, id string, edit func(*models.WorkoutTemplate) error) (models.WorkoutTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.templatesLocked(ctx)
	if err != nil {
		return models.WorkoutTemplate{}, err
	}
	for i := range list {
		if list[i].ID != id {
			continue
		}
		if err := edit(&list[i]); err != nil {
			return models.WorkoutTemplate{}, err
		}
		if err := s.saveTemplatesLocked(ctx, list); err != nil {
			return models.WorkoutTemplate{}, err
		}
		return list[i], nil
	}
	return models.WorkoutTemplate{}, ErrTemplateNotFound
}

// DeleteTemplate removes the template together with any draft for it.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, idx, err := s.templatesIndexLocked(ctx, id)
	if err != nil {
		return err
	}
	list = append(list[:idx], list[idx+1:]...)

	s.sched.Cancel(state.DraftKey(id))
	delete(s.working, id)

	tx := s.st.Begin()
	tx.SetJSON(state.KeyTemplates, list)
	draft.ClearInto(tx, id)
	if err := s.clearPointerInto(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("deleting template %s: %w", id, err)
	}
	s.log.Info("template deleted", "template_id", id)
	return nil
}

func (s *Service) templatesIndexLocked(ctx context.Context, id string) ([]models.WorkoutTemplate, int, error) {
	list, err := s.templatesLocked(ctx)
	if err != nil {
		return nil, -1, err
	}
	for i, t := range list {
		if t.ID == id {
			return list, i, nil
		}
	}
	return nil, -1, ErrTemplateNotFound
}

// AddScannedTemplate turns a photo scan into a template. Names matching a
// catalog exercise (case-insensitive) reuse it; others become new catalog
// entries. Exercises without memory are pre-filled with the suggested
// sets and reps.
func (s *Service) AddScannedTemplate(ctx context.Context, scan models.ScannedWorkout) (models.WorkoutTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.exercisesLocked(ctx)
	if err != nil {
		return models.WorkoutTemplate{}, err
	}
	templates, err := s.templatesLocked(ctx)
	if err != nil {
		return models.WorkoutTemplate{}, err
	}

	name := strings.TrimSpace(scan.WorkoutName)
	if name == "" {
		name = scannedWorkoutName
	}
	t := models.WorkoutTemplate{
		ID:          scannedTemplatePrefix + s.newID(),
		Name:        name,
		Description: scannedDescription,
		Exercises:   []string{},
	}

	tx := s.st.Begin()
	catalogChanged := false
	for _, se := range scan.Exercises {
		exName := strings.TrimSpace(se.Name)
		if exName == "" {
			continue
		}
		ex, ok := findByName(catalog, exName)
		if !ok {
			ex = models.Exercise{ID: s.newID(), Name: exName, Category: scannedCategory}
			catalog = append(catalog, ex)
			catalogChanged = true
		}
		t.Exercises = append(t.Exercises, ex.ID)

		if _, remembered, err := s.drafts.Memory(ctx, ex.ID); err != nil {
			return models.WorkoutTemplate{}, err
		} else if !remembered {
			draft.RememberInto(tx, models.ActiveExercise{ExerciseID: ex.ID, Sets: suggestedSets(se)})
		}
	}

	if catalogChanged {
		tx.SetJSON(state.KeyExercises, catalog)
	}
	tx.SetJSON(state.KeyTemplates, append([]models.WorkoutTemplate{t}, templates...))
	if err := tx.Commit(ctx); err != nil {
		return models.WorkoutTemplate{}, fmt.Errorf("saving scanned template: %w", err)
	}
	s.log.Info("scanned template added", "template_id", t.ID, "exercises", len(t.Exercises))
	return t, nil
}

func suggestedSets(se models.ScannedExercise) []models.WorkoutSet {
	n, reps := se.SetsCount, se.RepsSuggested
	if n <= 0 {
		n = draft.DefaultSets
	}
	if reps <= 0 {
		reps = draft.DefaultReps
	}
	sets := make([]models.WorkoutSet, n)
	for i := range sets {
		sets[i] = models.WorkoutSet{Reps: reps}
	}
	return sets
}

func findByName(catalog []models.Exercise, name string) (models.Exercise, bool) {
	for _, e := range catalog {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return models.Exercise{}, false
}
