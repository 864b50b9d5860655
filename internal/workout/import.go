package workout

import (
	"context"
	"fmt"
	"strings"

	"github.com/meltforce/titanlift/internal/models"
	"github.com/meltforce/titanlift/internal/state"
)

// ImportResult summarizes an ImportSessions call.
type ImportResult struct {
	SessionsReceived int `json:"sessionsReceived"`
	SessionsAdded    int `json:"sessionsAdded"`
	ExercisesAdded   int `json:"exercisesAdded"`
}

// ImportSessions logs sessions recorded elsewhere. Exercises are matched to
// the catalog by name, case-insensitively, and unknown names are added under
// category. Sessions whose ID is already logged are skipped, so importing
// the same export twice is harmless.
func (s *Service) ImportSessions(ctx context.Context, sessions []models.WorkoutSession, category string) (ImportResult, error) {
	res := ImportResult{SessionsReceived: len(sessions)}

	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.exercisesLocked(ctx)
	if err != nil {
		return res, err
	}

	resolved := make([]models.WorkoutSession, len(sessions))
	for i, sess := range sessions {
		sess.Exercises = models.CloneExercises(sess.Exercises)
		for j := range sess.Exercises {
			ex := &sess.Exercises[j]
			ex.Name = strings.TrimSpace(ex.Name)
			if ex.Name == "" {
				return res, fmt.Errorf("session %s exercise %d: %w", sess.ID, j+1, ErrInvalidName)
			}
			match, ok := findByName(catalog, ex.Name)
			if !ok {
				match = models.Exercise{ID: s.newID(), Name: ex.Name, Category: category}
				catalog = append(catalog, match)
				res.ExercisesAdded++
			}
			ex.ExerciseID = match.ID
		}
		resolved[i] = sess
	}

	if res.ExercisesAdded > 0 {
		if err := s.st.SetJSON(ctx, state.KeyExercises, catalog); err != nil {
			return res, fmt.Errorf("saving exercises: %w", err)
		}
	}
	added, err := s.sessions.Merge(ctx, resolved)
	if err != nil {
		return res, err
	}
	res.SessionsAdded = added
	s.log.Info("sessions imported", "received", res.SessionsReceived, "added", added, "new_exercises", res.ExercisesAdded)
	return res, nil
}
