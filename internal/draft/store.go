// Package draft persists in-progress workouts and the per-exercise memory
// used to pre-fill them.
package draft

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meltforce/titanlift/internal/models"
	"github.com/meltforce/titanlift/internal/state"
)

// Defaults for an exercise with no memory.
const (
	DefaultSets = 3
	DefaultReps = 10

	unknownExerciseName = "Exercise"
)

// Store reads and writes drafts keyed by template ID.
type Store struct {
	st  *state.Store
	log *slog.Logger
}

func NewStore(st *state.Store, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{st: st, log: log}
}

// Load returns the stored draft. A missing or malformed draft reports false.
func (s *Store) Load(ctx context.Context, templateID string) ([]models.ActiveExercise, bool, error) {
	var exercises []models.ActiveExercise
	ok, err := s.st.GetJSON(ctx, state.DraftKey(templateID), &exercises)
	if err != nil {
		return nil, false, fmt.Errorf("loading draft %s: %w", templateID, err)
	}
	if !ok {
		return nil, false, nil
	}
	return exercises, true, nil
}

func (s *Store) Save(ctx context.Context, templateID string, exercises []models.ActiveExercise) error {
	if exercises == nil {
		exercises = []models.ActiveExercise{}
	}
	if err := s.st.SetJSON(ctx, state.DraftKey(templateID), exercises); err != nil {
		return fmt.Errorf("saving draft %s: %w", templateID, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, templateID string) error {
	if err := s.st.Delete(ctx, state.DraftKey(templateID)); err != nil {
		return fmt.Errorf("clearing draft %s: %w", templateID, err)
	}
	return nil
}

// ClearInto queues the draft deletion on tx.
func ClearInto(tx *state.Tx, templateID string) {
	tx.Delete(state.DraftKey(templateID))
}

// Templates lists the template IDs that currently have a draft.
func (s *Store) Templates(ctx context.Context) ([]string, error) {
	names, err := s.st.Names(ctx, state.PrefixDraft)
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}
	ids := make([]string, len(names))
	for i, n := range names {
		ids[i] = strings.TrimPrefix(n, state.PrefixDraft)
	}
	return ids, nil
}

// Memory returns the last-used configuration of an exercise.
func (s *Store) Memory(ctx context.Context, exerciseID string) (models.ExerciseMemory, bool, error) {
	var m models.ExerciseMemory
	ok, err := s.st.GetJSON(ctx, state.MemoryKey(exerciseID), &m)
	if err != nil {
		return m, false, fmt.Errorf("loading memory for %s: %w", exerciseID, err)
	}
	return m, ok, nil
}

// Remember stores ex's weights, reps and notes for the next session.
func (s *Store) Remember(ctx context.Context, ex models.ActiveExercise) error {
	if err := s.st.SetJSON(ctx, state.MemoryKey(ex.ExerciseID), MemoryOf(ex)); err != nil {
		return fmt.Errorf("saving memory for %s: %w", ex.ExerciseID, err)
	}
	return nil
}

// RememberInto queues Remember on tx.
func RememberInto(tx *state.Tx, ex models.ActiveExercise) {
	tx.SetJSON(state.MemoryKey(ex.ExerciseID), MemoryOf(ex))
}

// MemoryOf strips completion flags from ex.
func MemoryOf(ex models.ActiveExercise) models.ExerciseMemory {
	m := models.ExerciseMemory{Sets: make([]models.MemorySet, len(ex.Sets)), Notes: ex.Notes}
	for i, set := range ex.Sets {
		m.Sets[i] = models.MemorySet{Reps: set.Reps, Weight: set.Weight}
	}
	return m
}

// Initial builds a fresh draft for template. Each exercise starts from its
// memory with every set uncompleted, or from DefaultSets x DefaultReps at
// zero weight. IDs missing from catalog get a placeholder name.
func (s *Store) Initial(ctx context.Context, template models.WorkoutTemplate, catalog []models.Exercise) ([]models.ActiveExercise, error) {
	out := make([]models.ActiveExercise, 0, len(template.Exercises))
	for _, id := range template.Exercises {
		ex := models.ActiveExercise{ExerciseID: id, Name: unknownExerciseName}
		if info, ok := models.FindExercise(catalog, id); ok {
			ex.Name = info.Name
		}

		mem, ok, err := s.Memory(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok && len(mem.Sets) > 0 {
			ex.Notes = mem.Notes
			ex.Sets = make([]models.WorkoutSet, len(mem.Sets))
			for i, ms := range mem.Sets {
				ex.Sets[i] = models.WorkoutSet{Reps: ms.Reps, Weight: ms.Weight}
			}
		} else {
			ex.Sets = DefaultSetList()
		}
		out = append(out, ex)
	}
	return out, nil
}

// DefaultSetList is the set list of an exercise with no memory.
func DefaultSetList() []models.WorkoutSet {
	sets := make([]models.WorkoutSet, DefaultSets)
	for i := range sets {
		sets[i] = models.WorkoutSet{Reps: DefaultReps}
	}
	return sets
}
