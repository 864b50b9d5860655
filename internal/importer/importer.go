// Package importer brings workouts logged in other apps into the session log.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/titanlift/internal/models"
	"github.com/meltforce/titanlift/internal/workout"
)

// ImportedCategory is the catalog category of exercises first seen in an import.
const ImportedCategory = "Imported"

// Stats tracks import progress.
type Stats struct {
	SessionsParsed int `json:"sessionsParsed"`
	SessionsAdded  int `json:"sessionsAdded"`
	ExercisesAdded int `json:"exercisesAdded"`
	SetsImported   int `json:"setsImported"`
	WarmupsSkipped int `json:"warmupsSkipped"`
}

// Importer converts Alpha Progression exports into logged sessions.
type Importer struct {
	svc    *workout.Service
	log    *slog.Logger
	dryRun bool
	loc    *time.Location
}

// New creates an Importer. With dryRun set, exports are parsed and counted
// but nothing is written, and svc may be nil.
func New(svc *workout.Service, log *slog.Logger, dryRun bool) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{svc: svc, log: log, dryRun: dryRun, loc: time.UTC}
}

// SetLocation sets the zone the export's wall-clock times are read in.
func (imp *Importer) SetLocation(loc *time.Location) {
	if loc != nil {
		imp.loc = loc
	}
}

// Import parses r and logs every session not imported before.
func (imp *Importer) Import(ctx context.Context, r io.Reader) (*Stats, error) {
	parsed, err := ParseAlpha(r, imp.loc)
	if err != nil {
		return nil, fmt.Errorf("parsing export: %w", err)
	}

	stats := &Stats{SessionsParsed: len(parsed)}
	sessions := make([]models.WorkoutSession, 0, len(parsed))
	for _, a := range parsed {
		s := Convert(a)
		for _, ex := range a.Exercises {
			for _, set := range ex.Sets {
				if set.Warmup {
					stats.WarmupsSkipped++
				}
			}
		}
		for _, ex := range s.Exercises {
			stats.SetsImported += len(ex.Sets)
		}
		sessions = append(sessions, s)
	}

	if imp.dryRun {
		imp.log.Info("dry run", "sessions", stats.SessionsParsed, "sets", stats.SetsImported)
		return stats, nil
	}

	res, err := imp.svc.ImportSessions(ctx, sessions, ImportedCategory)
	if err != nil {
		return stats, fmt.Errorf("logging sessions: %w", err)
	}
	stats.SessionsAdded = res.SessionsAdded
	stats.ExercisesAdded = res.ExercisesAdded
	return stats, nil
}

// Convert maps an exported session to a completed WorkoutSession. Warm-up
// sets are dropped and working sets count as completed. The ID is derived
// from the session name and start so re-imports map to the same session.
// Exercise IDs are left for the catalog match.
func Convert(a AlphaSession) models.WorkoutSession {
	start := a.Date.UTC().Format(time.RFC3339)
	s := models.WorkoutSession{
		ID:           uuid.NewSHA1(uuid.NameSpaceURL, []byte("titanlift:alpha:"+a.Name+"|"+start)).String(),
		TemplateName: a.Name,
		Date:         start,
		DurationMs:   parseAlphaDuration(a.Duration).Milliseconds(),
		Exercises:    []models.ActiveExercise{},
	}
	for _, ex := range a.Exercises {
		var sets []models.WorkoutSet
		for _, set := range ex.Sets {
			if set.Warmup {
				continue
			}
			sets = append(sets, models.WorkoutSet{Reps: set.Reps, Weight: set.WeightKg, Completed: true})
		}
		if len(sets) == 0 {
			continue
		}
		s.Exercises = append(s.Exercises, models.ActiveExercise{
			Name:  ex.Name,
			Sets:  sets,
			Notes: ex.Equipment,
		})
	}
	return s
}
