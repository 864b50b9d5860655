package mcp

import (
	"context"
	"errors"

	"github.com/meltforce/titanlift/internal/models"
	"github.com/meltforce/titanlift/internal/workout"
)

// DataSource abstracts the data layer for MCP tools. Local (in-process) and
// HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	Sessions(ctx context.Context) ([]models.WorkoutSession, error)
	Exercises(ctx context.Context) ([]models.Exercise, error)
	Templates(ctx context.Context) ([]models.WorkoutTemplate, error)
	// ActiveWorkout returns nil when no session is in progress.
	ActiveWorkout(ctx context.Context) (*workout.ActiveSession, error)
}

// Local reads straight from a workout service.
type Local struct {
	svc *workout.Service
}

var _ DataSource = (*Local)(nil)

func NewLocal(svc *workout.Service) *Local {
	return &Local{svc: svc}
}

func (l *Local) Sessions(ctx context.Context) ([]models.WorkoutSession, error) {
	return l.svc.Sessions().All(ctx)
}

func (l *Local) Exercises(ctx context.Context) ([]models.Exercise, error) {
	return l.svc.Exercises(ctx)
}

func (l *Local) Templates(ctx context.Context) ([]models.WorkoutTemplate, error) {
	return l.svc.Templates(ctx)
}

func (l *Local) ActiveWorkout(ctx context.Context) (*workout.ActiveSession, error) {
	session, err := l.svc.Active(ctx)
	if errors.Is(err, workout.ErrNoActiveSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
