// Package app assembles the workout service from configuration. The server,
// the MCP binary and the importer share it so they see the same state.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meltforce/titanlift/internal/config"
	"github.com/meltforce/titanlift/internal/draft"
	"github.com/meltforce/titanlift/internal/history"
	"github.com/meltforce/titanlift/internal/kv"
	"github.com/meltforce/titanlift/internal/models"
	"github.com/meltforce/titanlift/internal/state"
	"github.com/meltforce/titanlift/internal/timer"
	"github.com/meltforce/titanlift/internal/workout"
)

// Hooks observe service events. Any field may be nil.
type Hooks struct {
	OnDraftWrite func(err error)
	OnFinish     func(models.WorkoutSession)
}

// App is an opened store with the service built on it.
type App struct {
	Store   kv.Store
	State   *state.Store
	Service *workout.Service
	log     *slog.Logger
}

// Open connects the configured store and builds the service.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger, hooks Hooks) (*App, error) {
	store, err := kv.Open(ctx, cfg.KVOptions())
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}
	log.Info("store opened", "driver", cfg.Store.Driver, "namespace", cfg.Store.Namespace)

	st := state.New(store, cfg.Store.Namespace, log)
	sched := draft.NewScheduler(cfg.Draft.Debounce, log)
	if hooks.OnDraftWrite != nil {
		sched.OnWrite = func(_ string, err error) { hooks.OnDraftWrite(err) }
	}

	svc := workout.New(workout.Deps{
		State:     st,
		Drafts:    draft.NewStore(st, log),
		Scheduler: sched,
		Log:       history.NewLog(st, log),
		Tracker:   timer.NewTracker(st, time.Now),
		Rest:      timer.NewRest(st, time.Now),
		Logger:    log,
		OnFinish:  hooks.OnFinish,
	})
	return &App{Store: store, State: st, Service: svc, log: log}, nil
}

// Close flushes pending draft writes, then closes the store.
func (a *App) Close(ctx context.Context) error {
	flushErr := a.Service.Close(ctx)
	if flushErr != nil {
		a.log.Error("flushing drafts failed", "error", flushErr)
	}
	return errors.Join(flushErr, a.Store.Close())
}
