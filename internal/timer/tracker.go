// Package timer implements the global gym-time stopwatch and the
// per-exercise rest timers. Both persist absolute wall-clock timestamps so
// they keep counting while no process is running.
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/meltforce/titanlift/internal/models"
	"github.com/meltforce/titanlift/internal/state"
)

// Tracker is the pausable session stopwatch.
type Tracker struct {
	st  *state.Store
	now func() time.Time
	mu  sync.Mutex
}

// NewTracker creates a Tracker. A nil now uses time.Now.
func NewTracker(st *state.Store, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{st: st, now: now}
}

// State reads the persisted stopwatch.
func (t *Tracker) State(ctx context.Context) (models.TimerState, error) {
	var ts models.TimerState

	running, err := t.st.GetBool(ctx, state.KeyTimerRunning)
	if err != nil {
		return ts, fmt.Errorf("reading timer flag: %w", err)
	}
	ts.Running = running

	elapsed, _, err := t.st.GetInt(ctx, state.KeyActiveElapsed)
	if err != nil {
		return ts, fmt.Errorf("reading accumulated time: %w", err)
	}
	ts.ElapsedMs = elapsed

	start, ok, err := t.st.GetInt(ctx, state.KeyActiveStart)
	if err != nil {
		return ts, fmt.Errorf("reading start time: %w", err)
	}
	if ok {
		ts.StartMs = &start
	}
	return ts, nil
}

// Elapsed is the accumulated time plus the current run when running. A
// running flag without a start timestamp contributes nothing.
func (t *Tracker) Elapsed(ctx context.Context) (time.Duration, error) {
	ts, err := t.State(ctx)
	if err != nil {
		return 0, err
	}
	return t.elapsed(ts), nil
}

func (t *Tracker) elapsed(ts models.TimerState) time.Duration {
	total := ts.ElapsedMs
	if ts.Running && ts.StartMs != nil {
		if run := t.now().UnixMilli() - *ts.StartMs; run > 0 {
			total += run
		}
	}
	return time.Duration(total) * time.Millisecond
}

func (t *Tracker) Running(ctx context.Context) (bool, error) {
	return t.st.GetBool(ctx, state.KeyTimerRunning)
}

// Start is a no-op when already running.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	running, err := t.st.GetBool(ctx, state.KeyTimerRunning)
	if err != nil {
		return fmt.Errorf("reading timer flag: %w", err)
	}
	if running {
		return nil
	}

	tx := t.st.Begin()
	tx.SetInt(state.KeyActiveStart, t.now().UnixMilli())
	tx.SetBool(state.KeyTimerRunning, true)
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("starting timer: %w", err)
	}
	return nil
}

// Pause folds the current run into the accumulated time. No-op when paused.
func (t *Tracker) Pause(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ts, err := t.State(ctx)
	if err != nil {
		return err
	}
	if !ts.Running {
		return nil
	}

	tx := t.st.Begin()
	tx.SetInt(state.KeyActiveElapsed, t.elapsed(ts).Milliseconds())
	tx.Delete(state.KeyActiveStart)
	tx.SetBool(state.KeyTimerRunning, false)
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pausing timer: %w", err)
	}
	return nil
}

// Reset zeroes and stops the stopwatch.
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tx := t.st.Begin()
	ResetInto(tx)
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("resetting timer: %w", err)
	}
	return nil
}

// ResetInto queues the writes of Reset on tx, for callers that reset the
// stopwatch as part of a larger atomic write.
func ResetInto(tx *state.Tx) {
	tx.SetInt(state.KeyActiveElapsed, 0)
	tx.Delete(state.KeyActiveStart)
	tx.SetBool(state.KeyTimerRunning, false)
}
