package timer

import (
	"context"
	"fmt"
	"time"

	"github.com/meltforce/titanlift/internal/state"
)

// DefaultRest is the rest period used until the user sets a preference.
const DefaultRest = 90 * time.Second

// RestStatus is a snapshot of one exercise's rest countdown.
type RestStatus struct {
	ExerciseID string `json:"exerciseId"`
	Active     bool   `json:"active"`
	Remaining  int64  `json:"remainingSeconds"`
	Display    string `json:"display"`
}

// Preference is the configured rest period of an exercise.
type Preference struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

func (p Preference) Duration() time.Duration {
	return time.Duration(p.Minutes)*time.Minute + time.Duration(p.Seconds)*time.Second
}

// Rest manages per-exercise rest countdowns keyed by exercise ID.
type Rest struct {
	st  *state.Store
	now func() time.Time
}

// NewRest creates a Rest. A nil now uses time.Now.
func NewRest(st *state.Store, now func() time.Time) *Rest {
	if now == nil {
		now = time.Now
	}
	return &Rest{st: st, now: now}
}

// Start begins a countdown of d. A non-positive d leaves any running
// countdown untouched.
func (r *Rest) Start(ctx context.Context, exerciseID string, d time.Duration) (RestStatus, error) {
	if d <= 0 {
		return r.Remaining(ctx, exerciseID)
	}
	end := r.now().Add(d).UnixMilli()
	if err := r.st.SetInt(ctx, state.RestEndKey(exerciseID), end); err != nil {
		return RestStatus{}, fmt.Errorf("starting rest for %s: %w", exerciseID, err)
	}
	return r.status(exerciseID, d), nil
}

// StartPreferred begins a countdown using the exercise's stored preference.
func (r *Rest) StartPreferred(ctx context.Context, exerciseID string) (RestStatus, error) {
	p, err := r.Preference(ctx, exerciseID)
	if err != nil {
		return RestStatus{}, err
	}
	return r.Start(ctx, exerciseID, p.Duration())
}

// Remaining reports the whole seconds left. An expired countdown is removed.
func (r *Rest) Remaining(ctx context.Context, exerciseID string) (RestStatus, error) {
	end, ok, err := r.st.GetInt(ctx, state.RestEndKey(exerciseID))
	if err != nil {
		return RestStatus{}, fmt.Errorf("reading rest for %s: %w", exerciseID, err)
	}
	if !ok {
		return r.status(exerciseID, 0), nil
	}
	left := time.Duration(end-r.now().UnixMilli()) * time.Millisecond
	if left <= 0 {
		if err := r.st.Delete(ctx, state.RestEndKey(exerciseID)); err != nil {
			return RestStatus{}, fmt.Errorf("clearing expired rest for %s: %w", exerciseID, err)
		}
		return r.status(exerciseID, 0), nil
	}
	return r.status(exerciseID, left), nil
}

func (r *Rest) Cancel(ctx context.Context, exerciseID string) error {
	if err := r.st.Delete(ctx, state.RestEndKey(exerciseID)); err != nil {
		return fmt.Errorf("cancelling rest for %s: %w", exerciseID, err)
	}
	return nil
}

// Preference returns the stored rest period, defaulting to DefaultRest.
func (r *Rest) Preference(ctx context.Context, exerciseID string) (Preference, error) {
	p := Preference{
		Minutes: int(DefaultRest / time.Minute),
		Seconds: int(DefaultRest % time.Minute / time.Second),
	}
	m, ok, err := r.st.GetInt(ctx, state.RestMinKey(exerciseID))
	if err != nil {
		return p, fmt.Errorf("reading rest preference: %w", err)
	}
	if ok {
		p.Minutes = int(m)
	}
	s, ok, err := r.st.GetInt(ctx, state.RestSecKey(exerciseID))
	if err != nil {
		return p, fmt.Errorf("reading rest preference: %w", err)
	}
	if ok {
		p.Seconds = int(s)
	}
	return clampPreference(p), nil
}

// SetPreference stores p with minutes clamped to ≥0 and seconds to 0..59.
func (r *Rest) SetPreference(ctx context.Context, exerciseID string, p Preference) (Preference, error) {
	p = clampPreference(p)
	tx := r.st.Begin()
	tx.SetInt(state.RestMinKey(exerciseID), int64(p.Minutes))
	tx.SetInt(state.RestSecKey(exerciseID), int64(p.Seconds))
	if err := tx.Commit(ctx); err != nil {
		return p, fmt.Errorf("saving rest preference: %w", err)
	}
	return p, nil
}

func clampPreference(p Preference) Preference {
	p.Minutes = max(p.Minutes, 0)
	p.Seconds = min(max(p.Seconds, 0), 59)
	return p
}

func (r *Rest) status(exerciseID string, left time.Duration) RestStatus {
	secs := int64(left / time.Second)
	return RestStatus{
		ExerciseID: exerciseID,
		Active:     left > 0,
		Remaining:  secs,
		Display:    FormatRest(left),
	}
}
