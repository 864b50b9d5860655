package timer

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/meltforce/titanlift/internal/kv"
	"github.com/meltforce/titanlift/internal/state"
)

// fakeClock is a manually advanced clock.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestState(t *testing.T) *state.Store {
	t.Helper()
	return state.New(kv.NewMemory(), "", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustElapsed(t *testing.T, tr *Tracker) time.Duration {
	t.Helper()
	d, err := tr.Elapsed(context.Background())
	if err != nil {
		t.Fatalf("Elapsed: %v", err)
	}
	return d
}

// TestStartPauseElapsed verifies that elapsed time after start, wait, pause
// equals the waited time, and that it stays frozen while paused.
func TestStartPauseElapsed(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	tr := NewTracker(newTestState(t), clock.Now)
	ctx := context.Background()

	if err := tr.Start(ctx); err != nil {
		t.Fatal(err)
	}
	clock.Advance(1500 * time.Millisecond)
	if got := mustElapsed(t, tr); got != 1500*time.Millisecond {
		t.Errorf("running Elapsed = %v, want 1.5s", got)
	}
	if err := tr.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Hour)
	if got := mustElapsed(t, tr); got != 1500*time.Millisecond {
		t.Errorf("paused Elapsed = %v, want 1.5s", got)
	}

	// Resuming accumulates on top of the paused total.
	if err := tr.Start(ctx); err != nil {
		t.Fatal(err)
	}
	clock.Advance(500 * time.Millisecond)
	if got := mustElapsed(t, tr); got != 2*time.Second {
		t.Errorf("resumed Elapsed = %v, want 2s", got)
	}
}

// TestStartIsIdempotent verifies a second Start does not move the start time.
func TestStartIsIdempotent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	tr := NewTracker(newTestState(t), clock.Now)
	ctx := context.Background()

	tr.Start(ctx)
	clock.Advance(10 * time.Second)
	tr.Start(ctx)
	clock.Advance(5 * time.Second)
	if got := mustElapsed(t, tr); got != 15*time.Second {
		t.Errorf("Elapsed = %v, want 15s", got)
	}
}

// TestReset verifies reset zeroes and stops the stopwatch.
func TestReset(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	tr := NewTracker(newTestState(t), clock.Now)
	ctx := context.Background()

	tr.Start(ctx)
	clock.Advance(time.Minute)
	if err := tr.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if got := mustElapsed(t, tr); got != 0 {
		t.Errorf("Elapsed after Reset = %v, want 0", got)
	}
	ts, err := tr.State(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ts.Running || ts.StartMs != nil {
		t.Errorf("State after Reset = %+v, want stopped with no start", ts)
	}
}

// TestRunningWithoutStartContributesZero verifies a running flag with a
// missing start timestamp does not fail and adds nothing.
func TestRunningWithoutStartContributesZero(t *testing.T) {
	st := newTestState(t)
	ctx := context.Background()
	st.SetBool(ctx, state.KeyTimerRunning, true)
	st.SetInt(ctx, state.KeyActiveElapsed, 4000)

	tr := NewTracker(st, nil)
	if got := mustElapsed(t, tr); got != 4*time.Second {
		t.Errorf("Elapsed = %v, want 4s", got)
	}
}

// TestResumesAcrossInstances verifies a new Tracker over the same store picks
// up a running stopwatch, as after a process restart.
func TestResumesAcrossInstances(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	st := newTestState(t)
	ctx := context.Background()

	if err := NewTracker(st, clock.Now).Start(ctx); err != nil {
		t.Fatal(err)
	}
	clock.Advance(42 * time.Second)
	if got := mustElapsed(t, NewTracker(st, clock.Now)); got != 42*time.Second {
		t.Errorf("Elapsed = %v, want 42s", got)
	}
}

// TestFormatDuration verifies HH:MM:SS rendering.
func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-time.Second, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
		{25 * time.Hour, "25:00:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// TestFormatDurationFull verifies the human-readable form omits zero hours.
func TestFormatDurationFull(t *testing.T) {
	if got := FormatDurationFull(time.Hour + 2*time.Minute + 3*time.Second); got != "1h 2m 3s" {
		t.Errorf("got %q", got)
	}
	if got := FormatDurationFull(2*time.Minute + 3*time.Second); got != "2m 3s" {
		t.Errorf("got %q", got)
	}
}

// TestRestCountdown verifies a rest timer counts down in whole seconds and
// removes itself once expired.
func TestRestCountdown(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	st := newTestState(t)
	r := NewRest(st, clock.Now)
	ctx := context.Background()

	s, err := r.Start(ctx, "1", 90*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Active || s.Remaining != 90 || s.Display != "01:30" {
		t.Errorf("Start status = %+v", s)
	}

	clock.Advance(30*time.Second + 500*time.Millisecond)
	s, _ = r.Remaining(ctx, "1")
	if s.Remaining != 59 {
		t.Errorf("Remaining = %d, want 59", s.Remaining)
	}

	clock.Advance(time.Minute)
	s, _ = r.Remaining(ctx, "1")
	if s.Active || s.Remaining != 0 {
		t.Errorf("expired status = %+v", s)
	}
	if _, ok, _ := st.GetInt(ctx, state.RestEndKey("1")); ok {
		t.Error("expired rest end still stored")
	}
}

// TestRestPreference verifies the default and that stored values are clamped.
func TestRestPreference(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	r := NewRest(newTestState(t), clock.Now)
	ctx := context.Background()

	p, err := r.Preference(ctx, "4")
	if err != nil {
		t.Fatal(err)
	}
	if p != (Preference{Minutes: 1, Seconds: 30}) {
		t.Errorf("default Preference = %+v, want 1m30s", p)
	}

	p, err = r.SetPreference(ctx, "4", Preference{Minutes: -2, Seconds: 75})
	if err != nil {
		t.Fatal(err)
	}
	if p != (Preference{Minutes: 0, Seconds: 59}) {
		t.Errorf("clamped Preference = %+v", p)
	}

	s, err := r.StartPreferred(ctx, "4")
	if err != nil {
		t.Fatal(err)
	}
	if s.Remaining != 59 {
		t.Errorf("StartPreferred Remaining = %d, want 59", s.Remaining)
	}
}

// TestRestZeroDurationIsNoop verifies a zero rest period does not start a countdown.
func TestRestZeroDurationIsNoop(t *testing.T) {
	r := NewRest(newTestState(t), nil)
	s, err := r.Start(context.Background(), "2", 0)
	if err != nil {
		t.Fatal(err)
	}
	if s.Active {
		t.Errorf("status = %+v, want inactive", s)
	}
}
