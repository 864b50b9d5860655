package coach

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeModel struct {
	mu    sync.Mutex
	calls []Request
	fn    func(Request) (*Response, error)
	count atomic.Int32
}

func (f *fakeModel) Generate(ctx context.Context, req Request) (*Response, error) {
	f.count.Add(1)
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.fn(req)
}

func text(s string) func(Request) (*Response, error) {
	return func(Request) (*Response, error) { return &Response{Text: s}, nil }
}

func failing(Request) (*Response, error) { return nil, errors.New("boom") }

// TestQuote checks the model's phrase is returned trimmed.
func TestQuote(t *testing.T) {
	c := New(&fakeModel{fn: text("  Lift heavy today.\n")}, nil, Options{})
	if got := c.MotivationalQuote(context.Background()); got != "Lift heavy today." {
		t.Errorf("quote = %q", got)
	}
}

// TestQuoteFallback checks failures and empty text yield the first fallback.
func TestQuoteFallback(t *testing.T) {
	var fallbacks []string
	for _, fn := range []func(Request) (*Response, error){failing, text("   ")} {
		c := New(&fakeModel{fn: fn}, nil, Options{OnFallback: func(op string) { fallbacks = append(fallbacks, op) }})
		if got := c.MotivationalQuote(context.Background()); got != FallbackQuotes[0] {
			t.Errorf("quote = %q, want %q", got, FallbackQuotes[0])
		}
	}
	if len(fallbacks) != 2 || fallbacks[0] != "quote" {
		t.Errorf("fallbacks = %v", fallbacks)
	}
}

// TestNilModel checks a coach without a model serves fallbacks.
func TestNilModel(t *testing.T) {
	c := New(nil, nil, Options{})
	if c.Enabled() {
		t.Error("Enabled() = true for nil model")
	}
	if got := c.MotivationalQuote(context.Background()); got != FallbackQuotes[0] {
		t.Errorf("quote = %q", got)
	}
	if got := c.ExerciseTip(context.Background(), "Squat"); got.Text != FallbackTip.Text {
		t.Errorf("tip = %q", got.Text)
	}
	if _, err := c.ScanWorkout(context.Background(), []byte{1, 2, 3}, "image/png"); !errors.Is(err, ErrScanFailed) {
		t.Errorf("scan error = %v, want ErrScanFailed", err)
	}
}

// TestTipRequest checks the tip request asks for search grounding and
// carries the sources through.
func TestTipRequest(t *testing.T) {
	m := &fakeModel{fn: func(Request) (*Response, error) {
		return &Response{Text: "Keep your back straight.", Sources: []Source{{Title: "Guide", URI: "https://example.com"}}}, nil
	}}
	c := New(m, nil, Options{})
	tip := c.ExerciseTip(context.Background(), "Deadlift")
	if tip.Text != "Keep your back straight." || len(tip.Sources) != 1 || tip.Sources[0].URI != "https://example.com" {
		t.Errorf("tip = %+v", tip)
	}
	if len(m.calls) != 1 {
		t.Fatalf("calls = %d", len(m.calls))
	}
	req := m.calls[0]
	if !req.Search || req.System == "" {
		t.Errorf("request = %+v, want search with system prompt", req)
	}
}

// TestTipCached checks a successful tip is served from cache afterwards,
// case-insensitively.
func TestTipCached(t *testing.T) {
	m := &fakeModel{fn: text("Brace your core.")}
	c := New(m, nil, Options{})
	c.ExerciseTip(context.Background(), "Squat")
	tip := c.ExerciseTip(context.Background(), "squat ")
	if tip.Text != "Brace your core." {
		t.Errorf("tip = %q", tip.Text)
	}
	if n := m.count.Load(); n != 1 {
		t.Errorf("model calls = %d, want 1", n)
	}
}

// TestTipFailureNotCached checks a fallback does not stick.
func TestTipFailureNotCached(t *testing.T) {
	m := &fakeModel{fn: failing}
	c := New(m, nil, Options{})
	if got := c.ExerciseTip(context.Background(), "Row"); got.Text != FallbackTip.Text {
		t.Errorf("tip = %q", got.Text)
	}
	m.fn = text("Pull to your hip.")
	if got := c.ExerciseTip(context.Background(), "Row"); got.Text != "Pull to your hip." {
		t.Errorf("tip after recovery = %q", got.Text)
	}
}

// TestTipCoalesced checks concurrent requests for one exercise share a call.
func TestTipCoalesced(t *testing.T) {
	release := make(chan struct{})
	m := &fakeModel{fn: func(Request) (*Response, error) {
		<-release
		return &Response{Text: "Slow eccentric."}, nil
	}}
	c := New(m, nil, Options{})

	var wg sync.WaitGroup
	results := make([]Tip, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.ExerciseTip(context.Background(), "Bench Press")
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, r := range results {
		if r.Text != "Slow eccentric." {
			t.Errorf("result %d = %q", i, r.Text)
		}
	}
	if n := m.count.Load(); n > 2 {
		t.Errorf("model calls = %d, want concurrent calls coalesced", n)
	}
}

// TestTimeout checks a hanging model is cut off by the configured timeout.
func TestTimeout(t *testing.T) {
	hang := modelFunc(func(ctx context.Context, _ Request) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c := New(hang, nil, Options{Timeout: 20 * time.Millisecond})
	start := time.Now()
	if got := c.MotivationalQuote(context.Background()); got != FallbackQuotes[0] {
		t.Errorf("quote = %q", got)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("quote took %v", elapsed)
	}
}

type modelFunc func(context.Context, Request) (*Response, error)

func (f modelFunc) Generate(ctx context.Context, req Request) (*Response, error) { return f(ctx, req) }

// TestScan checks a structured response is decoded and numbers rounded.
func TestScan(t *testing.T) {
	m := &fakeModel{fn: text("```json\n" + `{"workoutName":"Push Day","exercises":[{"name":"Bench Press","setsCount":4,"repsSuggested":8.0},{"name":" ","setsCount":3},{"name":"Dips","setsCount":2.6,"repsSuggested":12}]}` + "\n```")}
	c := New(m, nil, Options{})
	scan, err := c.ScanWorkout(context.Background(), []byte("png"), "")
	if err != nil {
		t.Fatalf("ScanWorkout: %v", err)
	}
	if scan.WorkoutName != "Push Day" || len(scan.Exercises) != 2 {
		t.Fatalf("scan = %+v", scan)
	}
	if e := scan.Exercises[0]; e.Name != "Bench Press" || e.SetsCount != 4 || e.RepsSuggested != 8 {
		t.Errorf("exercise 0 = %+v", e)
	}
	if e := scan.Exercises[1]; e.Name != "Dips" || e.SetsCount != 3 {
		t.Errorf("exercise 1 = %+v", e)
	}
	req := m.calls[0]
	if req.Schema == nil || req.ImageMIME != "image/png" || string(req.Image) != "png" {
		t.Errorf("request = %+v", req)
	}
}

// TestScanFailures checks every failure mode maps to ErrScanFailed.
func TestScanFailures(t *testing.T) {
	tests := []struct {
		name  string
		image []byte
		fn    func(Request) (*Response, error)
	}{
		{"empty image", nil, text(`{}`)},
		{"model error", []byte("x"), failing},
		{"not json", []byte("x"), text("I see a gym.")},
		{"no exercises", []byte("x"), text(`{"workoutName":"Rest","exercises":[]}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&fakeModel{fn: tt.fn}, nil, Options{})
			scan, err := c.ScanWorkout(context.Background(), tt.image, "image/jpeg")
			if !errors.Is(err, ErrScanFailed) || scan != nil {
				t.Errorf("ScanWorkout = %v, %v; want ErrScanFailed", scan, err)
			}
		})
	}
}

// TestTracker checks a newer request supersedes an older one per key.
func TestTracker(t *testing.T) {
	tr := NewTracker()
	first := tr.Begin("squat")
	other := tr.Begin("row")
	if !first.Current() {
		t.Error("first ticket not current before a newer request")
	}
	second := tr.Begin("squat")
	if first.Current() {
		t.Error("first ticket still current after a newer request")
	}
	if !second.Current() || !other.Current() {
		t.Error("latest tickets should be current")
	}
}

// TestTrackerRelease checks released keys are forgotten and a superseded
// ticket stays stale after its key is reused.
func TestTrackerRelease(t *testing.T) {
	tr := NewTracker()
	old := tr.Begin("client-a")
	latest := tr.Begin("client-a")
	if !latest.Release() {
		t.Error("latest ticket not current at release")
	}
	if tr.Len() != 0 {
		t.Errorf("Len = %d after release, want 0", tr.Len())
	}

	reused := tr.Begin("client-a")
	if old.Release() {
		t.Error("superseded ticket reported current after key reuse")
	}
	if !reused.Current() {
		t.Error("new ticket should be current")
	}

	for i := 0; i < 100; i++ {
		tr.Begin(fmt.Sprintf("client-%d", i)).Release()
	}
	if tr.Len() != 1 {
		t.Errorf("Len = %d, want 1 (only client-a in flight)", tr.Len())
	}
}

// TestStripFences checks fence removal.
func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"{}":                    "{}",
		"```json\n{}\n```":      "{}",
		"```\n{\"a\":1}\n```\n": `{"a":1}`,
	}
	for in, want := range tests {
		if got := stripFences(in); got != want {
			t.Errorf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
