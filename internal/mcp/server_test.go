package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/titanlift/internal/draft"
	"github.com/meltforce/titanlift/internal/history"
	"github.com/meltforce/titanlift/internal/kv"
	"github.com/meltforce/titanlift/internal/models"
	"github.com/meltforce/titanlift/internal/plates"
	"github.com/meltforce/titanlift/internal/state"
	"github.com/meltforce/titanlift/internal/timer"
	"github.com/meltforce/titanlift/internal/workout"
)

// fixedNow is a Monday evening.
var fixedNow = time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)

type fakeSource struct {
	sessions  []models.WorkoutSession
	templates []models.WorkoutTemplate
	exercises []models.Exercise
	active    *workout.ActiveSession
	err       error
}

func (f *fakeSource) Sessions(context.Context) ([]models.WorkoutSession, error) {
	return f.sessions, f.err
}

func (f *fakeSource) Exercises(context.Context) ([]models.Exercise, error) {
	return f.exercises, f.err
}

func (f *fakeSource) Templates(context.Context) ([]models.WorkoutTemplate, error) {
	return f.templates, f.err
}

func (f *fakeSource) ActiveWorkout(context.Context) (*workout.ActiveSession, error) {
	return f.active, f.err
}

func session(id, date, exercise string, weight float64) models.WorkoutSession {
	return models.WorkoutSession{
		ID:         id,
		Date:       date,
		DurationMs: 3_600_000,
		Exercises: []models.ActiveExercise{{
			ExerciseID: exercise,
			Name:       models.DefaultExercises[0].Name,
			Sets: []models.WorkoutSet{
				{Reps: 5, Weight: weight, Completed: true},
				{Reps: 5, Weight: weight + 10, Completed: false},
			},
		}},
	}
}

func newTestHandlers(ds DataSource) *handlers {
	h := newHandlers(ds, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return fixedNow }
	return h
}

func callTool(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

// resultJSON decodes the text content of a tool result into v.
func resultJSON(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool returned error: %+v", res.Content)
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want TextContent", res.Content[0])
	}
	if err := json.Unmarshal([]byte(text.Text), v); err != nil {
		t.Fatalf("decode %q: %v", text.Text, err)
	}
}

// TestDefaultTimeRange verifies time range defaults (last 30 days) and parsing.
func TestDefaultTimeRange(t *testing.T) {
	// Both empty → defaults to last 30 days
	start, end, err := defaultTimeRange("", "", fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !end.Equal(fixedNow) || !start.Equal(fixedNow.AddDate(0, 0, -30)) {
		t.Errorf("default range = %v..%v", start, end)
	}

	// Explicit dates, end is inclusive
	start, end, err = defaultTimeRange("2026-01-01", "2026-01-31", fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
	if want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}

	// RFC3339
	start, _, err = defaultTimeRange("2026-06-15T10:30:00Z", "", fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}

	// Invalid
	if _, _, err = defaultTimeRange("not-a-date", "", fixedNow); err == nil {
		t.Error("expected error for invalid date")
	}
}

// TestGetSessionsFilters verifies range, exercise and limit filtering.
func TestGetSessionsFilters(t *testing.T) {
	ds := &fakeSource{sessions: []models.WorkoutSession{
		session("c", "2026-10-18T17:00:00Z", "1", 80),
		session("b", "2026-10-12T17:00:00Z", "1", 75),
		session("a", "2026-08-01T17:00:00Z", "1", 70),
		{ID: "bad", Date: "yesterday"},
	}}
	h := newTestHandlers(ds)

	tests := []struct {
		name string
		args map[string]any
		want []string
	}{
		{"default range", nil, []string{"c", "b"}},
		{"explicit range", map[string]any{"start": "2026-07-01", "end": "2026-10-12"}, []string{"b", "a"}},
		{"limit", map[string]any{"start": "2026-01-01", "limit": float64(1)}, []string{"c"}},
		{"exercise match", map[string]any{"exercise": "bench"}, []string{"c", "b"}},
		{"exercise miss", map[string]any{"exercise": "squat"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.getSessions(context.Background(), callTool(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			var got struct {
				Sessions []models.WorkoutSession `json:"sessions"`
				Count    int                     `json:"count"`
			}
			resultJSON(t, res, &got)
			if got.Count != len(tt.want) || len(got.Sessions) != len(tt.want) {
				t.Fatalf("count = %d, sessions = %d, want %d", got.Count, len(got.Sessions), len(tt.want))
			}
			for i, id := range tt.want {
				if got.Sessions[i].ID != id {
					t.Errorf("sessions[%d] = %s, want %s", i, got.Sessions[i].ID, id)
				}
			}
		})
	}
}

// TestGetSessionsInvalidRange verifies a bad date is reported as a tool error.
func TestGetSessionsInvalidRange(t *testing.T) {
	h := newTestHandlers(&fakeSource{})
	res, err := h.getSessions(context.Background(), callTool(map[string]any{"start": "soon"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected tool error")
	}
}

// TestGetPersonalRecords verifies only completed sets count and the filter
// applies to exercise names.
func TestGetPersonalRecords(t *testing.T) {
	ds := &fakeSource{sessions: []models.WorkoutSession{
		session("b", "2026-10-18T17:00:00Z", "1", 80),
		session("a", "2026-10-11T17:00:00Z", "1", 85),
	}}
	h := newTestHandlers(ds)

	res, err := h.getPersonalRecords(context.Background(), callTool(nil))
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Records []models.PersonalRecord `json:"records"`
	}
	resultJSON(t, res, &got)
	if len(got.Records) != 1 || got.Records[0].Weight != 85 || got.Records[0].Date != "2026-10-11T17:00:00Z" {
		t.Errorf("records = %+v", got.Records)
	}

	res, err = h.getPersonalRecords(context.Background(), callTool(map[string]any{"exercise": "row"}))
	if err != nil {
		t.Fatal(err)
	}
	got.Records = nil
	resultJSON(t, res, &got)
	if len(got.Records) != 0 {
		t.Errorf("filtered records = %+v, want none", got.Records)
	}
}

// TestGetTrainingStats verifies totals cover only sessions in range.
func TestGetTrainingStats(t *testing.T) {
	ds := &fakeSource{sessions: []models.WorkoutSession{
		session("b", "2026-10-19T07:00:00Z", "1", 100),
		session("a", "2026-01-05T17:00:00Z", "1", 50),
	}}
	h := newTestHandlers(ds)

	res, err := h.getTrainingStats(context.Background(), callTool(nil))
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Stats history.Stats `json:"stats"`
	}
	resultJSON(t, res, &got)
	if got.Stats.TotalSessions != 1 || got.Stats.TotalSets != 1 || got.Stats.TotalVolume != 500 {
		t.Errorf("stats = %+v", got.Stats)
	}
	if !got.Stats.Week[0].Active {
		t.Error("Monday should be active")
	}
}

// TestCalculatePlates verifies the default bar, a custom bar and argument
// validation.
func TestCalculatePlates(t *testing.T) {
	h := newTestHandlers(&fakeSource{})

	res, err := h.calculatePlates(context.Background(), callTool(map[string]any{"weight": float64(100)}))
	if err != nil {
		t.Fatal(err)
	}
	var load plates.Load
	resultJSON(t, res, &load)
	if load.Bar != 20 || len(load.PerSide) != 2 || load.PerSide[0] != 25 || load.PerSide[1] != 15 {
		t.Errorf("load = %+v", load)
	}

	res, err = h.calculatePlates(context.Background(), callTool(map[string]any{"weight": float64(60), "bar": float64(10)}))
	if err != nil {
		t.Fatal(err)
	}
	resultJSON(t, res, &load)
	if load.Bar != 10 || len(load.PerSide) != 1 || load.PerSide[0] != 25 {
		t.Errorf("load = %+v", load)
	}

	for _, args := range []map[string]any{
		nil,
		{"weight": float64(-5)},
		{"weight": math.Inf(1)},
		{"weight": float64(100), "bar": math.NaN()},
	} {
		res, err := h.calculatePlates(context.Background(), callTool(args))
		if err != nil {
			t.Fatal(err)
		}
		if !res.IsError {
			t.Errorf("args %v: expected tool error", args)
		}
	}
}

// TestListTemplatesResolvesNames verifies exercise IDs become names and
// unknown IDs are skipped.
func TestListTemplatesResolvesNames(t *testing.T) {
	ds := &fakeSource{
		exercises: models.SeedExercises(),
		templates: []models.WorkoutTemplate{{ID: "t", Name: "Test", Exercises: []string{"3", "missing", "1"}}},
	}
	h := newTestHandlers(ds)

	res, err := h.listTemplates(context.Background(), callTool(nil))
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Templates []templateView `json:"templates"`
	}
	resultJSON(t, res, &got)
	if len(got.Templates) != 1 {
		t.Fatalf("templates = %+v", got.Templates)
	}
	ex := got.Templates[0].Exercises
	if len(ex) != 2 || ex[0] != "Deadlift" || ex[1] != "Bench Press" {
		t.Errorf("exercises = %v", ex)
	}
}

// TestToolQueryError verifies data source failures become tool errors, not
// protocol errors.
func TestToolQueryError(t *testing.T) {
	h := newTestHandlers(&fakeSource{err: errors.New("boom")})
	tools := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"get_sessions":         h.getSessions,
		"get_personal_records": h.getPersonalRecords,
		"get_training_stats":   h.getTrainingStats,
		"get_active_workout":   h.getActiveWorkout,
		"list_templates":       h.listTemplates,
	}
	for name, fn := range tools {
		res, err := fn(context.Background(), callTool(nil))
		if err != nil {
			t.Errorf("%s: err = %v", name, err)
			continue
		}
		if !res.IsError {
			t.Errorf("%s: expected tool error", name)
		}
	}
}

func newLocal(t *testing.T) (*Local, *workout.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := state.New(kv.NewMemory(), "", logger)
	svc := workout.New(workout.Deps{
		State:     st,
		Drafts:    draft.NewStore(st, logger),
		Scheduler: draft.NewScheduler(time.Hour, logger),
		Log:       history.NewLog(st, logger),
		Tracker:   timer.NewTracker(st, time.Now),
		Rest:      timer.NewRest(st, time.Now),
		Logger:    logger,
	})
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return NewLocal(svc), svc
}

// TestLocalActiveWorkout verifies no session maps to nil and a started one
// is returned by the tool and the resource.
func TestLocalActiveWorkout(t *testing.T) {
	ctx := context.Background()
	local, svc := newLocal(t)
	h := newTestHandlers(local)

	active, err := local.ActiveWorkout(ctx)
	if err != nil || active != nil {
		t.Fatalf("ActiveWorkout = %v, %v; want nil, nil", active, err)
	}
	res, err := h.getActiveWorkout(ctx, callTool(nil))
	if err != nil {
		t.Fatal(err)
	}
	var idle struct {
		Active bool `json:"active"`
	}
	resultJSON(t, res, &idle)
	if idle.Active {
		t.Error("active = true with no session")
	}

	if _, err := svc.Start(ctx, "legs_day"); err != nil {
		t.Fatal(err)
	}
	res, err = h.getActiveWorkout(ctx, callTool(nil))
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Active  bool                  `json:"active"`
		Session workout.ActiveSession `json:"session"`
	}
	resultJSON(t, res, &got)
	if !got.Active || got.Session.TemplateID != "legs_day" || len(got.Session.Exercises) != 3 {
		t.Errorf("active workout = %+v", got)
	}

	var req mcp.ReadResourceRequest
	req.Params.URI = resActiveWorkout.URI
	contents, err := h.activeWorkout(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents)
	var fromResource workout.ActiveSession
	if err := json.Unmarshal([]byte(text.Text), &fromResource); err != nil {
		t.Fatal(err)
	}
	if text.URI != "titanlift://active_workout" || fromResource.TemplateName != "Full Legs" {
		t.Errorf("resource = %+v", text)
	}
}

// TestLocalTemplatesResource verifies the templates resource lists the seeded
// templates by exercise name.
func TestLocalTemplatesResource(t *testing.T) {
	local, _ := newLocal(t)
	h := newTestHandlers(local)

	var req mcp.ReadResourceRequest
	req.Params.URI = resTemplates.URI
	contents, err := h.templates(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	var views []templateView
	if err := json.Unmarshal([]byte(contents[0].(mcp.TextResourceContents).Text), &views); err != nil {
		t.Fatal(err)
	}
	if len(views) != len(models.DefaultTemplates) {
		t.Fatalf("templates = %d, want %d", len(views), len(models.DefaultTemplates))
	}
	if views[2].ID != "legs_day" || views[2].Exercises[0] != "Back Squat" {
		t.Errorf("legs_day = %+v", views[2])
	}
}

// TestNewRegistersEverything verifies New builds a server without panicking.
func TestNewRegistersEverything(t *testing.T) {
	local, _ := newLocal(t)
	if s := New(local, "test", nil); s == nil {
		t.Fatal("New returned nil")
	}
}
