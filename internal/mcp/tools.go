package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/titanlift/internal/history"
	"github.com/meltforce/titanlift/internal/models"
	"github.com/meltforce/titanlift/internal/plates"
)

// defaultDays is the lookback used when a tool gets no start date.
const defaultDays = 30

// defaultTimeRange returns start/end defaulting to the last defaultDays days.
func defaultTimeRange(startStr, endStr string, now time.Time) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if len(endStr) == len(time.DateOnly) {
			// A bare date includes the whole day.
			end = end.AddDate(0, 0, 1)
		}
	} else {
		end = now
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -defaultDays)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.DateOnly, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// inRange keeps sessions dated in [start, end). Sessions with an
// unparseable date are dropped.
func inRange(sessions []models.WorkoutSession, start, end time.Time) []models.WorkoutSession {
	var out []models.WorkoutSession
	for _, s := range sessions {
		d, err := time.Parse(time.RFC3339, s.Date)
		if err != nil || d.Before(start) || !d.Before(end) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// matchesExercise reports whether filter is a case-insensitive substring of
// name. An empty filter matches everything.
func matchesExercise(name, filter string) bool {
	return filter == "" || strings.Contains(strings.ToLower(name), strings.ToLower(filter))
}

// --- Tool definitions ---

var toolGetSessions = mcp.NewTool("get_sessions",
	mcp.WithDescription("List logged workout sessions, newest first, with every exercise and set. Optionally filter to sessions containing an exercise."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days before end.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD, inclusive). Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Only sessions with an exercise whose name contains this text (case-insensitive)")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of sessions to return. Defaults to 20.")),
)

var toolGetPersonalRecords = mcp.NewTool("get_personal_records",
	mcp.WithDescription("Heaviest completed set per exercise across the whole session log."),
	mcp.WithString("exercise", mcp.Description("Only exercises whose name contains this text (case-insensitive)")),
)

var toolGetTrainingStats = mcp.NewTool("get_training_stats",
	mcp.WithDescription("Totals over a date range: session count, completed sets, volume (kg x reps), total duration, recent session durations and which days of the current week had a workout."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 30 days before end.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
)

var toolCalculatePlates = mcp.NewTool("calculate_plates",
	mcp.WithDescription("Plates to load on each side of a barbell for a target total weight, heaviest first. Uses 25/20/15/10/5/2/1 kg plates."),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description("Target total weight in kg, bar included")),
	mcp.WithNumber("bar", mcp.Description("Bar weight in kg. Defaults to 20.")),
)

var toolGetActiveWorkout = mcp.NewTool("get_active_workout",
	mcp.WithDescription("The workout currently in progress, if any, with its sets and the gym timer."),
)

var toolListTemplates = mcp.NewTool("list_templates",
	mcp.WithDescription("Workout templates with their exercises in order."),
)

// --- Tool handlers ---

const defaultSessionLimit = 20

func (h *handlers) getSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), h.now())
	if err != nil {
		return mcp.NewToolResultError("invalid time range: " + err.Error()), nil
	}
	limit := req.GetInt("limit", defaultSessionLimit)
	if limit <= 0 {
		limit = defaultSessionLimit
	}
	exercise := req.GetString("exercise", "")

	sessions, err := h.ds.Sessions(ctx)
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	out := []models.WorkoutSession{}
	for _, s := range inRange(sessions, start, end) {
		if exercise != "" && !sessionHas(s, exercise) {
			continue
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return mcp.NewToolResultJSON(map[string]any{"sessions": out, "count": len(out)})
}

func sessionHas(s models.WorkoutSession, filter string) bool {
	for _, ex := range s.Exercises {
		if matchesExercise(ex.Name, filter) {
			return true
		}
	}
	return false
}

func (h *handlers) getPersonalRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := h.ds.Sessions(ctx)
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	exercise := req.GetString("exercise", "")
	records := []models.PersonalRecord{}
	for _, pr := range history.PersonalRecords(sessions) {
		if matchesExercise(pr.ExerciseName, exercise) {
			records = append(records, pr)
		}
	}
	return mcp.NewToolResultJSON(map[string]any{"records": records})
}

func (h *handlers) getTrainingStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	now := h.now()
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), now)
	if err != nil {
		return mcp.NewToolResultError("invalid time range: " + err.Error()), nil
	}

	sessions, err := h.ds.Sessions(ctx)
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	stats := history.Summarize(inRange(sessions, start, end), now)
	return mcp.NewToolResultJSON(map[string]any{
		"start": start.Format(time.RFC3339),
		"end":   end.Format(time.RFC3339),
		"stats": stats,
	})
}

func (h *handlers) calculatePlates(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	weight, err := req.RequireFloat("weight")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bar := req.GetFloat("bar", plates.DefaultBar)
	if err := plates.Check(weight, bar); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultJSON(plates.Calculate(weight, bar, plates.DefaultDenominations))
}

func (h *handlers) getActiveWorkout(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := h.ds.ActiveWorkout(ctx)
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if session == nil {
		return mcp.NewToolResultJSON(map[string]any{"active": false})
	}
	return mcp.NewToolResultJSON(map[string]any{"active": true, "session": session})
}

// templateView is a template with its exercise IDs resolved to names.
type templateView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Exercises   []string `json:"exercises"`
}

func (h *handlers) templateViews(ctx context.Context) ([]templateView, error) {
	templates, err := h.ds.Templates(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := h.ds.Exercises(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(catalog))
	for _, e := range catalog {
		names[e.ID] = e.Name
	}

	out := make([]templateView, 0, len(templates))
	for _, t := range templates {
		v := templateView{ID: t.ID, Name: t.Name, Description: t.Description, Exercises: []string{}}
		for _, id := range t.Exercises {
			// Exercises deleted from the catalog are skipped, as when a
			// session starts.
			if name, ok := names[id]; ok {
				v.Exercises = append(v.Exercises, name)
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func (h *handlers) listTemplates(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	views, err := h.templateViews(ctx)
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return mcp.NewToolResultJSON(map[string]any{"templates": views})
}
