package history

import (
	"sort"
	"time"

	"github.com/meltforce/titanlift/internal/models"
)

// PersonalRecords returns, per exercise, the heaviest completed set with a
// positive weight. sessions is newest first, so on a tie the newest session
// wins. Results are sorted by exercise name.
func PersonalRecords(sessions []models.WorkoutSession) []models.PersonalRecord {
	best := make(map[string]models.PersonalRecord)
	for _, s := range sessions {
		for _, ex := range s.Exercises {
			for _, set := range ex.Sets {
				if !set.Completed || set.Weight <= 0 {
					continue
				}
				if cur, ok := best[ex.ExerciseID]; ok && set.Weight <= cur.Weight {
					continue
				}
				best[ex.ExerciseID] = models.PersonalRecord{
					ExerciseID:   ex.ExerciseID,
					ExerciseName: ex.Name,
					Weight:       set.Weight,
					Reps:         set.Reps,
					Date:         s.Date,
				}
			}
		}
	}

	out := make([]models.PersonalRecord, 0, len(best))
	for _, pr := range best {
		out = append(out, pr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExerciseName != out[j].ExerciseName {
			return out[i].ExerciseName < out[j].ExerciseName
		}
		return out[i].ExerciseID < out[j].ExerciseID
	})
	return out
}

// recentCount is how many sessions the duration chart shows.
const recentCount = 7

// DurationPoint is one bar of the recent-durations chart.
type DurationPoint struct {
	SessionID  string `json:"sessionId"`
	Date       string `json:"date"`
	DurationMs int64  `json:"durationMs"`
}

// WeekDay is one slot of the Monday-first week strip.
type WeekDay struct {
	Label  string `json:"label"`
	Date   string `json:"date"`
	Active bool   `json:"active"`
}

// Stats summarizes the session log.
type Stats struct {
	TotalSessions   int             `json:"totalSessions"`
	TotalSets       int             `json:"totalSets"`
	TotalVolume     float64         `json:"totalVolume"`
	TotalDurationMs int64           `json:"totalDurationMs"`
	Recent          []DurationPoint `json:"recent"`
	Week            []WeekDay       `json:"week"`
}

var weekLabels = [7]string{"M", "T", "W", "T", "F", "S", "S"}

// Summarize computes Stats for sessions (newest first) as of now. Volume is
// weight times reps over completed sets. Session dates that fail to parse
// count toward totals but not toward the week strip, and so do dates
// outside the current week.
func Summarize(sessions []models.WorkoutSession, now time.Time) Stats {
	st := Stats{TotalSessions: len(sessions)}

	for _, s := range sessions {
		st.TotalDurationMs += s.DurationMs
		for _, ex := range s.Exercises {
			for _, set := range ex.Sets {
				if !set.Completed {
					continue
				}
				st.TotalSets++
				st.TotalVolume += set.Weight * float64(set.Reps)
			}
		}
	}

	n := min(len(sessions), recentCount)
	st.Recent = make([]DurationPoint, 0, n)
	for i := n - 1; i >= 0; i-- {
		s := sessions[i]
		st.Recent = append(st.Recent, DurationPoint{SessionID: s.ID, Date: s.Date, DurationMs: s.DurationMs})
	}

	start := StartOfWeek(now)
	end := start.AddDate(0, 0, 7)
	st.Week = make([]WeekDay, 7)
	for i := range st.Week {
		st.Week[i] = WeekDay{Label: weekLabels[i], Date: start.AddDate(0, 0, i).Format(time.DateOnly)}
	}
	for _, s := range sessions {
		d, err := time.Parse(time.RFC3339, s.Date)
		if err != nil {
			continue
		}
		d = d.In(now.Location())
		if d.Before(start) || !d.Before(end) {
			continue
		}
		st.Week[weekdayIndex(d)].Active = true
	}
	return st
}

// StartOfWeek returns local midnight of the Monday on or before t.
func StartOfWeek(t time.Time) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -weekdayIndex(t))
}

// weekdayIndex maps Monday..Sunday to 0..6.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
