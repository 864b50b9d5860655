package models

// Exercise is a catalog entry. Seeded from DefaultExercises, extended by the
// user or by a workout scan.
type Exercise struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Instructions string `json:"instructions,omitempty"`
}

// WorkoutTemplate is a named plan referencing exercises by ID, in order.
type WorkoutTemplate struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Exercises   []string `json:"exercises"`
}

// WorkoutSet is a single set inside an ActiveExercise.
type WorkoutSet struct {
	Reps      int     `json:"reps"`
	Weight    float64 `json:"weight"`
	Completed bool    `json:"completed"`
}

// ActiveExercise is one exercise's state during a session. Name is a snapshot
// taken when the session started and may be edited independently of the catalog.
type ActiveExercise struct {
	ExerciseID string       `json:"exerciseId"`
	Name       string       `json:"name"`
	Sets       []WorkoutSet `json:"sets"`
	Notes      string       `json:"notes,omitempty"`
}

// WorkoutSession is a completed workout. Never mutated once logged.
type WorkoutSession struct {
	ID           string           `json:"id"`
	TemplateID   string           `json:"templateId"`
	TemplateName string           `json:"templateName"`
	Date         string           `json:"date"`
	Exercises    []ActiveExercise `json:"exercises"`
	DurationMs   int64            `json:"durationMs"`
	GeneralNotes string           `json:"generalNotes,omitempty"`
}

// MemorySet is the part of a set remembered between sessions.
type MemorySet struct {
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight"`
}

// ExerciseMemory is the last-used configuration of an exercise, used to
// pre-populate the next session regardless of template.
type ExerciseMemory struct {
	Sets  []MemorySet `json:"sets"`
	Notes string      `json:"notes,omitempty"`
}

// PersonalRecord is the heaviest completed set logged for an exercise.
type PersonalRecord struct {
	ExerciseID   string  `json:"exerciseId"`
	ExerciseName string  `json:"exerciseName"`
	Weight       float64 `json:"weight"`
	Reps         int     `json:"reps"`
	Date         string  `json:"date"`
}

// TimerState is the persisted gym-time stopwatch. StartMs is a wall-clock
// Unix timestamp in milliseconds so a restarted process resumes correctly.
type TimerState struct {
	StartMs   *int64 `json:"startMs,omitempty"`
	ElapsedMs int64  `json:"elapsedMs"`
	Running   bool   `json:"running"`
}

// CloneExercises deep-copies a slice of ActiveExercise.
func CloneExercises(in []ActiveExercise) []ActiveExercise {
	if in == nil {
		return nil
	}
	out := make([]ActiveExercise, len(in))
	for i, ex := range in {
		out[i] = ex
		out[i].Sets = append([]WorkoutSet(nil), ex.Sets...)
	}
	return out
}

// ScannedExercise is one exercise read from a workout photo.
type ScannedExercise struct {
	Name          string `json:"name"`
	SetsCount     int    `json:"setsCount"`
	RepsSuggested int    `json:"repsSuggested"`
}

// ScannedWorkout is the structured result of a workout photo scan.
type ScannedWorkout struct {
	WorkoutName string            `json:"workoutName"`
	Exercises   []ScannedExercise `json:"exercises"`
}
