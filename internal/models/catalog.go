package models

// DefaultExercises is the built-in catalog used until the user edits it.
var DefaultExercises = []Exercise{
	{ID: "1", Name: "Bench Press", Category: "Chest"},
	{ID: "2", Name: "Back Squat", Category: "Legs"},
	{ID: "3", Name: "Deadlift", Category: "Back/Legs"},
	{ID: "4", Name: "Overhead Press", Category: "Shoulders"},
	{ID: "5", Name: "Bent-Over Row", Category: "Back"},
	{ID: "6", Name: "Barbell Curl", Category: "Biceps"},
	{ID: "7", Name: "Skull Crusher", Category: "Triceps"},
	{ID: "8", Name: "Leg Press 45", Category: "Legs"},
	{ID: "9", Name: "Wide-Grip Lat Pulldown", Category: "Back"},
	{ID: "10", Name: "Lateral Raise", Category: "Shoulders"},
}

// DefaultTemplates is the built-in set of plans used until the user edits them.
var DefaultTemplates = []WorkoutTemplate{
	{
		ID:          "chest_back",
		Name:        "Chest & Back",
		Description: "Big upper-body muscle groups.",
		Exercises:   []string{"1", "9", "5", "3"},
	},
	{
		ID:          "arms_shoulders",
		Name:        "Arms & Shoulders",
		Description: "Strength and definition for the upper limbs.",
		Exercises:   []string{"4", "10", "6", "7"},
	},
	{
		ID:          "legs_day",
		Name:        "Full Legs",
		Description: "Lower-body focused session.",
		Exercises:   []string{"2", "8", "3"},
	},
}

// SeedExercises returns a copy of DefaultExercises safe to mutate.
func SeedExercises() []Exercise {
	return append([]Exercise(nil), DefaultExercises...)
}

// SeedTemplates returns a deep copy of DefaultTemplates safe to mutate.
func SeedTemplates() []WorkoutTemplate {
	out := make([]WorkoutTemplate, len(DefaultTemplates))
	for i, t := range DefaultTemplates {
		out[i] = t
		out[i].Exercises = append([]string(nil), t.Exercises...)
	}
	return out
}

// FindExercise returns the catalog entry with the given ID.
func FindExercise(catalog []Exercise, id string) (Exercise, bool) {
	for _, e := range catalog {
		if e.ID == id {
			return e, true
		}
	}
	return Exercise{}, false
}
