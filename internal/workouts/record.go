package workouts

import "time"

// DateTimeFormat is the second-resolution timestamp format used in the
// persisted records document and the CSV export.
const DateTimeFormat = "2006-01-02 15:04:05"

type Record struct {
	ID       int       `json:"id"`
	Date     time.Time `json:"date"`
	Exercise string    `json:"exercise"`
	Weight   float64   `json:"weight"`
}

// ExerciseCatalog is the fixed list of exercises a record can be logged for.
var ExerciseCatalog = []string{
	"Incline Smith Machine Bench Press",
	"Machine Pec Fly",
	"Smith Machine Shoulder Press",
	"Machine Lat Row",
	"Machine Upper Back Row",
	"Pulldown",
	"Carter Extensions",
	"Preacher Curls",
	"Machine Lateral Raise",
	"S/A Standing Rear Delt Fly",
	"Squats",
	"Lying Hamstring Curl",
	"Standing Hamstring Curl",
	"Abductors Machine",
	"Leg Extensions",
	"Calf Raises",
	"Standing Traps Shrugs",
}

var knownExercises = func() map[string]bool {
	known := make(map[string]bool, len(ExerciseCatalog))
	for _, e := range ExerciseCatalog {
		known[e] = true
	}
	return known
}()

func KnownExercise(exercise string) bool {
	return knownExercises[exercise]
}
