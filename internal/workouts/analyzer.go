package workouts

import (
	"sort"
	"time"
)

// recordsLister is the part of the store the analyzer needs.
type recordsLister interface {
	List() []Record
	FilterByExercise(exercise string) []Record
}

// Analyzer produces the chart-feeding aggregations over the record store.
type Analyzer struct {
	records recordsLister
}

func NewAnalyzer(records recordsLister) *Analyzer {
	return &Analyzer{
		records: records,
	}
}

// MaxPerDayEntry is the heaviest set for one exercise on one day.
type MaxPerDayEntry struct {
	Exercise  string    `json:"exercise"`
	Day       time.Time `json:"day"`
	MaxWeight float64   `json:"maxWeight"`
}

// MaxPerDay groups all records by (exercise, day) and takes the maximum
// weight per group, deduplicating same-day multiple entries for charting.
// Entries are sorted by day, then exercise.
func (a *Analyzer) MaxPerDay() []MaxPerDayEntry {
	type group struct {
		exercise string
		day      time.Time
	}

	maxWeights := make(map[group]float64)
	for _, r := range a.records.List() {
		g := group{
			exercise: r.Exercise,
			day:      r.Date.Truncate(24 * time.Hour),
		}
		if r.Weight > maxWeights[g] {
			maxWeights[g] = r.Weight
		}
	}

	entries := make([]MaxPerDayEntry, 0, len(maxWeights))
	for g, maxWeight := range maxWeights {
		entries = append(entries, MaxPerDayEntry{
			Exercise:  g.exercise,
			Day:       g.day,
			MaxWeight: maxWeight,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Day.Equal(entries[j].Day) {
			return entries[i].Day.Before(entries[j].Day)
		}
		return entries[i].Exercise < entries[j].Exercise
	})

	return entries
}

// ProgressionPoint is one chart point: the heaviest set of a day, plus the
// number of sets logged that day.
type ProgressionPoint struct {
	Day       time.Time `json:"day"`
	MaxWeight float64   `json:"maxWeight"`
	Sets      int       `json:"sets"`
}

// Progression returns the weight progression for one exercise: one point per
// day, chronologically sorted.
func (a *Analyzer) Progression(exercise string) []ProgressionPoint {
	day2records := make(map[time.Time][]Record)
	for _, r := range a.records.FilterByExercise(exercise) {
		day := r.Date.Truncate(24 * time.Hour)
		day2records[day] = append(day2records[day], r)
	}

	points := make([]ProgressionPoint, 0, len(day2records))
	for day, dayRecords := range day2records {
		maxWeight := 0.0
		for _, r := range dayRecords {
			if r.Weight > maxWeight {
				maxWeight = r.Weight
			}
		}
		points = append(points, ProgressionPoint{
			Day:       day,
			MaxWeight: maxWeight,
			Sets:      len(dayRecords),
		})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Day.Before(points[j].Day)
	})

	return points
}
