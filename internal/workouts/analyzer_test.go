package workouts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzer_MaxPerDay(t *testing.T) {
	store := newTestStore(t)
	analyzer := NewAnalyzer(store)

	assert.Empty(t, analyzer.MaxPerDay())

	day1 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	// three squat sets on day 1, the heaviest one wins
	_, err := store.Add("Squats", 80, day1.Add(8*time.Hour))
	require.NoError(t, err)
	_, err = store.Add("Squats", 85, day1.Add(8*time.Hour+10*time.Minute))
	require.NoError(t, err)
	_, err = store.Add("Squats", 82.5, day1.Add(8*time.Hour+20*time.Minute))
	require.NoError(t, err)

	_, err = store.Add("Pulldown", 60, day1.Add(9*time.Hour))
	require.NoError(t, err)
	_, err = store.Add("Squats", 87.5, day2.Add(8*time.Hour))
	require.NoError(t, err)

	entries := analyzer.MaxPerDay()
	require.Len(t, entries, 3)

	// sorted by day, then exercise
	assert.Equal(t, "Pulldown", entries[0].Exercise)
	assert.True(t, entries[0].Day.Equal(day1))
	assert.Equal(t, 60.0, entries[0].MaxWeight)

	assert.Equal(t, "Squats", entries[1].Exercise)
	assert.True(t, entries[1].Day.Equal(day1))
	assert.Equal(t, 85.0, entries[1].MaxWeight)

	assert.Equal(t, "Squats", entries[2].Exercise)
	assert.True(t, entries[2].Day.Equal(day2))
	assert.Equal(t, 87.5, entries[2].MaxWeight)
}

func TestAnalyzer_Progression(t *testing.T) {
	store := newTestStore(t)
	analyzer := NewAnalyzer(store)

	assert.Empty(t, analyzer.Progression("Squats"))

	day1 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	day3 := day1.Add(48 * time.Hour)

	// added out of chronological order on purpose
	_, err := store.Add("Squats", 85, day2.Add(8*time.Hour))
	require.NoError(t, err)
	_, err = store.Add("Squats", 80, day1.Add(8*time.Hour))
	require.NoError(t, err)
	_, err = store.Add("Squats", 82.5, day1.Add(9*time.Hour))
	require.NoError(t, err)
	_, err = store.Add("Squats", 90, day3.Add(8*time.Hour))
	require.NoError(t, err)

	// records of other exercises do not leak into the progression
	_, err = store.Add("Pulldown", 65, day1.Add(8*time.Hour))
	require.NoError(t, err)

	points := analyzer.Progression("Squats")
	require.Len(t, points, 3)

	assert.True(t, points[0].Day.Equal(day1))
	assert.Equal(t, 82.5, points[0].MaxWeight)
	assert.Equal(t, 2, points[0].Sets)

	assert.True(t, points[1].Day.Equal(day2))
	assert.Equal(t, 85.0, points[1].MaxWeight)
	assert.Equal(t, 1, points[1].Sets)

	assert.True(t, points[2].Day.Equal(day3))
	assert.Equal(t, 90.0, points[2].MaxWeight)
	assert.Equal(t, 1, points[2].Sets)
}
