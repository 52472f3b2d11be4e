package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKey_UsesLocation(t *testing.T) {
	almaty := time.FixedZone("UTC+5", 5*60*60)
	// 21:30 UTC is already the next day in UTC+5.
	instant := time.Date(2024, 3, 9, 21, 30, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-09", DayKey(instant, time.UTC))
	assert.Equal(t, "2024-03-10", DayKey(instant, almaty))
}

func TestIsSameDay(t *testing.T) {
	loc := time.UTC
	a := time.Date(2024, 1, 1, 0, 0, 1, 0, loc)
	b := time.Date(2024, 1, 1, 23, 59, 59, 0, loc)
	c := time.Date(2024, 1, 2, 0, 0, 0, 0, loc)

	assert.True(t, IsSameDay(a, b, loc))
	assert.False(t, IsSameDay(b, c, loc))
}

func TestDaysBetween(t *testing.T) {
	loc := time.UTC
	a := time.Date(2024, 2, 27, 23, 0, 0, 0, loc)
	b := time.Date(2024, 3, 1, 1, 0, 0, 0, loc)

	assert.Equal(t, 3, DaysBetween(a, b, loc))
	assert.Equal(t, -3, DaysBetween(b, a, loc))
	assert.Equal(t, 0, DaysBetween(a, a, loc))
}

func TestFixedClock(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	instant := time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC)

	clock := NewFixedClock(instant, loc)

	assert.Equal(t, loc, clock.Location())
	assert.True(t, clock.Now().Equal(instant))
	assert.Equal(t, "2024-04-30", DayKey(clock.Now(), clock.Location()))
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = LoadLocation("Not/AZone")
	assert.Error(t, err)
	assert.Equal(t, time.UTC, loc)
}
