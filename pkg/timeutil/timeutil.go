// Package timeutil provides calendar helpers for the bot's configured timezone.
// Streak days, reset markers and cron schedules all agree on one location,
// so every "which day is it" question goes through this package.
package timeutil

import (
	"fmt"
	"time"
)

// DayLayout is the format of day keys ("2024-03-09").
const DayLayout = "2006-01-02"

// Clock is a timezone-bound clock.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock creates a Clock for loc. A nil location means UTC.
func NewClock(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, now: time.Now}
}

// NewFixedClock creates a Clock that always returns t. Used in tests and
// for replaying a reset for a given instant.
func NewFixedClock(t time.Time, loc *time.Location) *Clock {
	c := NewClock(loc)
	c.now = func() time.Time { return t }
	return c
}

// LoadLocation resolves an IANA zone name, falling back to UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, fmt.Errorf("timeutil: unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// Location returns the clock's location.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Now returns the current time in the clock's location.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// StartOfDay returns 00:00:00 of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DayKey returns the calendar day of t in loc as "YYYY-MM-DD".
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// IsSameDay reports whether t1 and t2 fall on the same calendar day in loc.
func IsSameDay(t1, t2 time.Time, loc *time.Location) bool {
	return DayKey(t1, loc) == DayKey(t2, loc)
}

// DaysBetween returns the number of calendar days from t1 to t2 in loc.
func DaysBetween(t1, t2 time.Time, loc *time.Location) int {
	d1 := StartOfDay(t1, loc)
	d2 := StartOfDay(t2, loc)
	days := 0
	if d2.Before(d1) {
		for d := d2; d.Before(d1); d = d.AddDate(0, 0, 1) {
			days--
		}
		return days
	}
	for d := d1; d.Before(d2); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}
