package odds

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	// MaxWeek is the last regular-season week
	MaxWeek = 18

	timestampLayout = "20060102_150405"
)

// Pacific is the zone used for week boundaries and day filters
var Pacific = mustLoad("America/Los_Angeles")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NormalizeDay lowercases a day filter and checks it names a weekday.
// An empty filter is valid and means the whole week.
func NormalizeDay(day string) (string, error) {
	day = strings.ToLower(strings.TrimSpace(day))
	if day == "" {
		return "", nil
	}
	if _, ok := weekdays[day]; !ok {
		return "", fmt.Errorf("invalid day filter %q: must be a weekday name", day)
	}
	return day, nil
}

// Calendar maps instants onto NFL weeks. Weeks run Thursday to Wednesday,
// Pacific time, starting from the season opener.
type Calendar struct {
	Season int
	Start  time.Time
}

// DefaultCalendar returns the calendar for the 2025 season (opener Sept 4)
func DefaultCalendar() Calendar {
	return Calendar{
		Season: 2025,
		Start:  time.Date(2025, time.September, 4, 0, 0, 0, 0, Pacific),
	}
}

// wallDays counts whole wall-clock days between the opener and t
func (c Calendar) wallDays(t time.Time) int {
	t = t.In(Pacific)
	s := c.Start.In(Pacific)
	tw := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	sw := time.Date(s.Year(), s.Month(), s.Day(), s.Hour(), s.Minute(), s.Second(), s.Nanosecond(), time.UTC)
	return int(tw.Sub(sw) / (24 * time.Hour))
}

// Week returns the week number containing t, clamped to 1..MaxWeek
func (c Calendar) Week(t time.Time) int {
	if t.Before(c.Start) {
		return 1
	}
	return min(c.wallDays(t)/7+1, MaxWeek)
}

// Bounds returns the Thursday 00:00 to Wednesday 23:59 window containing t
func (c Calendar) Bounds(t time.Time) (time.Time, time.Time) {
	s := c.Start.In(Pacific)
	weeks := 0
	if !t.Before(c.Start) {
		weeks = c.wallDays(t) / 7
	}
	start := time.Date(s.Year(), s.Month(), s.Day()+7*weeks, s.Hour(), s.Minute(), 0, 0, Pacific)
	end := time.Date(start.Year(), start.Month(), start.Day()+6, start.Hour()+23, start.Minute()+59, 0, 0, Pacific)
	return start, end
}

// Weekday returns the lowercase Pacific weekday of an ISO 8601 kickoff
func Weekday(gameTime string) (string, error) {
	t, err := time.Parse(time.RFC3339, gameTime)
	if err != nil {
		return "", fmt.Errorf("failed to parse game time %q: %w", gameTime, err)
	}
	return strings.ToLower(t.In(Pacific).Weekday().String()), nil
}
