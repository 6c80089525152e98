package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the length of the wall-clock day in minutes.
const MinutesPerDay = 24 * 60

// DayLayout is the calendar-day format used on the command line.
const DayLayout = "2006-01-02"

// TimeToMinutes converts a wall-clock "HH:mm" string into minutes past
// midnight. There is no timezone handling.
func TimeToMinutes(hhmm string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return 0, fmt.Errorf("time %q: expected HH:mm", hhmm)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("time %q: invalid hours", hhmm)
	}
	mins, err := strconv.Atoi(m)
	if err != nil || mins < 0 || mins > 59 {
		return 0, fmt.Errorf("time %q: invalid minutes", hhmm)
	}
	return hours*60 + mins, nil
}

// MinutesToTime is the inverse of TimeToMinutes. Values are not wrapped at
// midnight, so 1500 renders as "25:00".
func MinutesToTime(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%02d:%02d", sign, minutes/60, minutes%60)
}

// ParseDay parses a YYYY-MM-DD day in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing day %q: %w", s, err)
	}
	return d, nil
}

// SameDay reports whether t falls on the calendar day of day, in day's location.
func SameDay(t, day time.Time) bool {
	t = t.In(day.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
