package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the civil date format used at every boundary of the engine.
const DateLayout = "2006-01-02"

// DayStartUTC truncates t to midnight UTC of its UTC calendar day
func DayStartUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseCivilDate parses a YYYY-MM-DD date as midnight UTC
func ParseCivilDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatCivilDate formats t as YYYY-MM-DD in UTC
func FormatCivilDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

// ParseClock parses a UTC clock time written as "HH:MM", "H:MM" or "HHMM"
// and returns the offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty clock time")
	}

	var hh, mm string
	if i := strings.IndexByte(s, ':'); i >= 0 {
		hh, mm = s[:i], s[i+1:]
	} else {
		if len(s) != 4 {
			return 0, fmt.Errorf("invalid clock time %q", s)
		}
		hh, mm = s[:2], s[2:]
	}
	if len(mm) != 2 || len(hh) == 0 || len(hh) > 2 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}

	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}

	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// CombineDateClock joins a civil date and a UTC clock string into an instant.
func CombineDateClock(date time.Time, clock string) (time.Time, error) {
	if date.IsZero() {
		return time.Time{}, fmt.Errorf("missing date")
	}
	offset, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return DayStartUTC(date).Add(offset), nil
}

// DaysBetween returns the number of civil days from a to b (negative if b is earlier)
func DaysBetween(a, b time.Time) int {
	return int(DayStartUTC(b).Sub(DayStartUTC(a)).Hours() / 24)
}

// HoursToDuration converts decimal hours into a time.Duration
func HoursToDuration(hours float64) time.Duration {
	if hours <= 0 {
		return 0
	}
	return time.Duration(hours * float64(time.Hour))
}

// GetCurrentUnixTimestamp returns the current Unix timestamp in seconds
func GetCurrentUnixTimestamp() int64 {
	return time.Now().Unix()
}
