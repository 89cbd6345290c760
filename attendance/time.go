package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CLOCK TIME - Time of day without a date ("HH:MM")
// =============================================================================

type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (24h). Single-digit hours are accepted ("9:00").
func ParseClock(s string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ClockTime{}, fmt.Errorf("%q is not HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return ClockTime{}, fmt.Errorf("%q has an invalid hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 || m < 0 || m > 59 {
		return ClockTime{}, fmt.Errorf("%q has an invalid minute", s)
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

// MustParseClock panics on malformed input. Only for constants and tests.
func MustParseClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Minutes returns minutes since midnight.
func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

// On combines the clock time with the calendar date of t, in t's location.
func (c ClockTime) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, t.Location())
}

// =============================================================================
// CALENDAR UTILITIES
// =============================================================================

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayBounds returns the half-open interval [midnight, next midnight) around t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start, start.AddDate(0, 0, 1)
}

// MonthBounds returns [first day of month, first day of next month) in loc.
func MonthBounds(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// WorkingDays counts Monday-Friday dates in the month. No holiday calendar.
func WorkingDays(year int, month time.Month) int {
	count := 0
	for d := 1; d <= DaysInMonth(year, month); d++ {
		if !IsWeekend(time.Date(year, month, d, 0, 0, 0, 0, time.UTC)) {
			count++
		}
	}
	return count
}

// ValidateYearMonth rejects months outside 1-12 and years outside 1-9999.
func ValidateYearMonth(year, month int) error {
	if month < 1 || month > 12 {
		return Invalid("month", "must be between 1 and 12, got %d", month)
	}
	if year < 1 || year > 9999 {
		return Invalid("year", "must be between 1 and 9999, got %d", year)
	}
	return nil
}
