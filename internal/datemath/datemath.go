package datemath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ISOLayout is the only date format tasks are stored with.
const ISOLayout = "2006-01-02"

// ErrInvalidDate is returned for strings that are not a real YYYY-MM-DD date.
var ErrInvalidDate = errors.New("invalid date")

// Order selects the direction of an enumerated day sequence.
type Order int

const (
	Ascending Order = iota
	Descending
)

// Calendar days are held as midnight UTC. The wall-clock date is read in the
// caller's zone first; UTC has no DST gaps, so every date has a midnight.

// Normalize returns t's wall-clock calendar day, read in t's location.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return civil(y, m, d)
}

func civil(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day, each read
// in its own location.
func SameDay(a, b time.Time) bool {
	return Normalize(a).Equal(Normalize(b))
}

// Before reports whether a's calendar day is strictly before b's.
func Before(a, b time.Time) bool {
	return Normalize(a).Before(Normalize(b))
}

// After reports whether a's calendar day is strictly after b's.
func After(a, b time.Time) bool {
	return Normalize(a).After(Normalize(b))
}

// ParseISODate reads a strict YYYY-MM-DD string as a calendar day. The
// components are taken literally and never pass through a zoned timestamp.
func ParseISODate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 || !digits(parts[0], 4) || !digits(parts[1], 2) || !digits(parts[2], 2) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	year, _ := strconv.Atoi(parts[0])
	month, _ := strconv.Atoi(parts[1])
	day, _ := strconv.Atoi(parts[2])
	if month < 1 || month > 12 || day < 1 || day > DaysIn(year, time.Month(month)) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return civil(year, time.Month(month), day), nil
}

func digits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatISODate renders t's wall-clock date, in t's location, as YYYY-MM-DD.
func FormatISODate(t time.Time) string {
	return t.Format(ISOLayout)
}

// Weekday returns 0 for Sunday through 6 for Saturday.
func Weekday(t time.Time) int {
	return int(t.Weekday())
}

func DayOfMonth(t time.Time) int {
	return t.Day()
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddDays moves t's calendar day by n days.
func AddDays(t time.Time, n int) time.Time {
	return Normalize(t).AddDate(0, 0, n)
}

// EndOfDay returns the last second of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// StartOfWeek returns the Sunday that opens t's week.
func StartOfWeek(t time.Time) time.Time {
	return AddDays(t, -Weekday(t))
}

// EndOfWeek returns the Saturday that closes t's week.
func EndOfWeek(t time.Time) time.Time {
	return AddDays(t, 6-Weekday(t))
}

func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return civil(y, m, 1)
}

func EndOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return civil(y, m, DaysIn(y, m))
}

// EachDay lists every calendar day from start to end inclusive.
// An inverted interval yields nothing.
func EachDay(start, end time.Time) []time.Time {
	from := Normalize(start)
	to := Normalize(end)
	if from.After(to) {
		return nil
	}
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// LastNDays returns the n days ending at anchor inclusive.
func LastNDays(anchor time.Time, n int, order Order) []time.Time {
	if n <= 0 {
		return nil
	}
	days := make([]time.Time, n)
	for i := 0; i < n; i++ {
		d := AddDays(anchor, -i)
		if order == Ascending {
			days[n-1-i] = d
		} else {
			days[i] = d
		}
	}
	return days
}

// MonthGrid lays out a month for a 7-column calendar starting on Sunday:
// nil cells pad the days before the 1st, then one entry per day.
func MonthGrid(year int, month time.Month) []*time.Time {
	first := civil(year, month, 1)
	lead := Weekday(first)
	total := DaysIn(year, month)

	cells := make([]*time.Time, 0, lead+total)
	for i := 0; i < lead; i++ {
		cells = append(cells, nil)
	}
	for day := 1; day <= total; day++ {
		d := civil(year, month, day)
		cells = append(cells, &d)
	}
	return cells
}
