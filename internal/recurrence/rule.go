package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"daily-planner-ai/internal/datemath"
	"daily-planner-ai/internal/model"
)

var (
	// ErrMalformed marks a stored recurrence record that cannot describe any rule.
	ErrMalformed = errors.New("malformed recurrence")
	// ErrInvalidRule is returned by the constructors for inconsistent input.
	ErrInvalidRule = errors.New("invalid recurrence rule")
)

// Rule is one of Daily, Weekly or Monthly.
type Rule interface {
	Type() model.RecurrenceType
	// Matches reports whether the rule selects the calendar day, ignoring
	// anchor and end date bounds.
	Matches(day time.Time) bool
	Describe() string
	sealed()
}

// Daily matches every day.
type Daily struct{}

// Weekly matches the listed weekdays.
type Weekly struct {
	Days WeekdaySet
}

// Monthly matches one day of the month. Months shorter than Day are skipped.
type Monthly struct {
	Day int
}

// WeekdaySet is a bit set of weekdays, bit 0 = Sunday.
type WeekdaySet uint8

func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

// Days lists the members in Sunday..Saturday order.
func (s WeekdaySet) Days() []int {
	var days []int
	for d := 0; d < 7; d++ {
		if s.Has(time.Weekday(d)) {
			days = append(days, d)
		}
	}
	return days
}

func NewDaily() Rule {
	return Daily{}
}

// NewWeekly requires at least one weekday, each in 0..6 (0=Sunday).
func NewWeekly(days ...int) (Rule, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: weekly rule needs at least one weekday", ErrInvalidRule)
	}
	var set WeekdaySet
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("%w: weekday %d out of range 0-6", ErrInvalidRule, d)
		}
		set |= 1 << uint(d)
	}
	return Weekly{Days: set}, nil
}

// NewMonthly requires a day between 1 and 31.
func NewMonthly(day int) (Rule, error) {
	if day < 1 || day > 31 {
		return nil, fmt.Errorf("%w: day of month %d out of range 1-31", ErrInvalidRule, day)
	}
	return Monthly{Day: day}, nil
}

// FromRecord reads a stored record. It is lenient about noise (out of range
// weekdays are ignored) but rejects records that select nothing.
func FromRecord(rec *model.Recurrence) (Rule, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: missing record", ErrMalformed)
	}
	switch rec.Type {
	case model.RecurDaily:
		return Daily{}, nil
	case model.RecurWeekly:
		var set WeekdaySet
		for _, d := range rec.DaysOfWeek {
			if d >= 0 && d <= 6 {
				set |= 1 << uint(d)
			}
		}
		if set == 0 {
			return nil, fmt.Errorf("%w: weekly without weekdays", ErrMalformed)
		}
		return Weekly{Days: set}, nil
	case model.RecurMonthly:
		if rec.DayOfMonth < 1 || rec.DayOfMonth > 31 {
			return nil, fmt.Errorf("%w: monthly without a valid day", ErrMalformed)
		}
		return Monthly{Day: rec.DayOfMonth}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, rec.Type)
	}
}

// Record converts a rule back to its stored shape.
func Record(rule Rule, endDate string) *model.Recurrence {
	rec := &model.Recurrence{Type: rule.Type(), EndDate: endDate}
	switch r := rule.(type) {
	case Weekly:
		rec.DaysOfWeek = r.Days.Days()
	case Monthly:
		rec.DayOfMonth = r.Day
	}
	return rec
}

func (Daily) Type() model.RecurrenceType { return model.RecurDaily }
func (Daily) Matches(time.Time) bool     { return true }
func (Daily) Describe() string           { return "daily" }
func (Daily) sealed()                    {}

func (Weekly) Type() model.RecurrenceType   { return model.RecurWeekly }
func (w Weekly) Matches(day time.Time) bool { return w.Days.Has(day.Weekday()) }
func (Weekly) sealed()                      {}

func (Monthly) Type() model.RecurrenceType   { return model.RecurMonthly }
func (m Monthly) Matches(day time.Time) bool { return datemath.DayOfMonth(day) == m.Day }
func (m Monthly) Describe() string           { return fmt.Sprintf("monthly on day %d", m.Day) }
func (Monthly) sealed()                      {}

func (w Weekly) Describe() string {
	names := make([]string, 0, 7)
	for _, d := range w.Days.Days() {
		names = append(names, time.Weekday(d).String()[:3])
	}
	return "weekly on " + strings.Join(names, ", ")
}

// Describe renders a stored record for humans, falling back to the raw type
// when the record is malformed.
func Describe(rec *model.Recurrence) string {
	if rec == nil {
		return "once"
	}
	rule, err := FromRecord(rec)
	if err != nil {
		return string(rec.Type) + " (invalid)"
	}
	label := rule.Describe()
	if rec.EndDate != "" {
		label += " until " + rec.EndDate
	}
	return label
}
