package model

import "time"

// RecurrenceType names the repetition rule of a task.
type RecurrenceType string

const (
	RecurDaily   RecurrenceType = "daily"
	RecurWeekly  RecurrenceType = "weekly"
	RecurMonthly RecurrenceType = "monthly"
)

// Task represents a single item in the planner.
// Completed is shared by every occurrence of a recurring task.
type Task struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Completed  bool        `json:"completed"`
	CreatedAt  time.Time   `json:"createdAt"`
	Date       string      `json:"date"` // YYYY-MM-DD anchor, timezone-naive
	Recurrence *Recurrence `json:"recurrence,omitempty"`
}

// IsRecurring reports whether the task repeats after its anchor date.
func (t Task) IsRecurring() bool {
	return t.Recurrence != nil
}

// Recurrence is the stored shape of a repetition rule. Records read back from
// storage may be partial; see recurrence.FromRecord for the validated form.
type Recurrence struct {
	Type       RecurrenceType `json:"type"`
	DaysOfWeek []int          `json:"daysOfWeek,omitempty"` // weekly only, 0=Sunday
	DayOfMonth int            `json:"dayOfMonth,omitempty"` // monthly only, 1-31
	EndDate    string         `json:"endDate,omitempty"`    // inclusive, YYYY-MM-DD
}

// Clone returns a deep copy so callers can mutate snapshots safely.
func (t Task) Clone() Task {
	if t.Recurrence != nil {
		rec := *t.Recurrence
		rec.DaysOfWeek = append([]int(nil), t.Recurrence.DaysOfWeek...)
		t.Recurrence = &rec
	}
	return t
}
