package recurrence

import (
	"time"

	"daily-planner-ai/internal/datemath"
	"daily-planner-ai/internal/model"
)

// IsDue decides whether task has an occurrence on target's calendar day.
// It never fails: unreadable dates and malformed rules make a task not due.
//
// target's calendar day is read in target's own location and compared with
// the stored dates as plain calendar days.
func IsDue(task model.Task, target time.Time) bool {
	day := datemath.Normalize(target)

	anchor, err := datemath.ParseISODate(task.Date)
	if err != nil {
		return false
	}

	if task.Recurrence == nil {
		return anchor.Equal(day)
	}

	if day.Before(anchor) {
		return false
	}

	if end := task.Recurrence.EndDate; end != "" {
		endDay, err := datemath.ParseISODate(end)
		if err != nil || day.After(endDay) {
			return false
		}
	}

	rule, err := FromRecord(task.Recurrence)
	if err != nil {
		return false
	}
	return rule.Matches(day)
}

// IsDueOn is IsDue for a YYYY-MM-DD target.
func IsDueOn(task model.Task, day string) bool {
	target, err := datemath.ParseISODate(day)
	if err != nil {
		return false
	}
	return IsDue(task, target)
}

// Occurrences lists every due day of task between start and end inclusive.
func Occurrences(task model.Task, start, end time.Time) []time.Time {
	var out []time.Time
	for _, day := range datemath.EachDay(start, end) {
		if IsDue(task, day) {
			out = append(out, day)
		}
	}
	return out
}

// NextOccurrence finds the first due day on or after from, looking at most
// horizon days ahead.
func NextOccurrence(task model.Task, from time.Time, horizon int) (time.Time, bool) {
	day := datemath.Normalize(from)
	for i := 0; i <= horizon; i++ {
		if IsDue(task, day) {
			return day, true
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}
