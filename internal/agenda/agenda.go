// Package agenda derives day and period views from a task snapshot.
// Everything here is computed per day from recurrence.IsDue with no state
// carried between days.
package agenda

import (
	"math"
	"time"

	"daily-planner-ai/internal/datemath"
	"daily-planner-ai/internal/model"
	"daily-planner-ai/internal/recurrence"
)

// Day pairs a calendar day with the tasks due on it.
type Day struct {
	Date  time.Time
	Tasks []model.Task
}

// Stats counts due tasks and how many of them are completed.
type Stats struct {
	Completed int
	Total     int
}

// Occurrence is one due day of a task. Completed is the task's shared flag.
type Occurrence struct {
	Task model.Task
	Date time.Time
}

// Percent returns the completion rate in 0..100, or 0 when nothing is due.
func (s Stats) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total) * 100
}

func (s Stats) RoundedPercent() int {
	return int(math.Round(s.Percent()))
}

func (s Stats) add(completed bool) Stats {
	s.Total++
	if completed {
		s.Completed++
	}
	return s
}

// Stats summarizes the day's tasks.
func (d Day) Stats() Stats {
	var s Stats
	for _, t := range d.Tasks {
		s = s.add(t.Completed)
	}
	return s
}

// TasksForDate keeps the tasks due on date, in their original order.
func TasksForDate(tasks []model.Task, date time.Time) []model.Task {
	var due []model.Task
	for _, t := range tasks {
		if recurrence.IsDue(t, date) {
			due = append(due, t)
		}
	}
	return due
}

// TasksForDateRange evaluates every day from start to end inclusive.
func TasksForDateRange(tasks []model.Task, start, end time.Time) []Day {
	days := datemath.EachDay(start, end)
	out := make([]Day, 0, len(days))
	for _, d := range days {
		out = append(out, Day{Date: d, Tasks: TasksForDate(tasks, d)})
	}
	return out
}

// CompletionStats counts the tasks due on date.
func CompletionStats(tasks []model.Task, date time.Time) Stats {
	return Day{Date: date, Tasks: TasksForDate(tasks, date)}.Stats()
}

// PeriodOccurrences materializes one occurrence per (task, due day) over the
// n days ending at anchor, newest day first. A recurring task contributes one
// entry per due day, each carrying the same completion flag.
func PeriodOccurrences(tasks []model.Task, anchor time.Time, n int) []Occurrence {
	var out []Occurrence
	for _, d := range datemath.LastNDays(anchor, n, datemath.Descending) {
		for _, t := range tasks {
			if recurrence.IsDue(t, d) {
				out = append(out, Occurrence{Task: t, Date: d})
			}
		}
	}
	return out
}

// PeriodStats totals PeriodOccurrences.
func PeriodStats(tasks []model.Task, anchor time.Time, n int) Stats {
	var s Stats
	for _, o := range PeriodOccurrences(tasks, anchor, n) {
		s = s.add(o.Task.Completed)
	}
	return s
}

// WeeklyChart returns the seven days ending at anchor, oldest first.
func WeeklyChart(tasks []model.Task, anchor time.Time) []Day {
	days := datemath.LastNDays(anchor, 7, datemath.Ascending)
	out := make([]Day, 0, len(days))
	for _, d := range days {
		out = append(out, Day{Date: d, Tasks: TasksForDate(tasks, d)})
	}
	return out
}
