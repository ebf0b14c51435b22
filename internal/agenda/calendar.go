package agenda

import (
	"time"

	"daily-planner-ai/internal/datemath"
	"daily-planner-ai/internal/model"
)

// Cell is one slot of a month grid. Blank cells pad the week before the 1st.
type Cell struct {
	Blank    bool
	Date     time.Time
	HasTasks bool
	Count    int
}

// MonthView lays out a month for a Sunday-first calendar and marks days that
// have at least one due task.
func MonthView(tasks []model.Task, year int, month time.Month) []Cell {
	grid := datemath.MonthGrid(year, month)
	cells := make([]Cell, 0, len(grid))
	for _, d := range grid {
		if d == nil {
			cells = append(cells, Cell{Blank: true})
			continue
		}
		n := len(TasksForDate(tasks, *d))
		cells = append(cells, Cell{Date: *d, HasTasks: n > 0, Count: n})
	}
	return cells
}

// Achievement is a milestone over a rolling period.
type Achievement struct {
	Name     string
	Unlocked bool
}

// Achievements evaluates the milestones shown on the statistics view.
func Achievements(period Stats) []Achievement {
	rate := period.RoundedPercent()
	return []Achievement{
		{Name: "50% streak", Unlocked: rate >= 50},
		{Name: "10 tasks completed", Unlocked: period.Completed >= 10},
		{Name: "High productivity", Unlocked: rate >= 80},
	}
}
