package service

import (
	"fmt"
	"html"
	"slices"
	"strings"
	"time"

	"daily-planner-ai/internal/agenda"
	"daily-planner-ai/internal/datemath"
	"daily-planner-ai/internal/model"
	"daily-planner-ai/internal/recurrence"
)

// StatsPeriodDays is the rolling window of the statistics report.
const StatsPeriodDays = 30

// UpcomingDays is how far ahead the daily report looks for coming tasks.
const UpcomingDays = 7

// ReminderService builds human-readable summaries for daily notifications.
// Output is Telegram HTML.
type ReminderService struct {
	tasks *TaskService
}

func NewReminderService(tasks *TaskService) *ReminderService {
	return &ReminderService{tasks: tasks}
}

func (s *ReminderService) DailySummary(now time.Time) string {
	today := s.tasks.Today(now)
	tasks := s.tasks.List()
	due := agenda.TasksForDate(tasks, today)

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", today.Format("Monday, 02 Jan 2006")))

	if len(due) == 0 {
		builder.WriteString("— nothing planned for today\n")
	} else {
		for i, task := range due {
			builder.WriteString(FormatTaskLine(i+1, task))
		}
		stats := agenda.Day{Date: today, Tasks: due}.Stats()
		builder.WriteString(fmt.Sprintf("\n✅ %d/%d done (%d%%)\n", stats.Completed, stats.Total, stats.RoundedPercent()))
	}

	if next := upcoming(tasks, today); len(next) > 0 {
		builder.WriteString("\n🔜 <b>Coming up</b>\n")
		for _, u := range next {
			builder.WriteString(fmt.Sprintf("%s · %s\n", u.Date.Format("Mon 02 Jan"), html.EscapeString(u.Task.Title)))
		}
	}
	return strings.TrimSpace(builder.String())
}

// upcoming lists the next occurrence within UpcomingDays after today of every
// task that is not due today, soonest first.
func upcoming(tasks []model.Task, today time.Time) []agenda.Occurrence {
	var out []agenda.Occurrence
	for _, t := range tasks {
		if recurrence.IsDue(t, today) {
			continue
		}
		if day, ok := recurrence.NextOccurrence(t, datemath.AddDays(today, 1), UpcomingDays-1); ok {
			out = append(out, agenda.Occurrence{Task: t, Date: day})
		}
	}
	slices.SortStableFunc(out, func(a, b agenda.Occurrence) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

// StatsSummary reports today's progress, the last StatsPeriodDays days, a
// seven day chart and the achievements.
func (s *ReminderService) StatsSummary(now time.Time) string {
	today := s.tasks.Today(now)
	tasks := s.tasks.List()
	period := agenda.PeriodStats(tasks, today, StatsPeriodDays)
	todayStats := agenda.CompletionStats(tasks, today)

	var builder strings.Builder
	builder.WriteString("📊 <b>Statistics</b>\n")
	builder.WriteString(fmt.Sprintf("Today: %d/%d\n", todayStats.Completed, todayStats.Total))
	builder.WriteString(fmt.Sprintf("Last %d days: %d/%d completed (%d%%)\n",
		StatsPeriodDays, period.Completed, period.Total, period.RoundedPercent()))
	builder.WriteString(fmt.Sprintf("Pending: %d\n\n", period.Total-period.Completed))

	builder.WriteString("<b>This week</b>\n")
	for _, day := range agenda.WeeklyChart(tasks, today) {
		st := day.Stats()
		builder.WriteString(fmt.Sprintf("<code>%s %s</code> %d/%d\n",
			day.Date.Format("Mon"), bar(st, 10), st.Completed, st.Total))
	}

	builder.WriteString("\n<b>Achievements</b>\n")
	for _, a := range agenda.Achievements(period) {
		mark := "🔒"
		if a.Unlocked {
			mark = "🏆"
		}
		builder.WriteString(fmt.Sprintf("%s %s\n", mark, a.Name))
	}
	return strings.TrimSpace(builder.String())
}

// MonthSummary renders a Sunday-first calendar where days with tasks are
// marked with an asterisk, followed by the month's task days.
func (s *ReminderService) MonthSummary(year int, month time.Month) string {
	cells := agenda.MonthView(s.tasks.List(), year, month)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🗓 <b>%s %d</b>\n<pre>", month, year))
	builder.WriteString(" Su  Mo  Tu  We  Th  Fr  Sa\n")
	var busy []agenda.Cell
	for i, c := range cells {
		switch {
		case c.Blank:
			builder.WriteString("    ")
		case c.HasTasks:
			builder.WriteString(fmt.Sprintf("%3d*", c.Date.Day()))
			busy = append(busy, c)
		default:
			builder.WriteString(fmt.Sprintf("%3d ", c.Date.Day()))
		}
		if i%7 == 6 {
			builder.WriteString("\n")
		}
	}
	if len(cells)%7 != 0 {
		builder.WriteString("\n")
	}
	builder.WriteString("</pre>\n")

	if len(busy) == 0 {
		builder.WriteString("— no tasks this month")
		return strings.TrimSpace(builder.String())
	}
	for _, c := range busy {
		builder.WriteString(fmt.Sprintf("%s: %d task(s)\n", c.Date.Format("Mon 02"), c.Count))
	}
	return strings.TrimSpace(builder.String())
}

// FormatTaskLine renders one numbered task for listings.
func FormatTaskLine(n int, task model.Task) string {
	icon := "⬜️"
	if task.Completed {
		icon = "✅"
	}
	line := fmt.Sprintf("%d. %s %s", n, icon, html.EscapeString(task.Title))
	if task.IsRecurring() {
		line += fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(recurrence.Describe(task.Recurrence)))
	}
	return line + "\n"
}

func bar(st agenda.Stats, width int) string {
	filled := 0
	if st.Total > 0 {
		filled = st.Completed * width / st.Total
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
