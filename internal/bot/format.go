package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-planner-ai/internal/intent"
	"daily-planner-ai/internal/model"
	"daily-planner-ai/internal/recurrence"
	"daily-planner-ai/internal/service"
)

const (
	cbTogglePrefix = "toggle:"
	cbDeletePrefix = "delete:"
)

const (
	menuLabelToday = "📅 Today"
	menuLabelStats = "📊 Stats"
	menuLabelMonth = "🗓 Month"
	menuLabelHelp  = "ℹ️ Help"
)

// parseAddArgs reads "/add <title> [| date] [| recurrence]".
func parseAddArgs(args string) (service.TaskInput, error) {
	parts := strings.Split(args, "|")
	input := service.TaskInput{Title: strings.TrimSpace(parts[0])}
	if input.Title == "" {
		return input, service.ErrEmptyTitle
	}
	if len(parts) > 1 {
		input.Date = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		if token := strings.TrimSpace(parts[2]); token != "" {
			rec, err := intent.ParseRecurrence(strings.ToUpper(token))
			if err != nil {
				return input, err
			}
			input.Recurrence = rec
		}
	}
	if len(parts) > 3 {
		return input, fmt.Errorf("too many fields, expected: title | date | recurrence")
	}
	return input, nil
}

// parseEditArgs reads "/edit <n> [title] [| date] [| recurrence]" and returns
// the listing position with the change. Empty fields keep their value.
func parseEditArgs(args string) (string, service.TaskUpdate, error) {
	var upd service.TaskUpdate
	args = strings.TrimSpace(args)
	pos, rest := args, ""
	if i := strings.IndexAny(args, " |"); i >= 0 {
		pos, rest = args[:i], args[i:]
	}
	if pos == "" {
		return "", upd, fmt.Errorf("task number is required")
	}

	parts := strings.Split(rest, "|")
	if len(parts) > 3 {
		return pos, upd, fmt.Errorf("too many fields, expected: n title | date | recurrence")
	}
	if title := strings.TrimSpace(parts[0]); title != "" {
		upd.Title = &title
	}
	if len(parts) > 1 {
		if date := strings.TrimSpace(parts[1]); date != "" {
			upd.Date = &date
		}
	}
	if len(parts) > 2 {
		if token := strings.TrimSpace(parts[2]); token != "" {
			if err := upd.SetRecurrence(token); err != nil {
				return pos, upd, err
			}
		}
	}
	if upd.Empty() {
		return pos, upd, fmt.Errorf("nothing to change")
	}
	return pos, upd, nil
}

// parseIndex reads a 1-based listing position.
func parseIndex(args string, size int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", args)
	}
	if n < 1 || n > size {
		return 0, fmt.Errorf("number must be between 1 and %d", size)
	}
	return n - 1, nil
}

// parseMonthArg reads YYYY-MM, defaulting to the month of now.
func parseMonthArg(args string, now time.Time) (int, time.Month, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", args)
	if err != nil {
		return 0, 0, fmt.Errorf("month %q, expected YYYY-MM", args)
	}
	return t.Year(), t.Month(), nil
}

func formatListing(title string, tasks []model.Task) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	if len(tasks) == 0 {
		b.WriteString("— no tasks")
		return b.String()
	}
	for i, task := range tasks {
		b.WriteString(service.FormatTaskLine(i+1, task))
	}
	b.WriteString("\nUse /done &lt;n&gt; or the buttons below.")
	return b.String()
}

func formatCreated(task model.Task) string {
	return fmt.Sprintf("📌 Added <b>%s</b> on %s (%s)",
		escape(task.Title), task.Date, escape(recurrence.Describe(task.Recurrence)))
}

func formatUpdated(task model.Task) string {
	return fmt.Sprintf("✏️ Updated <b>%s</b> on %s (%s)",
		escape(task.Title), task.Date, escape(recurrence.Describe(task.Recurrence)))
}

func listingKeyboard(tasks []model.Task) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))
	for i, task := range tasks {
		label := fmt.Sprintf("%d · %s", i+1, shortTitle(task.Title, 24))
		if task.Completed {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbTogglePrefix+task.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+task.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelToday),
			tgbotapi.NewKeyboardButton(menuLabelStats),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelMonth),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func shortTitle(title string, maxLen int) string {
	clean := strings.Join(strings.Fields(title), " ")
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
