// Package intent extracts task creation requests from assistant replies.
//
// The assistant is asked to answer in a small line grammar:
//
//	TASK: <title>
//	DATE: <TODAY|TOMORROW|YYYY-MM-DD>
//	RECURRENCE: <DAILY|WEEKLY:d[,d...]|MONTHLY:n>
//	RESPONSE: <reply text>
//
// Replies without a TASK line are plain conversation.
package intent

import (
	"fmt"
	"strconv"
	"strings"

	"daily-planner-ai/internal/model"
	"daily-planner-ai/internal/recurrence"
)

const (
	markerTask       = "TASK:"
	markerDate       = "DATE:"
	markerRecurrence = "RECURRENCE:"
	markerResponse   = "RESPONSE:"

	tokenDaily   = "DAILY"
	tokenWeekly  = "WEEKLY:"
	tokenMonthly = "MONTHLY:"
)

// FallbackReply is shown when a task was extracted but no RESPONSE line was given.
const FallbackReply = "Task added successfully!"

// Parse never fails. Missing or broken optional lines are skipped and, when
// something was rejected, described in Anomalies.
func Parse(text string) model.ParsedIntent {
	lines := splitLines(text)

	title, ok := field(lines, markerTask)
	if !ok {
		return model.ParsedIntent{Text: text}
	}

	out := model.ParsedIntent{Task: title, Text: FallbackReply}

	if reply, ok := field(lines, markerResponse); ok {
		out.Text = reply
	}
	if date, ok := field(lines, markerDate); ok {
		out.Date = date
	}
	if token, ok := field(lines, markerRecurrence); ok {
		rec, err := ParseRecurrence(token)
		if err != nil {
			out.Anomalies = append(out.Anomalies, err.Error())
		} else {
			out.Recurrence = rec
		}
	}
	return out
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

// field returns the trimmed rest of the first line carrying marker with a
// non-empty value.
func field(lines []string, marker string) (string, bool) {
	for _, line := range lines {
		idx := strings.Index(line, marker)
		if idx < 0 {
			continue
		}
		if value := strings.TrimSpace(line[idx+len(marker):]); value != "" {
			return value, true
		}
	}
	return "", false
}

// ParseRecurrence reads a DAILY, WEEKLY:d[,d...] or MONTHLY:n token.
func ParseRecurrence(token string) (*model.Recurrence, error) {
	switch {
	case token == tokenDaily:
		return recurrence.Record(recurrence.NewDaily(), ""), nil

	case strings.HasPrefix(token, tokenWeekly):
		var days []int
		for _, part := range strings.Split(strings.TrimPrefix(token, tokenWeekly), ",") {
			d, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("recurrence %q: weekday %q is not a number", token, strings.TrimSpace(part))
			}
			days = append(days, d)
		}
		rule, err := recurrence.NewWeekly(days...)
		if err != nil {
			return nil, fmt.Errorf("recurrence %q: %w", token, err)
		}
		return recurrence.Record(rule, ""), nil

	case strings.HasPrefix(token, tokenMonthly):
		raw := strings.TrimSpace(strings.TrimPrefix(token, tokenMonthly))
		day, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("recurrence %q: day %q is not a number", token, raw)
		}
		rule, err := recurrence.NewMonthly(day)
		if err != nil {
			return nil, fmt.Errorf("recurrence %q: %w", token, err)
		}
		return recurrence.Record(rule, ""), nil
	}

	return nil, fmt.Errorf("recurrence %q: unknown rule", token)
}
