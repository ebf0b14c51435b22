package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"daily-planner-ai/internal/bot"
	"daily-planner-ai/internal/datemath"
	"daily-planner-ai/internal/intent"
	"daily-planner-ai/internal/model"
	"daily-planner-ai/internal/recurrence"
	"daily-planner-ai/internal/service"
)

func botCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot and the daily report scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cfg.RequireTelegram(); err != nil {
				return err
			}

			telegramBot, err := bot.New(a.cfg.TelegramToken, a.users, a.tasks, a.chat, a.reminders, a.log.Named("bot"))
			if err != nil {
				return err
			}

			changes, cancel := a.store.Subscribe()
			defer cancel()
			go func() {
				for change := range changes {
					a.log.Debugw("task collection changed", "version", change.Version, "tasks", len(change.Tasks))
				}
			}()

			scheduler := service.NewSchedulerService(a.tasks.Location(), a.log.Named("scheduler"))
			sendReports := func() {
				jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()
				if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
					a.log.Errorw("daily report", "error", err)
				}
			}
			if a.cfg.ReportTime != "" {
				if _, err := scheduler.ScheduleDaily(a.cfg.ReportTime, sendReports); err != nil {
					return fmt.Errorf("schedule reports: %w", err)
				}
			}
			if a.cfg.ReportInterval > 0 {
				if _, err := scheduler.ScheduleInterval(a.cfg.ReportInterval, sendReports); err != nil {
					return fmt.Errorf("schedule reports: %w", err)
				}
			}
			scheduler.Start()
			defer scheduler.Stop()

			a.log.Info("daily planner bot started")
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("bot stopped: %w", err)
			}
			a.log.Info("shutdown complete")
			return nil
		},
	}
}

func todayCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "today",
		Short: "List the tasks due today or on --date",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			day := a.tasks.Today(time.Now())
			if date != "" {
				if day, err = datemath.ParseISODate(date); err != nil {
					return err
				}
			}
			printTasks(cmd.OutOrStdout(), datemath.FormatISODate(day), a.tasks.ForDate(day))
			return nil
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "day to list (YYYY-MM-DD)")
	return cmd
}

func addCmd() *cobra.Command {
	var date, recur string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Long: `Add a task for a day, optionally repeating.

Examples:
  dailyplanner add "Dentist" --date 2024-03-15
  dailyplanner add "Gym" --date TOMORROW --recur WEEKLY:1,3
  dailyplanner add "Pay rent" --recur MONTHLY:5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := service.TaskInput{Title: strings.Join(args, " "), Date: date}
			if recur != "" {
				rec, err := intent.ParseRecurrence(strings.ToUpper(strings.TrimSpace(recur)))
				if err != nil {
					return err
				}
				input.Recurrence = rec
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			task, err := a.tasks.Create(cmd.Context(), input, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s: %s on %s (%s)\n",
				task.ID, task.Title, task.Date, recurrence.Describe(task.Recurrence))
			return nil
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "TODAY, TOMORROW or YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&recur, "recur", "r", "", "DAILY, WEEKLY:d[,d...] or MONTHLY:n")
	return cmd
}

func updateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the title, date or recurrence of a task",
		Long: `Change the fields of a task that are given as flags.

Examples:
  dailyplanner update 3f2a... --title "Dentist at 10"
  dailyplanner update 3f2a... --date TOMORROW --recur NONE`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			upd, err := taskUpdateFromFlags(cmd)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			task, err := a.tasks.Update(cmd.Context(), args[0], upd, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s: %s on %s (%s)\n",
				task.ID, task.Title, task.Date, recurrence.Describe(task.Recurrence))
			return nil
		},
	}
	cmd.Flags().String("title", "", "new title")
	cmd.Flags().StringP("date", "d", "", "TODAY, TOMORROW or YYYY-MM-DD")
	cmd.Flags().StringP("recur", "r", "", "DAILY, WEEKLY:d[,d...], MONTHLY:n or NONE")
	return cmd
}

// taskUpdateFromFlags builds an update from the flags set on the command line.
func taskUpdateFromFlags(cmd *cobra.Command) (service.TaskUpdate, error) {
	var upd service.TaskUpdate
	flags := cmd.Flags()
	if flags.Changed("title") {
		title, _ := flags.GetString("title")
		upd.Title = &title
	}
	if flags.Changed("date") {
		date, _ := flags.GetString("date")
		upd.Date = &date
	}
	if flags.Changed("recur") {
		recur, _ := flags.GetString("recur")
		if err := upd.SetRecurrence(recur); err != nil {
			return upd, err
		}
	}
	if upd.Empty() {
		return upd, errors.New("nothing to change: set --title, --date or --recur")
	}
	return upd, nil
}

func doneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle the completion of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			task, err := a.tasks.Toggle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", checkbox(task.Completed), task.Title)
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task and all its occurrences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.tasks.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func monthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Show a month calendar with the days that have tasks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			month := time.Now().In(a.tasks.Location())
			if len(args) == 1 {
				if month, err = time.Parse("2006-01", args[0]); err != nil {
					return fmt.Errorf("month %q, expected YYYY-MM", args[0])
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), plainText(a.reminders.MonthSummary(month.Year(), month.Month())))
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show completion statistics for the last 30 days",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintln(cmd.OutOrStdout(), plainText(a.reminders.StatsSummary(time.Now())))
			return nil
		},
	}
}

func askCmd() *cobra.Command {
	var chatID int64
	cmd := &cobra.Command{
		Use:   "ask <text>",
		Short: "Send one message to the assistant, creating a task when it asks for one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.chat == nil {
				return errors.New("ASSISTANT_TOKEN is not set")
			}
			reply, err := a.chat.Send(cmd.Context(), chatID, strings.Join(args, " "), time.Now())
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			if reply.Task != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "added %s: %s on %s (%s)\n", reply.Task.ID, reply.Task.Title,
					reply.Task.Date, recurrence.Describe(reply.Task.Recurrence))
			}
			for _, anomaly := range reply.Anomalies {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", anomaly)
			}
			return err
		},
	}
	cmd.Flags().Int64Var(&chatID, "chat", 0, "conversation id for history")
	return cmd
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse",
		Short: "Parse an assistant reply from stdin and print the intent as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(intent.Parse(string(raw)))
		},
	}
}

func printTasks(w io.Writer, day string, tasks []model.Task) {
	fmt.Fprintf(w, "%s\n", day)
	if len(tasks) == 0 {
		fmt.Fprintln(w, "  no tasks")
		return
	}
	for i, task := range tasks {
		fmt.Fprintf(w, "%2d. %s %s  (%s)  %s\n", i+1, checkbox(task.Completed), task.Title,
			recurrence.Describe(task.Recurrence), task.ID)
	}
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

var htmlTag = regexp.MustCompile(`</?[a-z]+>`)

// plainText strips the Telegram HTML used by reports.
func plainText(s string) string {
	return html.UnescapeString(htmlTag.ReplaceAllString(s, ""))
}
