package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"daily-planner-ai/internal/assistant"
	"daily-planner-ai/internal/config"
	"daily-planner-ai/internal/datemath"
	"daily-planner-ai/internal/logging"
	"daily-planner-ai/internal/repository"
	"daily-planner-ai/internal/service"
	"daily-planner-ai/internal/store"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "dailyplanner",
		Short:         "Daily planner with an assistant that turns chat into tasks",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(botCmd())
	rootCmd.AddCommand(todayCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(doneCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(monthCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(parseCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the wired components shared by the commands.
type app struct {
	cfg       config.Config
	log       *zap.SugaredLogger
	db        *gorm.DB
	store     *store.Store
	users     *repository.UserRepository
	tasks     *service.TaskService
	reminders *service.ReminderService
	chat      *service.ChatService // nil without an assistant token
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log := logging.New(logging.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		File:     cfg.Logger.File,
	})

	dates, err := datemath.NewParser(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := repository.Open(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	st, err := store.Open(ctx, repository.NewTaskRepository(db))
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("open task store: %w", err)
	}

	tasks := service.NewTaskService(st, dates, log.Named("tasks"))
	a := &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		store:     st,
		users:     repository.NewUserRepository(db),
		tasks:     tasks,
		reminders: service.NewReminderService(tasks),
	}

	if cfg.Assistant.Token != "" {
		client, err := assistant.New(cfg.Assistant)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("assistant: %w", err)
		}
		a.chat = service.NewChatService(client, repository.NewChatRepository(db), tasks,
			cfg.Assistant.HistoryLimit, log.Named("chat"))
	} else {
		log.Warn("ASSISTANT_TOKEN is not set, chat is disabled")
	}

	return a, nil
}

func (a *app) Close() {
	closeDB(a.db)
	_ = a.log.Sync()
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
