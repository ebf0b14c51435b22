package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"daily-planner-ai/internal/model"
)

const defaultDatabase = "daily_planner.db"

// Open connects to the planner's SQLite file, creating its directory, and
// migrates the users, tasks and chat_messages tables. Slow queries and
// gorm errors go to log under the "gorm" name.
func Open(dsn string, log *zap.SugaredLogger) (*gorm.DB, error) {
	if dsn == "" {
		dsn = defaultDatabase
	}

	if file := sqliteFile(dsn); file != "" {
		if dir := filepath.Dir(file); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir %q: %w", dir, err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// One writer at a time: the bot, the scheduler and the CLI share the file,
	// and an in-memory database exists per connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.User{}, &taskRow{}, &model.ChatMessage{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return db, nil
}

func gormLogger(log *zap.SugaredLogger) logger.Interface {
	return logger.New(
		zap.NewStdLog(log.Desugar().Named("gorm")),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// sqliteFile returns the path of the database file named by dsn, or "" when
// dsn is an in-memory database.
func sqliteFile(dsn string) string {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	return path
}
