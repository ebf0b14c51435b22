package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"daily-planner-ai/internal/model"
)

// taskRow is the flattened table layout of model.Task. HasRecurrence marks a
// stored rule even when its type is blank; the other recurrence columns are
// empty for one-off tasks.
type taskRow struct {
	ID              string `gorm:"primaryKey"`
	Position        int    `gorm:"index"`
	Title           string
	Completed       bool `gorm:"default:false"`
	Date            string
	HasRecurrence   bool `gorm:"default:false"`
	RecurType       string
	RecurDays       string // comma separated weekdays
	RecurDayOfMonth int
	RecurEndDate    string
	CreatedAt       time.Time
}

func (taskRow) TableName() string {
	return "tasks"
}

// TaskRepository stores the task list as a whole.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Load returns every task in list order.
func (r *TaskRepository) Load(ctx context.Context) ([]model.Task, error) {
	var rows []taskRow
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toModel())
	}
	return tasks, nil
}

// Save replaces the stored list with tasks in a single transaction.
func (r *TaskRepository) Save(ctx context.Context, tasks []model.Task) error {
	rows := make([]taskRow, 0, len(tasks))
	for i, t := range tasks {
		rows = append(rows, rowFromModel(i, t))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&taskRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 100).Error
	})
	if err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

func rowFromModel(position int, t model.Task) taskRow {
	row := taskRow{
		ID:        t.ID,
		Position:  position,
		Title:     t.Title,
		Completed: t.Completed,
		Date:      t.Date,
		CreatedAt: t.CreatedAt,
	}
	if rec := t.Recurrence; rec != nil {
		row.HasRecurrence = true
		row.RecurType = string(rec.Type)
		row.RecurDayOfMonth = rec.DayOfMonth
		row.RecurEndDate = rec.EndDate
		days := make([]string, 0, len(rec.DaysOfWeek))
		for _, d := range rec.DaysOfWeek {
			days = append(days, strconv.Itoa(d))
		}
		row.RecurDays = strings.Join(days, ",")
	}
	return row
}

// toModel keeps whatever recurrence data is stored, valid or not; deciding
// what it means is left to the recurrence evaluator.
func (row taskRow) toModel() model.Task {
	t := model.Task{
		ID:        row.ID,
		Title:     row.Title,
		Completed: row.Completed,
		CreatedAt: row.CreatedAt,
		Date:      row.Date,
	}
	// Rows written before HasRecurrence existed only carry a type.
	if !row.HasRecurrence && row.RecurType == "" {
		return t
	}
	rec := &model.Recurrence{
		Type:       model.RecurrenceType(row.RecurType),
		DayOfMonth: row.RecurDayOfMonth,
		EndDate:    row.RecurEndDate,
	}
	for _, part := range strings.Split(row.RecurDays, ",") {
		if d, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			rec.DaysOfWeek = append(rec.DaysOfWeek, d)
		}
	}
	t.Recurrence = rec
	return t
}
