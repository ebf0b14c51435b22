package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"daily-planner-ai/internal/agenda"
	"daily-planner-ai/internal/datemath"
	"daily-planner-ai/internal/intent"
	"daily-planner-ai/internal/model"
	"daily-planner-ai/internal/recurrence"
	"daily-planner-ai/internal/store"
)

var (
	ErrEmptyTitle        = errors.New("title is required")
	ErrInvalidRecurrence = errors.New("invalid recurrence")
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title      string
	Date       string // TODAY, TOMORROW, YYYY-MM-DD or empty for today
	Recurrence *model.Recurrence
}

// TaskUpdate changes the fields that are set.
type TaskUpdate struct {
	Title           *string
	Date            *string
	Recurrence      *model.Recurrence
	ClearRecurrence bool
}

// SetRecurrence reads a DAILY, WEEKLY:d,d or MONTHLY:n token. NONE or ONCE
// turns the task back into a one-off.
func (u *TaskUpdate) SetRecurrence(token string) error {
	switch t := strings.ToUpper(strings.TrimSpace(token)); t {
	case "NONE", "ONCE":
		u.Recurrence, u.ClearRecurrence = nil, true
	default:
		rec, err := intent.ParseRecurrence(t)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
		}
		u.Recurrence, u.ClearRecurrence = rec, false
	}
	return nil
}

// Empty reports whether the update changes nothing.
func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Date == nil && u.Recurrence == nil && !u.ClearRecurrence
}

// TaskService wraps task-related business logic.
type TaskService struct {
	store *store.Store
	dates *datemath.Parser
	log   *zap.SugaredLogger
	newID func() string
}

func NewTaskService(st *store.Store, dates *datemath.Parser, log *zap.SugaredLogger) *TaskService {
	return &TaskService{
		store: st,
		dates: dates,
		log:   log,
		newID: func() string { return uuid.NewString() },
	}
}

// Location is the timezone used to resolve dates.
func (s *TaskService) Location() *time.Location {
	return s.dates.Location()
}

func (s *TaskService) Create(ctx context.Context, input TaskInput, now time.Time) (model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}

	date, err := s.dates.ResolveToken(input.Date, now)
	if err != nil {
		return model.Task{}, fmt.Errorf("resolve date %q: %w", input.Date, err)
	}

	var rec *model.Recurrence
	if input.Recurrence != nil {
		rec = cloneRecurrence(input.Recurrence)
		if err := s.validateRecurrence(rec, date); err != nil {
			return model.Task{}, err
		}
	}

	task := model.Task{
		ID:         s.newID(),
		Title:      title,
		CreatedAt:  now,
		Date:       date,
		Recurrence: rec,
	}
	if err := s.store.Add(ctx, task); err != nil {
		return model.Task{}, fmt.Errorf("add task: %w", err)
	}

	s.log.Infow("task created", "id", task.ID, "title", task.Title, "date", task.Date,
		"recurrence", recurrence.Describe(task.Recurrence))
	return task, nil
}

// CreateFromIntent adds the task found in an assistant reply. Relative date
// tokens are resolved against now.
func (s *TaskService) CreateFromIntent(ctx context.Context, in model.ParsedIntent, now time.Time) (model.Task, error) {
	if !in.HasTask() {
		return model.Task{}, ErrEmptyTitle
	}
	return s.Create(ctx, TaskInput{Title: in.Task, Date: in.Date, Recurrence: in.Recurrence}, now)
}

// Toggle flips completion. A recurring task shares one flag across all its days.
func (s *TaskService) Toggle(ctx context.Context, id string) (model.Task, error) {
	task, err := s.store.Toggle(ctx, id)
	if err != nil {
		return model.Task{}, fmt.Errorf("toggle task: %w", err)
	}
	s.log.Infow("task toggled", "id", id, "completed", task.Completed)
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, id string, upd TaskUpdate, now time.Time) (model.Task, error) {
	task, err := s.store.Update(ctx, id, func(t *model.Task) error {
		if upd.Title != nil {
			title := strings.TrimSpace(*upd.Title)
			if title == "" {
				return ErrEmptyTitle
			}
			t.Title = title
		}
		if upd.Date != nil {
			date, err := s.dates.ResolveToken(*upd.Date, now)
			if err != nil {
				return fmt.Errorf("resolve date %q: %w", *upd.Date, err)
			}
			t.Date = date
		}
		switch {
		case upd.ClearRecurrence:
			t.Recurrence = nil
		case upd.Recurrence != nil:
			t.Recurrence = cloneRecurrence(upd.Recurrence)
		}
		if t.Recurrence != nil {
			return s.validateRecurrence(t.Recurrence, t.Date)
		}
		return nil
	})
	if err != nil {
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}
	s.log.Infow("task updated", "id", id)
	return task, nil
}

// Delete removes a task completely (for both one-time and recurring tasks).
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.log.Infow("task deleted", "id", id)
	return nil
}

func (s *TaskService) Get(id string) (model.Task, error) {
	return s.store.Get(id)
}

// List returns every stored task in insertion order.
func (s *TaskService) List() []model.Task {
	tasks, _ := s.store.Snapshot()
	return tasks
}

// Today is now's calendar day in the configured timezone.
func (s *TaskService) Today(now time.Time) time.Time {
	return s.dates.Today(now)
}

// ForDate returns the tasks due on day's calendar day, read in day's location.
// Pass a value from Today or datemath.ParseISODate.
func (s *TaskService) ForDate(day time.Time) []model.Task {
	return agenda.TasksForDate(s.List(), day)
}

func (s *TaskService) validateRecurrence(rec *model.Recurrence, anchor string) error {
	if _, err := recurrence.FromRecord(rec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	if rec.EndDate == "" {
		return nil
	}
	end, err := s.dates.Parse(rec.EndDate)
	if err != nil {
		return fmt.Errorf("%w: end date: %v", ErrInvalidRecurrence, err)
	}
	start, err := s.dates.Parse(anchor)
	if err != nil {
		return fmt.Errorf("%w: anchor: %v", ErrInvalidRecurrence, err)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: ends %s before it starts %s", ErrInvalidRecurrence, rec.EndDate, anchor)
	}
	rec.EndDate = datemath.FormatISODate(end)
	return nil
}

func cloneRecurrence(rec *model.Recurrence) *model.Recurrence {
	out := *rec
	out.DaysOfWeek = append([]int(nil), rec.DaysOfWeek...)
	return &out
}
