package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"daily-planner-ai/internal/assistant"
	"daily-planner-ai/internal/datemath"
	"daily-planner-ai/internal/model"
	"daily-planner-ai/internal/store"
)

type memPersister struct {
	mu    sync.Mutex
	tasks []model.Task
}

func (m *memPersister) Load(context.Context) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Task(nil), m.tasks...), nil
}

func (m *memPersister) Save(_ context.Context, tasks []model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append([]model.Task(nil), tasks...)
	return nil
}

type fakeSender struct {
	reply   string
	err     error
	history []model.ChatMessage
	calls   int
}

func (f *fakeSender) Send(_ context.Context, _ string, history []model.ChatMessage) (string, error) {
	f.calls++
	f.history = history
	return f.reply, f.err
}

type memHistory struct {
	msgs []model.ChatMessage
}

func (m *memHistory) Append(_ context.Context, msg *model.ChatMessage) error {
	msg.ID = uint(len(m.msgs) + 1)
	m.msgs = append(m.msgs, *msg)
	return nil
}

func (m *memHistory) History(_ context.Context, chatID int64, limit int) ([]model.ChatMessage, error) {
	var out []model.ChatMessage
	for _, msg := range m.msgs {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memHistory) Clear(_ context.Context, chatID int64) error {
	kept := m.msgs[:0]
	for _, msg := range m.msgs {
		if msg.ChatID != chatID {
			kept = append(kept, msg)
		}
	}
	m.msgs = kept
	return nil
}

var now = time.Date(2024, 3, 1, 22, 15, 0, 0, time.UTC)

func newTaskService(t *testing.T) *TaskService {
	t.Helper()
	st, err := store.Open(context.Background(), &memPersister{})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	dates, err := datemath.NewParser("UTC")
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	svc := NewTaskService(st, dates, zap.NewNop().Sugar())
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("task-%d", n)
	}
	return svc
}

func TestTaskService_Create(t *testing.T) {
	tests := []struct {
		name     string
		input    TaskInput
		wantDate string
		wantErr  error
	}{
		{"defaults to today", TaskInput{Title: "Call mom"}, "2024-03-01", nil},
		{"tomorrow token", TaskInput{Title: "Gym", Date: "TOMORROW"}, "2024-03-02", nil},
		{"explicit date", TaskInput{Title: "Dentist", Date: "2024-03-15"}, "2024-03-15", nil},
		{"blank title", TaskInput{Title: "   "}, "", ErrEmptyTitle},
		{"bad date", TaskInput{Title: "X", Date: "2024-02-30"}, "", datemath.ErrInvalidDate},
		{"weekly without days", TaskInput{Title: "X", Recurrence: &model.Recurrence{Type: model.RecurWeekly}}, "", ErrInvalidRecurrence},
		{"end before anchor", TaskInput{Title: "X", Date: "2024-03-10",
			Recurrence: &model.Recurrence{Type: model.RecurDaily, EndDate: "2024-03-01"}}, "", ErrInvalidRecurrence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTaskService(t)
			task, err := svc.Create(context.Background(), tt.input, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if len(svc.List()) != 0 {
					t.Error("failed create stored a task")
				}
				return
			}
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if task.Date != tt.wantDate || task.ID == "" || task.Completed {
				t.Errorf("task = %+v", task)
			}
			if got := svc.List(); len(got) != 1 || got[0].ID != task.ID {
				t.Errorf("List = %+v", got)
			}
		})
	}
}

func TestTaskService_CreateFromIntentResolvesAtCreation(t *testing.T) {
	svc := newTaskService(t)
	in := model.ParsedIntent{
		Task:       "Study",
		Date:       "TOMORROW",
		Recurrence: &model.Recurrence{Type: model.RecurWeekly, DaysOfWeek: []int{1, 3}},
	}
	task, err := svc.CreateFromIntent(context.Background(), in, now)
	if err != nil {
		t.Fatalf("CreateFromIntent: %v", err)
	}
	if task.Date != "2024-03-02" {
		t.Errorf("Date = %q, want 2024-03-02", task.Date)
	}

	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if due := svc.ForDate(monday); len(due) != 1 {
		t.Errorf("ForDate(Monday) = %d tasks", len(due))
	}
	if due := svc.ForDate(monday.AddDate(0, 0, 1)); len(due) != 0 {
		t.Errorf("ForDate(Tuesday) = %d tasks", len(due))
	}

	if _, err := svc.CreateFromIntent(context.Background(), model.ParsedIntent{Text: "hi"}, now); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("intent without task err = %v", err)
	}
}

func TestTaskService_ToggleUpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTaskService(t)
	task, err := svc.Create(ctx, TaskInput{Title: "Read"}, now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	toggled, err := svc.Toggle(ctx, task.ID)
	if err != nil || !toggled.Completed {
		t.Fatalf("Toggle = %+v, %v", toggled, err)
	}

	title := "Read a book"
	updated, err := svc.Update(ctx, task.ID, TaskUpdate{
		Title:      &title,
		Recurrence: &model.Recurrence{Type: model.RecurMonthly, DayOfMonth: 5},
	}, now)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != title || updated.Recurrence == nil || !updated.Completed {
		t.Errorf("updated = %+v", updated)
	}

	blank := " "
	if _, err := svc.Update(ctx, task.ID, TaskUpdate{Title: &blank}, now); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("blank title update err = %v", err)
	}
	if got, _ := svc.Get(task.ID); got.Title != title {
		t.Errorf("failed update changed the task: %+v", got)
	}

	cleared, err := svc.Update(ctx, task.ID, TaskUpdate{ClearRecurrence: true}, now)
	if err != nil || cleared.Recurrence != nil {
		t.Errorf("clear recurrence = %+v, %v", cleared, err)
	}

	if err := svc.Delete(ctx, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, task.ID); !errors.Is(err, store.ErrTaskNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	if _, err := svc.Toggle(ctx, "missing"); !errors.Is(err, store.ErrTaskNotFound) {
		t.Errorf("toggle missing err = %v", err)
	}
}

func TestTaskUpdate_SetRecurrence(t *testing.T) {
	tests := []struct {
		token     string
		wantType  model.RecurrenceType
		wantClear bool
		wantErr   bool
	}{
		{token: "daily", wantType: model.RecurDaily},
		{token: " WEEKLY:1,3 ", wantType: model.RecurWeekly},
		{token: "monthly:15", wantType: model.RecurMonthly},
		{token: "none", wantClear: true},
		{token: "ONCE", wantClear: true},
		{token: "weekly:9", wantErr: true},
		{token: "sometimes", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			upd := TaskUpdate{ClearRecurrence: !tt.wantClear}
			err := upd.SetRecurrence(tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRecurrence) {
					t.Fatalf("err = %v, want ErrInvalidRecurrence", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetRecurrence: %v", err)
			}
			if upd.ClearRecurrence != tt.wantClear {
				t.Errorf("ClearRecurrence = %v, want %v", upd.ClearRecurrence, tt.wantClear)
			}
			if !tt.wantClear && (upd.Recurrence == nil || upd.Recurrence.Type != tt.wantType) {
				t.Errorf("Recurrence = %+v, want %s", upd.Recurrence, tt.wantType)
			}
			if upd.Empty() {
				t.Error("update with a recurrence change reported empty")
			}
		})
	}

	if !(TaskUpdate{}).Empty() {
		t.Error("zero update should be empty")
	}
}

func TestChatService_CreatesTaskFromReply(t *testing.T) {
	ctx := context.Background()
	tasks := newTaskService(t)
	sender := &fakeSender{reply: "TASK: Gym\nDATE: TODAY\nRECURRENCE: DAILY\nRESPONSE: Daily gym added!"}
	history := &memHistory{msgs: []model.ChatMessage{
		{ChatID: 1, Role: model.RoleUser, Text: "hello"},
		{ChatID: 1, Role: model.RoleAssistant, Text: "hi there"},
	}}
	chat := NewChatService(sender, history, tasks, 20, zap.NewNop().Sugar())

	reply, err := chat.Send(ctx, 1, "gym every day", now)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Text != "Daily gym added!" || reply.Task == nil || reply.Task.Title != "Gym" {
		t.Fatalf("reply = %+v", reply)
	}
	if len(sender.history) != 2 {
		t.Errorf("assistant saw %d prior messages, want 2", len(sender.history))
	}
	if len(tasks.List()) != 1 {
		t.Errorf("stored %d tasks", len(tasks.List()))
	}
	if n := len(history.msgs); n != 4 || history.msgs[3].Text != "Daily gym added!" {
		t.Errorf("history = %+v", history.msgs)
	}
}

func TestChatService_Failures(t *testing.T) {
	tests := []struct {
		name     string
		sender   *fakeSender
		wantText string
		wantErr  bool
	}{
		{"transport error", &fakeSender{err: errors.New("dial tcp: refused")}, ErrorReply, true},
		{"empty reply", &fakeSender{err: assistant.ErrEmptyReply}, NoAnswerReply, true},
		{"plain conversation", &fakeSender{reply: "Sure, how can I help?"}, "Sure, how can I help?", false},
		{"invalid date", &fakeSender{reply: "TASK: X\nDATE: 2024-13-01"}, "I understood the task but could not add it", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := newTaskService(t)
			chat := NewChatService(tt.sender, &memHistory{}, tasks, 20, zap.NewNop().Sugar())
			reply, err := chat.Send(context.Background(), 9, "hi", now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.HasPrefix(reply.Text, tt.wantText) {
				t.Errorf("Text = %q, want prefix %q", reply.Text, tt.wantText)
			}
			if reply.Task != nil || len(tasks.List()) != 0 {
				t.Error("no task should be created")
			}
		})
	}
}

func TestChatService_Reset(t *testing.T) {
	history := &memHistory{}
	chat := NewChatService(&fakeSender{reply: "ok"}, history, newTaskService(t), 20, zap.NewNop().Sugar())
	if _, err := chat.Send(context.Background(), 3, "hi", now); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := chat.Reset(context.Background(), 3); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if len(history.msgs) != 0 {
		t.Errorf("history after reset = %+v", history.msgs)
	}
}

func TestReminderService_Summaries(t *testing.T) {
	ctx := context.Background()
	tasks := newTaskService(t)
	mustCreate := func(in TaskInput) model.Task {
		task, err := tasks.Create(ctx, in, now)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		return task
	}
	gym := mustCreate(TaskInput{Title: "Gym <daily>", Date: "2024-02-01", Recurrence: &model.Recurrence{Type: model.RecurDaily}})
	mustCreate(TaskInput{Title: "Dentist", Date: "2024-03-01"})
	mustCreate(TaskInput{Title: "Trip", Date: "2024-03-20"})
	mustCreate(TaskInput{Title: "Yoga", Date: "2024-03-01", Recurrence: &model.Recurrence{Type: model.RecurWeekly, DaysOfWeek: []int{3}}})
	mustCreate(TaskInput{Title: "Review", Date: "2024-03-04"})
	if _, err := tasks.Toggle(ctx, gym.ID); err != nil {
		t.Fatalf("Toggle: %v", err)
	}

	r := NewReminderService(tasks)

	daily := r.DailySummary(now)
	for _, want := range []string{"Daily report", "Gym &lt;daily&gt;", "Dentist", "1/2 done (50%)"} {
		if !strings.Contains(daily, want) {
			t.Errorf("daily summary missing %q:\n%s", want, daily)
		}
	}
	if strings.Contains(daily, "Trip") {
		t.Errorf("daily summary lists a task beyond the coming week:\n%s", daily)
	}
	review := strings.Index(daily, "Mon 04 Mar · Review")
	yoga := strings.Index(daily, "Wed 06 Mar · Yoga")
	if !strings.Contains(daily, "Coming up") || review < 0 || yoga < review {
		t.Errorf("daily summary misses the coming week in date order:\n%s", daily)
	}
	if strings.Contains(daily, "· Gym") || strings.Contains(daily, "· Dentist") {
		t.Errorf("coming up repeats today's tasks:\n%s", daily)
	}

	stats := r.StatsSummary(now)
	// 30 gym occurrences (completed flag is shared) plus the dentist.
	if !strings.Contains(stats, "Today: 1/2") {
		t.Errorf("stats summary misses today's progress:\n%s", stats)
	}
	if !strings.Contains(stats, "30/31 completed (97%)") {
		t.Errorf("stats summary:\n%s", stats)
	}
	if !strings.Contains(stats, "🏆 High productivity") {
		t.Errorf("stats summary misses unlocked achievement:\n%s", stats)
	}

	month := r.MonthSummary(2024, time.March)
	if !strings.Contains(month, "March 2024") || !strings.Contains(month, " 20*") {
		t.Errorf("month summary:\n%s", month)
	}
	if !strings.Contains(month, "Fri 01: 2 task(s)") {
		t.Errorf("month summary misses day counts:\n%s", month)
	}

	empty := NewReminderService(newTaskService(t)).DailySummary(now)
	if !strings.Contains(empty, "nothing planned") {
		t.Errorf("empty summary = %q", empty)
	}
}

func TestBuildDailySpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"08:00", "0 0 8 * * *", false},
		{"23:59", "0 59 23 * * *", false},
		{" 7:05 ", "0 5 7 * * *", false},
		{"24:00", "", true},
		{"08:60", "", true},
		{"0800", "", true},
	}
	for _, tt := range tests {
		got, err := buildDailySpec(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("buildDailySpec(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestSchedulerService_Register(t *testing.T) {
	s := NewSchedulerService(time.UTC, zap.NewNop().Sugar())
	if _, err := s.ScheduleDaily("08:00", func() {}); err != nil {
		t.Fatalf("ScheduleDaily: %v", err)
	}
	if _, err := s.ScheduleInterval(2*time.Hour, func() {}); err != nil {
		t.Fatalf("ScheduleInterval: %v", err)
	}
	if _, err := s.ScheduleInterval(0, func() {}); err == nil {
		t.Error("zero interval accepted")
	}
	if s.Entries() != 2 {
		t.Errorf("Entries = %d", s.Entries())
	}
	s.Start()
	s.Stop()
}
