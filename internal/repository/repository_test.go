package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"daily-planner-ai/internal/model"
	"daily-planner-ai/internal/recurrence"
	"daily-planner-ai/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repository.Open(filepath.Join(t.TempDir(), "nested", "planner.db"), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestTaskRepository_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTaskRepository(newTestDB(t))

	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "b", Title: "Dentist", Date: "2024-03-04", CreatedAt: created},
		{ID: "a", Title: "Study", Date: "2024-03-01", Completed: true, CreatedAt: created,
			Recurrence: &model.Recurrence{Type: model.RecurWeekly, DaysOfWeek: []int{1, 3}, EndDate: "2024-06-30"}},
		{ID: "c", Title: "Rent", Date: "2024-01-01", CreatedAt: created,
			Recurrence: &model.Recurrence{Type: model.RecurMonthly, DayOfMonth: 5}},
	}

	if err := repo.Save(ctx, tasks); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Load returned %d tasks", len(got))
	}
	for i, want := range []string{"b", "a", "c"} {
		if got[i].ID != want {
			t.Errorf("position %d = %s, want %s (list order must survive)", i, got[i].ID, want)
		}
	}

	if got[0].Recurrence != nil {
		t.Errorf("one-off task gained a recurrence: %+v", got[0].Recurrence)
	}
	study := got[1]
	if !study.Completed || study.Recurrence == nil || study.Recurrence.Type != model.RecurWeekly {
		t.Fatalf("study = %+v", study)
	}
	if len(study.Recurrence.DaysOfWeek) != 2 || study.Recurrence.DaysOfWeek[1] != 3 || study.Recurrence.EndDate != "2024-06-30" {
		t.Errorf("weekly recurrence = %+v", study.Recurrence)
	}
	if got[2].Recurrence.DayOfMonth != 5 {
		t.Errorf("monthly recurrence = %+v", got[2].Recurrence)
	}
	if !got[0].CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v", got[0].CreatedAt)
	}
}

func TestTaskRepository_SaveReplacesEverything(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTaskRepository(newTestDB(t))

	if err := repo.Save(ctx, []model.Task{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Save(ctx, []model.Task{{ID: "b", Title: "B2"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" || got[0].Title != "B2" {
		t.Errorf("Load = %+v", got)
	}

	if err := repo.Save(ctx, nil); err != nil {
		t.Fatalf("Save(nil): %v", err)
	}
	if got, _ := repo.Load(ctx); len(got) != 0 {
		t.Errorf("empty save left %d tasks", len(got))
	}
}

func TestTaskRepository_MalformedRecurrenceSurvives(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTaskRepository(newTestDB(t))

	if err := repo.Save(ctx, []model.Task{{ID: "w", Title: "W", Date: "2024-01-01", Recurrence: &model.Recurrence{Type: model.RecurWeekly}}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got[0].Recurrence == nil || got[0].Recurrence.Type != model.RecurWeekly || len(got[0].Recurrence.DaysOfWeek) != 0 {
		t.Errorf("malformed recurrence should be kept as stored: %+v", got[0].Recurrence)
	}
}

func TestTaskRepository_BlankRecurrenceTypeSurvives(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTaskRepository(newTestDB(t))

	task := model.Task{ID: "x", Title: "X", Date: "2024-03-01", Recurrence: &model.Recurrence{}}
	if recurrence.IsDueOn(task, "2024-03-01") {
		t.Fatal("a rule without a type must never be due")
	}
	if err := repo.Save(ctx, []model.Task{task}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got[0].Recurrence == nil {
		t.Fatal("blank recurrence loaded back as a one-off task")
	}
	if recurrence.IsDueOn(got[0], "2024-03-01") {
		t.Error("reloaded task became due on its anchor day")
	}
}

func TestChatRepository_History(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewChatRepository(newTestDB(t))

	texts := []string{"hi", "hello", "add gym daily", "TASK: Gym"}
	for i, text := range texts {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		if err := repo.Append(ctx, &model.ChatMessage{ChatID: 42, Role: role, Text: text}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := repo.Append(ctx, &model.ChatMessage{ChatID: 7, Role: model.RoleUser, Text: "other chat"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	all, err := repo.History(ctx, 42, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("History returned %d messages", len(all))
	}
	for i, msg := range all {
		if msg.Text != texts[i] {
			t.Errorf("message %d = %q, want %q", i, msg.Text, texts[i])
		}
	}

	last, err := repo.History(ctx, 42, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(last) != 2 || last[0].Text != "add gym daily" || last[1].Text != "TASK: Gym" {
		t.Errorf("limited history = %+v", last)
	}

	if err := repo.Clear(ctx, 42); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if msgs, _ := repo.History(ctx, 42, 0); len(msgs) != 0 {
		t.Errorf("history after clear = %d", len(msgs))
	}
	if msgs, _ := repo.History(ctx, 7, 0); len(msgs) != 1 {
		t.Errorf("clear touched another chat")
	}
}

func TestUserRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(newTestDB(t))

	first, err := repo.UpsertFromTelegram(ctx, 100, 200, "Ana", "", "ana")
	if err != nil {
		t.Fatalf("UpsertFromTelegram: %v", err)
	}
	second, err := repo.UpsertFromTelegram(ctx, 100, 201, "Ana", "Silva", "ana")
	if err != nil {
		t.Fatalf("UpsertFromTelegram: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("upsert created a second user")
	}

	users, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(users) != 1 || users[0].ChatID != 201 || users[0].LastName != "Silva" {
		t.Errorf("users = %+v", users)
	}
}
