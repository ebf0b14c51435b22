package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"daily-planner-ai/internal/datemath"
	"daily-planner-ai/internal/model"
	"daily-planner-ai/internal/repository"
	"daily-planner-ai/internal/service"
	"daily-planner-ai/internal/store"
)

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• just write to me, e.g. \"gym every Monday and Wednesday\"\n" +
	"• /today — tasks due today\n" +
	"• /tasks [YYYY-MM-DD] — tasks due on a day\n" +
	"• /add &lt;title&gt; [| date] [| DAILY, WEEKLY:1,3 or MONTHLY:5] — add a task\n" +
	"• /done &lt;n&gt; — toggle task n of the last listing\n" +
	"• /edit &lt;n&gt; [title] [| date] [| recurrence or NONE] — change task n, empty fields stay\n" +
	"• /delete &lt;n&gt; — delete task n of the last listing\n" +
	"• /stats — last 30 days\n" +
	"• /month [YYYY-MM] — calendar\n" +
	"• /reset — forget our conversation"

// Bot aggregates Telegram API with services.
type Bot struct {
	api       *tgbotapi.BotAPI
	users     *repository.UserRepository
	tasks     *service.TaskService
	chat      *service.ChatService
	reminders *service.ReminderService
	log       *zap.SugaredLogger

	mu       sync.Mutex
	listings map[int64][]string // chat -> task ids of the last listing
}

// New connects to Telegram. chat may be nil when no assistant is configured.
func New(token string, users *repository.UserRepository, tasks *service.TaskService, chat *service.ChatService, reminders *service.ReminderService, log *zap.SugaredLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Infow("bot authorized", "account", api.Self.UserName)

	return &Bot{
		api:       api,
		users:     users,
		tasks:     tasks,
		chat:      chat,
		reminders: reminders,
		log:       log,
		listings:  make(map[int64][]string),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Errorw("handle callback", "error", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Errorw("handle message", "chat_id", update.Message.Chat.ID, "error", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		b.log.Infow("command", "user", msg.From.ID, "command", msg.Command(), "args", msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	switch strings.TrimSpace(msg.Text) {
	case menuLabelToday:
		return b.sendDay(msg.Chat.ID, b.tasks.Today(time.Now()))
	case menuLabelStats:
		return b.sendText(msg.Chat.ID, b.reminders.StatsSummary(time.Now()))
	case menuLabelMonth:
		return b.handleMonth(msg.Chat.ID, "")
	case menuLabelHelp:
		return b.sendText(msg.Chat.ID, helpText)
	}

	return b.handleChat(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := msg.CommandArguments()

	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.sendText(chatID, helpText)
	case "today":
		return b.sendDay(chatID, b.tasks.Today(time.Now()))
	case "tasks":
		return b.handleTasks(chatID, args)
	case "add":
		return b.handleAdd(ctx, chatID, args)
	case "done":
		return b.handleByIndex(ctx, chatID, args, b.toggle)
	case "edit":
		return b.handleEdit(ctx, chatID, args)
	case "delete":
		return b.handleByIndex(ctx, chatID, args, b.deleteTask)
	case "stats":
		return b.sendText(chatID, b.reminders.StatsSummary(time.Now()))
	case "month":
		return b.handleMonth(chatID, args)
	case "reset":
		if b.chat == nil {
			return b.sendText(chatID, "The assistant is not configured.")
		}
		if err := b.chat.Reset(ctx, chatID); err != nil {
			return b.sendText(chatID, fmt.Sprintf("Could not reset the conversation: %s", escape(err.Error())))
		}
		return b.sendText(chatID, "🧹 Conversation cleared.")
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf("👋 Hi, %s!\n<b>I'm your daily planner.</b> Tell me what you need to do and when, "+
		"and I'll keep track of it. You'll get a report every morning.\n\n%s", escape(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleChat(ctx context.Context, msg *tgbotapi.Message) error {
	if b.chat == nil {
		return b.sendText(msg.Chat.ID, "The assistant is not configured. Use /add to create tasks.")
	}
	if _, err := b.ensureUser(ctx, msg); err != nil {
		b.log.Warnw("register user", "user", msg.From.ID, "error", err)
	}

	reply, err := b.chat.Send(ctx, msg.Chat.ID, msg.Text, time.Now())
	if err != nil {
		b.log.Errorw("assistant turn", "chat_id", msg.Chat.ID, "error", err)
	}

	text := escape(reply.Text)
	if reply.Task != nil {
		text += "\n\n" + formatCreated(*reply.Task)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleTasks(chatID int64, args string) error {
	args = strings.TrimSpace(args)
	if args == "" {
		return b.sendDay(chatID, b.tasks.Today(time.Now()))
	}
	day, err := datemath.ParseISODate(args)
	if err != nil {
		return b.sendText(chatID, "Date must look like 2024-03-15.")
	}
	return b.sendDay(chatID, day)
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) error {
	input, err := parseAddArgs(args)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not read the task: %s\nExample: /add Gym | TOMORROW | WEEKLY:1,3", escape(err.Error())))
	}
	task, err := b.tasks.Create(ctx, input, time.Now())
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not add the task: %s", escape(err.Error())))
	}
	return b.sendText(chatID, formatCreated(task))
}

func (b *Bot) handleMonth(chatID int64, args string) error {
	year, month, err := parseMonthArg(args, time.Now().In(b.tasks.Location()))
	if err != nil {
		return b.sendText(chatID, escape(err.Error()))
	}
	return b.sendText(chatID, b.reminders.MonthSummary(year, month))
}

func (b *Bot) handleByIndex(ctx context.Context, chatID int64, args string, action func(context.Context, int64, string) error) error {
	ids := b.listing(chatID)
	if len(ids) == 0 {
		return b.sendText(chatID, "Show a list first with /today or /tasks.")
	}
	i, err := parseIndex(args, len(ids))
	if err != nil {
		return b.sendText(chatID, escape(err.Error()))
	}
	return action(ctx, chatID, ids[i])
}

func (b *Bot) handleEdit(ctx context.Context, chatID int64, args string) error {
	pos, upd, err := parseEditArgs(args)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not read the change: %s\nExample: /edit 2 Gym | TOMORROW | NONE", escape(err.Error())))
	}
	return b.handleByIndex(ctx, chatID, pos, func(ctx context.Context, chatID int64, id string) error {
		task, err := b.tasks.Update(ctx, id, upd, time.Now())
		if err != nil {
			return b.sendTaskError(chatID, err)
		}
		return b.sendText(chatID, formatUpdated(task))
	})
}

func (b *Bot) toggle(ctx context.Context, chatID int64, id string) error {
	task, err := b.tasks.Toggle(ctx, id)
	if err != nil {
		return b.sendTaskError(chatID, err)
	}
	state := "⬜️ Not done"
	if task.Completed {
		state = "✅ Done"
	}
	return b.sendText(chatID, fmt.Sprintf("%s: %s", state, escape(task.Title)))
}

func (b *Bot) deleteTask(ctx context.Context, chatID int64, id string) error {
	task, err := b.tasks.Get(id)
	if err != nil {
		return b.sendTaskError(chatID, err)
	}
	if err := b.tasks.Delete(ctx, id); err != nil {
		return b.sendTaskError(chatID, err)
	}
	return b.sendText(chatID, fmt.Sprintf("🗑 Task \"%s\" deleted.", escape(task.Title)))
}

func (b *Bot) sendTaskError(chatID int64, err error) error {
	if errors.Is(err, store.ErrTaskNotFound) {
		return b.sendText(chatID, "Task not found. It may have been deleted.")
	}
	return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warnw("callback ack", "error", err)
	}

	chatID := cb.Message.Chat.ID
	switch {
	case strings.HasPrefix(cb.Data, cbTogglePrefix):
		b.log.Infow("callback toggle", "user", cb.From.ID, "task", strings.TrimPrefix(cb.Data, cbTogglePrefix))
		return b.toggle(ctx, chatID, strings.TrimPrefix(cb.Data, cbTogglePrefix))
	case strings.HasPrefix(cb.Data, cbDeletePrefix):
		b.log.Infow("callback delete", "user", cb.From.ID, "task", strings.TrimPrefix(cb.Data, cbDeletePrefix))
		return b.deleteTask(ctx, chatID, strings.TrimPrefix(cb.Data, cbDeletePrefix))
	default:
		return nil
	}
}

// SendDailyReports sends today's summary to every known user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.users.ListAll(ctx)
	if err != nil {
		return err
	}
	text := b.reminders.DailySummary(time.Now())
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendText(reportChat(user), text); err != nil {
			b.log.Warnw("send daily report", "user", user.TelegramID, "error", err)
		}
	}
	b.log.Infow("daily reports sent", "users", len(users))
	return nil
}

// sendDay lists the tasks of a calendar day and remembers the listing.
func (b *Bot) sendDay(chatID int64, day time.Time) error {
	tasks := b.tasks.ForDate(day)
	b.setListing(chatID, tasks)

	title := fmt.Sprintf("📋 <b>%s</b>", day.Format("Monday, 02 Jan 2006"))
	msg := tgbotapi.NewMessage(chatID, formatListing(title, tasks))
	msg.ParseMode = tgbotapi.ModeHTML
	if len(tasks) > 0 {
		msg.ReplyMarkup = listingKeyboard(tasks)
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) ensureUser(ctx context.Context, msg *tgbotapi.Message) (*model.User, error) {
	from := msg.From
	return b.users.UpsertFromTelegram(ctx, from.ID, msg.Chat.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) setListing(chatID int64, tasks []model.Task) {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	b.mu.Lock()
	b.listings[chatID] = ids
	b.mu.Unlock()
}

func (b *Bot) listing(chatID int64) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listings[chatID]
}

func reportChat(user model.User) int64 {
	if user.ChatID != 0 {
		return user.ChatID
	}
	return user.TelegramID
}
