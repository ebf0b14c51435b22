package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"daily-planner-ai/internal/assistant"
	"daily-planner-ai/internal/intent"
	"daily-planner-ai/internal/model"
)

// Replies shown when the assistant could not be used.
const (
	ErrorReply     = "Sorry, something went wrong while processing your message. Check your connection and assistant token."
	NoAnswerReply  = "Sorry, I didn't understand."
	TaskFailedText = "I understood the task but could not add it: %v"
)

// ChatHistory stores conversation turns per chat.
type ChatHistory interface {
	Append(ctx context.Context, msg *model.ChatMessage) error
	History(ctx context.Context, chatID int64, limit int) ([]model.ChatMessage, error)
	Clear(ctx context.Context, chatID int64) error
}

// Reply is what the user sees after one turn.
type Reply struct {
	Text      string
	Task      *model.Task
	Anomalies []string
}

// ChatService runs one conversational turn: history, assistant call, intent
// extraction and task creation.
type ChatService struct {
	sender       assistant.Sender
	history      ChatHistory
	tasks        *TaskService
	historyLimit int
	log          *zap.SugaredLogger
}

func NewChatService(sender assistant.Sender, history ChatHistory, tasks *TaskService, historyLimit int, log *zap.SugaredLogger) *ChatService {
	return &ChatService{
		sender:       sender,
		history:      history,
		tasks:        tasks,
		historyLimit: historyLimit,
		log:          log,
	}
}

// Send processes text from chatID. When the assistant fails the returned
// Reply still carries a text for the user, the error is returned alongside it
// and no task is created.
func (s *ChatService) Send(ctx context.Context, chatID int64, text string, now time.Time) (Reply, error) {
	prior, err := s.history.History(ctx, chatID, s.historyLimit)
	if err != nil {
		s.log.Warnw("load chat history", "chat_id", chatID, "error", err)
		prior = nil
	}
	s.remember(ctx, chatID, model.RoleUser, text)

	raw, err := s.sender.Send(ctx, text, prior)
	if err != nil {
		reply := Reply{Text: ErrorReply}
		if errors.Is(err, assistant.ErrEmptyReply) {
			reply.Text = NoAnswerReply
		}
		s.remember(ctx, chatID, model.RoleAssistant, reply.Text)
		return reply, fmt.Errorf("assistant send: %w", err)
	}

	parsed := intent.Parse(raw)
	reply := Reply{Text: parsed.Text, Anomalies: parsed.Anomalies}
	for _, a := range parsed.Anomalies {
		s.log.Warnw("assistant reply anomaly", "chat_id", chatID, "anomaly", a)
	}

	if parsed.HasTask() {
		task, err := s.tasks.CreateFromIntent(ctx, parsed, now)
		if err != nil {
			s.log.Warnw("create task from reply", "chat_id", chatID, "error", err)
			reply.Text = fmt.Sprintf(TaskFailedText, err)
		} else {
			reply.Task = &task
		}
	}

	s.remember(ctx, chatID, model.RoleAssistant, reply.Text)
	return reply, nil
}

// Reset forgets the conversation of chatID.
func (s *ChatService) Reset(ctx context.Context, chatID int64) error {
	if err := s.history.Clear(ctx, chatID); err != nil {
		return fmt.Errorf("clear chat history: %w", err)
	}
	return nil
}

func (s *ChatService) remember(ctx context.Context, chatID int64, role model.Role, text string) {
	msg := &model.ChatMessage{ChatID: chatID, Role: role, Text: text}
	if err := s.history.Append(ctx, msg); err != nil {
		s.log.Warnw("save chat message", "chat_id", chatID, "role", role, "error", err)
	}
}
