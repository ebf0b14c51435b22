package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"daily-planner-ai/internal/model"
)

// ChatRepository keeps the assistant conversation of every chat.
type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Append(ctx context.Context, msg *model.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

// History returns the last limit messages of a chat, oldest first.
// A non-positive limit returns the whole conversation.
func (r *ChatRepository) History(ctx context.Context, chatID int64, limit int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	q := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Clear forgets the conversation of a chat.
func (r *ChatRepository) Clear(ctx context.Context, chatID int64) error {
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&model.ChatMessage{}).Error; err != nil {
		return fmt.Errorf("clear chat history: %w", err)
	}
	return nil
}
