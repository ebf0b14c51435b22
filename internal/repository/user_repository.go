package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"daily-planner-ai/internal/model"
)

// UserRepository keeps the report recipients: everyone who has talked to the
// bot, keyed by Telegram id.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertFromTelegram records a recipient. A known Telegram id keeps its row
// and gets the latest chat and profile names.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID, chatID int64, firstName, lastName, username string) (*model.User, error) {
	db := r.db.WithContext(ctx)
	recipient := model.User{
		TelegramID: telegramID,
		ChatID:     chatID,
		FirstName:  firstName,
		LastName:   lastName,
		Username:   username,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"chat_id", "first_name", "last_name", "username", "updated_at"}),
	}).Create(&recipient).Error
	if err != nil {
		return nil, fmt.Errorf("save recipient %d: %w", telegramID, err)
	}

	// The conflict branch does not report the existing row id.
	var stored model.User
	if err := db.Where("telegram_id = ?", telegramID).Take(&stored).Error; err != nil {
		return nil, fmt.Errorf("reload recipient %d: %w", telegramID, err)
	}
	return &stored, nil
}

// ListAll returns every recipient, oldest first.
func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	return users, nil
}
