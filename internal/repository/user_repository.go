package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"brainboard/internal/model"
)

// UserRepository handles CRUD for accounts.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// EnsureAccount finds or creates the account for the given UID. An
// empty UID creates a fresh account with a generated id.
func (r *UserRepository) EnsureAccount(ctx context.Context, uid string) (*model.User, error) {
	db := r.db.WithContext(ctx)

	if uid == "" {
		user := model.User{UID: uuid.NewString()}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		return &user, nil
	}

	var user model.User
	err := db.Where("uid = ?", uid).First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{UID: uid}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find account: %w", err)
	}
}

// BindTelegram attaches a Telegram chat to the account and updates
// basic profile info. Reminders are delivered to the bound chat.
func (r *UserRepository) BindTelegram(ctx context.Context, uid string, telegramID int64, firstName, lastName, username string) error {
	updates := map[string]interface{}{
		"telegram_id": telegramID,
		"first_name":  firstName,
		"last_name":   lastName,
		"username":    username,
	}
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("uid = ?", uid).Updates(updates).Error; err != nil {
		return fmt.Errorf("bind telegram: %w", err)
	}
	return nil
}

// FindByUID fetches one account.
func (r *UserRepository) FindByUID(ctx context.Context, uid string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
