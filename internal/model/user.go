package model

import "time"

// User is the owning account for a task collection. UID scopes every
// store operation; TelegramID is the delivery address for reminders and
// stays zero until the chat is bound with /start.
type User struct {
	ID         uint   `gorm:"primaryKey"`
	UID        string `gorm:"uniqueIndex"`
	TelegramID int64  `gorm:"index"`
	FirstName  string
	LastName   string
	Username   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
