package domain

import "time"

// User is an alert owner. TelegramChatID is zero until the owner links a chat with /start.
type User struct {
	ID             uint
	TelegramChatID int64
	DisplayName    string
	Muted          bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
