// Package tokenstore resolves connection credentials against the user_tokens table.
package tokenstore

import "time"

// UserTokenDTO maps an opaque bearer token to the user and role it authenticates.
// A nil ExpiresAt never expires.
type UserTokenDTO struct {
	Token     string `gorm:"primaryKey;size:128"`
	UserID    string `gorm:"size:64;index"`
	Role      string `gorm:"size:16"`
	ExpiresAt *time.Time
	CreatedAt time.Time
}

func (UserTokenDTO) TableName() string {
	return "user_tokens"
}
