package models

import "time"

// Session backs one issued access token. Token holds the hex SHA-256 of the
// access token, never the token itself.
type Session struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"index:session_user_idx;not null" json:"user_id"`
	Token          string     `gorm:"size:64;uniqueIndex:session_token_idx;not null" json:"-"`
	ExpiresAt      time.Time  `gorm:"index:session_expires_idx;not null" json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at"`

	User User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
