package models

import "time"

// OAuthAccount links a User to one external identity.
// The pair (Provider, ProviderAccountID) is unique across the table.
type OAuthAccount struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"index:oauth_user_idx;not null" json:"user_id"`
	Provider          string    `gorm:"size:32;uniqueIndex:provider_account_idx;not null" json:"provider"` // e.g., "google"
	ProviderAccountID string    `gorm:"size:255;uniqueIndex:provider_account_idx;not null" json:"provider_account_id"`
	CreatedAt         time.Time `json:"created_at"`

	User User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName pins the table name used by the rest of the tracker.
func (OAuthAccount) TableName() string {
	return "oauth_accounts"
}
