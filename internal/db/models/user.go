package models

import "time"

// User is the local identity record. Rows are created on first OAuth login
// and are never deleted by the auth subsystem.
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Email         string     `gorm:"size:320;uniqueIndex:user_email_idx;not null" json:"email"`
	Name          *string    `json:"name"`
	Avatar        *string    `json:"avatar"`
	EmailVerified bool       `gorm:"default:false" json:"email_verified"`
	IsAdmin       bool       `gorm:"default:false" json:"is_admin"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at"`
}

// PublicProfile is what /api/auth/me and /api/users/{id} expose.
type PublicProfile struct {
	ID      uint    `json:"id"`
	Email   string  `json:"email"`
	Name    *string `json:"name"`
	Avatar  *string `json:"avatar"`
	IsAdmin bool    `json:"isAdmin"`
}

// Profile projects the user onto its public fields.
func (u *User) Profile() PublicProfile {
	return PublicProfile{
		ID:      u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Avatar:  u.Avatar,
		IsAdmin: u.IsAdmin,
	}
}
