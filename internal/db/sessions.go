package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pysugar/fintrack/internal/db/models"
	"gorm.io/gorm"
)

// SessionStore persists issued sessions keyed by the hash of their access token.
// All methods are safe for concurrent use; atomicity comes from the database.
type SessionStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewSessionStore creates a session store over database.
func NewSessionStore(database *gorm.DB) *SessionStore {
	return &SessionStore{db: database, timeout: DefaultQueryTimeout}
}

// Create inserts a session row and returns its id.
func (s *SessionStore) Create(ctx context.Context, userID uint, tokenHash string, expiresAt, now time.Time) (uint, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	now = now.UTC()
	session := models.Session{
		UserID:         userID,
		Token:          tokenHash,
		ExpiresAt:      expiresAt.UTC(),
		CreatedAt:      now,
		LastAccessedAt: &now,
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}
	return session.ID, nil
}

// FindLive returns the session owned by userID whose hash equals tokenHash and
// whose expiry is after now. Expired rows that have not been swept yet are
// reported as ErrNotFound, the same as revoked ones.
func (s *SessionStore) FindLive(ctx context.Context, userID uint, tokenHash string, now time.Time) (*models.Session, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var session models.Session
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND token = ? AND expires_at > ?", userID, tokenHash, now.UTC()).
		Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// Touch records now as the session's last access time.
func (s *SessionStore) Touch(ctx context.Context, sessionID uint, now time.Time) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("last_accessed_at", now.UTC()).Error
	if err != nil {
		return fmt.Errorf("touch session %d: %w", sessionID, err)
	}
	return nil
}

// Revoke deletes a single session. Revoking a missing session is not an error.
func (s *SessionStore) Revoke(ctx context.Context, sessionID uint) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.WithContext(ctx).Delete(&models.Session{}, sessionID).Error; err != nil {
		return fmt.Errorf("revoke session %d: %w", sessionID, err)
	}
	return nil
}

// RevokeAllForUser deletes every session of userID and returns how many were removed.
func (s *SessionStore) RevokeAllForUser(ctx context.Context, userID uint) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("revoke sessions for user %d: %w", userID, result.Error)
	}
	return result.RowsAffected, nil
}

// SweepExpired deletes sessions whose expiry is at or before now.
// It only removes rows FindLive can no longer match, so it is safe to run
// alongside live traffic and repeatedly.
func (s *SessionStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	result := s.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("sweep expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListForUser returns the user's sessions, newest first.
func (s *SessionStore) ListForUser(ctx context.Context, userID uint) ([]models.Session, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var sessions []models.Session
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions for user %d: %w", userID, err)
	}
	return sessions, nil
}
