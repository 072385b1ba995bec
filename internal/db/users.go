package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pysugar/fintrack/internal/db/models"
	"gorm.io/gorm"
)

// ErrDuplicate is returned when an insert hits a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

// UserStore reads and writes users and their linked OAuth accounts.
type UserStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewUserStore creates a user store over database.
func NewUserStore(database *gorm.DB) *UserStore {
	return &UserStore{db: database, timeout: DefaultQueryTimeout}
}

// Transaction runs fn with a store bound to a single database transaction.
func (s *UserStore) Transaction(ctx context.Context, fn func(tx *UserStore) error) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UserStore{db: tx, timeout: 0})
	})
}

// FindByID returns the user with the given id.
func (s *UserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var user models.User
	return s.take(s.db.WithContext(ctx).Where("id = ?", id), &user)
}

// FindByEmail returns the user with the given email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var user models.User
	return s.take(s.db.WithContext(ctx).Where("email = ?", email), &user)
}

// FindByOAuth returns the user linked to (provider, providerAccountID).
func (s *UserStore) FindByOAuth(ctx context.Context, provider, providerAccountID string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var user models.User
	q := s.db.WithContext(ctx).
		Joins("JOIN oauth_accounts ON oauth_accounts.user_id = users.id").
		Where("oauth_accounts.provider = ? AND oauth_accounts.provider_account_id = ?", provider, providerAccountID)
	return s.take(q, &user)
}

// Create inserts a new user.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return wrapWriteErr("create user", err)
	}
	return nil
}

// LinkAccount records that userID owns (provider, providerAccountID).
func (s *UserStore) LinkAccount(ctx context.Context, userID uint, provider, providerAccountID string, now time.Time) (*models.OAuthAccount, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	account := models.OAuthAccount{
		UserID:            userID,
		Provider:          provider,
		ProviderAccountID: providerAccountID,
		CreatedAt:         now.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, wrapWriteErr("link oauth account", err)
	}
	return &account, nil
}

// TouchLastLogin sets the user's last login time.
func (s *UserStore) TouchLastLogin(ctx context.Context, userID uint, now time.Time) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login_at", now.UTC()).Error
	if err != nil {
		return fmt.Errorf("touch last login for user %d: %w", userID, err)
	}
	return nil
}

// CountAccounts returns the number of OAuth accounts linked to userID.
func (s *UserStore) CountAccounts(ctx context.Context, userID uint) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var count int64
	err := s.db.WithContext(ctx).Model(&models.OAuthAccount{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count oauth accounts for user %d: %w", userID, err)
	}
	return count, nil
}

func (s *UserStore) take(q *gorm.DB, user *models.User) (*models.User, error) {
	err := q.Take(user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func wrapWriteErr(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
