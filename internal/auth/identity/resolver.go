// Package identity maps an externally asserted identity onto a local user.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pysugar/fintrack/internal/db"
	"github.com/pysugar/fintrack/internal/db/models"
	"github.com/pysugar/fintrack/internal/logging"
	"go.uber.org/zap"
)

// ErrIncompleteProfile is returned when the provider did not assert an account id or email.
var ErrIncompleteProfile = errors.New("external profile lacks account id or email")

// Profile is a provider profile normalized for resolution.
type Profile struct {
	Provider          string
	ProviderAccountID string
	Email             string
	Name              string
	Avatar            string
}

// Resolver finds or creates the local user for an external identity.
type Resolver struct {
	users *db.UserStore
	now   func() time.Time
	log   *zap.Logger
}

// NewResolver creates a resolver backed by users.
func NewResolver(users *db.UserStore, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{users: users, now: time.Now, log: log}
}

// FindOrCreate resolves p in this order: an existing (provider, account id)
// link; else a user with the same email, which gets the link added; else a
// new email-verified user with the link. Every path records a login.
// Calling it again with the same profile returns the same user and creates
// no rows.
func (r *Resolver) FindOrCreate(ctx context.Context, p Profile) (*models.User, error) {
	if p.Provider == "" || p.ProviderAccountID == "" || p.Email == "" {
		return nil, ErrIncompleteProfile
	}

	user, err := r.resolve(ctx, p)
	if errors.Is(err, db.ErrDuplicate) {
		// A concurrent login for the same identity won the insert; the
		// second pass finds its rows.
		user, err = r.resolve(ctx, p)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s identity: %w", p.Provider, err)
	}
	return user, nil
}

func (r *Resolver) resolve(ctx context.Context, p Profile) (*models.User, error) {
	log := logging.FromContext(ctx, r.log)
	now := r.now().UTC()

	var resolved *models.User
	err := r.users.Transaction(ctx, func(tx *db.UserStore) error {
		user, err := tx.FindByOAuth(ctx, p.Provider, p.ProviderAccountID)
		switch {
		case err == nil:
			log.Debug("login via linked account", zap.Uint("user_id", user.ID), zap.String("provider", p.Provider))
		case errors.Is(err, db.ErrNotFound):
			user, err = r.linkOrCreate(ctx, tx, p, now)
			if err != nil {
				return err
			}
		default:
			return err
		}

		if err := tx.TouchLastLogin(ctx, user.ID, now); err != nil {
			return err
		}
		user.LastLoginAt = &now
		resolved = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func (r *Resolver) linkOrCreate(ctx context.Context, tx *db.UserStore, p Profile, now time.Time) (*models.User, error) {
	log := logging.FromContext(ctx, r.log)

	user, err := tx.FindByEmail(ctx, p.Email)
	switch {
	case err == nil:
		log.Info("linking oauth account to existing user",
			zap.Uint("user_id", user.ID), zap.String("provider", p.Provider))
	case errors.Is(err, db.ErrNotFound):
		user = &models.User{
			Email:         p.Email,
			Name:          optional(p.Name),
			Avatar:        optional(p.Avatar),
			EmailVerified: true,
			CreatedAt:     now,
		}
		if err := tx.Create(ctx, user); err != nil {
			return nil, err
		}
		log.Info("created user from oauth login",
			zap.Uint("user_id", user.ID), zap.String("provider", p.Provider))
	default:
		return nil, err
	}

	if _, err := tx.LinkAccount(ctx, user.ID, p.Provider, p.ProviderAccountID, now); err != nil {
		return nil, err
	}
	return user, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
