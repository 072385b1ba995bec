package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/pysugar/fintrack/internal/db"
	"github.com/pysugar/fintrack/internal/db/dbtest"
	"github.com/pysugar/fintrack/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore_FindByEmailAndID(t *testing.T) {
	database := dbtest.New(t)
	store := db.NewUserStore(database)
	ctx := context.Background()

	user := &models.User{Email: "a@x.com", EmailVerified: true}
	require.NoError(t, store.Create(ctx, user))

	byEmail, err := store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, byID.EmailVerified)

	_, err = store.FindByID(ctx, user.ID+100)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestUserStore_EmailIsUnique(t *testing.T) {
	database := dbtest.New(t)
	store := db.NewUserStore(database)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &models.User{Email: "a@x.com"}))
	err := store.Create(ctx, &models.User{Email: "a@x.com"})
	assert.ErrorIs(t, err, db.ErrDuplicate)
}

func TestUserStore_LinkAccountAndFindByOAuth(t *testing.T) {
	database := dbtest.New(t)
	store := db.NewUserStore(database)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	user := &models.User{Email: "a@x.com"}
	require.NoError(t, store.Create(ctx, user))

	_, err := store.LinkAccount(ctx, user.ID, "google", "g1", now)
	require.NoError(t, err)

	found, err := store.FindByOAuth(ctx, "google", "g1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "a@x.com", found.Email)

	_, err = store.FindByOAuth(ctx, "google", "g2")
	assert.ErrorIs(t, err, db.ErrNotFound)

	other := &models.User{Email: "b@x.com"}
	require.NoError(t, store.Create(ctx, other))
	_, err = store.LinkAccount(ctx, other.ID, "google", "g1", now)
	assert.ErrorIs(t, err, db.ErrDuplicate, "(provider, account) maps to one user")

	count, err := store.CountAccounts(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUserStore_TransactionRollsBack(t *testing.T) {
	database := dbtest.New(t)
	store := db.NewUserStore(database)
	ctx := context.Background()

	err := store.Transaction(ctx, func(tx *db.UserStore) error {
		if err := tx.Create(ctx, &models.User{Email: "a@x.com"}); err != nil {
			return err
		}
		return tx.Create(ctx, &models.User{Email: "a@x.com"})
	})
	assert.ErrorIs(t, err, db.ErrDuplicate)

	_, err = store.FindByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestUserStore_TouchLastLogin(t *testing.T) {
	database := dbtest.New(t)
	store := db.NewUserStore(database)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	user := &models.User{Email: "a@x.com"}
	require.NoError(t, store.Create(ctx, user))
	require.NoError(t, store.TouchLastLogin(ctx, user.ID, now))

	found, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
	assert.True(t, found.LastLoginAt.Equal(now))
}
