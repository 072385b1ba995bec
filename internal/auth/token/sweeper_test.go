package token

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pysugar/fintrack/internal/db"
	"github.com/pysugar/fintrack/internal/db/dbtest"
	"github.com/pysugar/fintrack/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_SweepOnce(t *testing.T) {
	database := dbtest.New(t)
	store := db.NewSessionStore(database)
	ctx := context.Background()
	clock := newClock()

	u := &models.User{Email: "a@x.com"}
	require.NoError(t, db.NewUserStore(database).Create(ctx, u))
	_, err := store.Create(ctx, u.ID, "expired", clock.t.Add(-time.Minute), clock.t.Add(-time.Hour))
	require.NoError(t, err)
	_, err = store.Create(ctx, u.ID, "live", clock.t.Add(time.Hour), clock.t)
	require.NoError(t, err)

	sweeper := NewSweeper(store, time.Hour, nil)
	sweeper.now = clock.Now

	n, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.FindLive(ctx, u.ID, "live", clock.t)
	assert.NoError(t, err)
}

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepExpired(context.Context, time.Time) (int64, error) {
	c.calls.Add(1)
	return 0, c.err
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	store := &countingSweeper{err: errors.New("transient")}
	sweeper := NewSweeper(store, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	require.Eventually(t, func() bool { return store.calls.Load() >= 2 }, time.Second, 5*time.Millisecond,
		"errors are retried on the next tick")
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSweeper_DisabledWaitsForCancel(t *testing.T) {
	store := &countingSweeper{}
	sweeper := NewSweeper(store, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, sweeper.Run(ctx))
	assert.Zero(t, store.calls.Load())
}
