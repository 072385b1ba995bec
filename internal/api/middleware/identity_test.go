package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAuth(t *testing.T) {
	_, err := RequireAuth(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)

	ctx := WithIdentity(context.Background(), Identity{UserID: 7})
	id, err := RequireAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id.UserID)
}

func TestRequireAdmin(t *testing.T) {
	_, err := RequireAdmin(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = RequireAdmin(WithIdentity(context.Background(), Identity{UserID: 7}))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = RequireAdmin(WithIdentity(context.Background(), Identity{UserID: 7, IsAdmin: true}))
	assert.NoError(t, err)
}

func TestRequireOwnership(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		ownerID uint
		wantErr error
	}{
		{"anonymous", context.Background(), 42, ErrUnauthorized},
		{"other user", WithIdentity(context.Background(), Identity{UserID: 7}), 42, ErrForbidden},
		{"owner", WithIdentity(context.Background(), Identity{UserID: 42}), 42, nil},
		{"admin", WithIdentity(context.Background(), Identity{UserID: 7, IsAdmin: true}), 42, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RequireOwnership(tt.ctx, tt.ownerID)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
