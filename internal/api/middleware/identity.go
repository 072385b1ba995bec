// Package middleware holds the HTTP middleware chain: request ids and access
// logging, metrics, cookie session authentication and authorization checks.
package middleware

import (
	"context"
	"errors"
)

// Authorization failures.
var (
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("access denied")
)

// Identity is the authenticated caller of a request. It is attached to the
// request context by SessionAuth and is never modified afterwards.
type Identity struct {
	UserID    uint
	Email     string
	IsAdmin   bool
	SessionID uint
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller identity, if the request is authenticated.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// RequireAuth returns the caller or ErrUnauthorized.
func RequireAuth(ctx context.Context) (Identity, error) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return Identity{}, ErrUnauthorized
	}
	return id, nil
}

// RequireAdmin returns the caller if it is an administrator.
func RequireAdmin(ctx context.Context) (Identity, error) {
	id, err := RequireAuth(ctx)
	if err != nil {
		return Identity{}, err
	}
	if !id.IsAdmin {
		return Identity{}, ErrForbidden
	}
	return id, nil
}

// RequireOwnership returns the caller if it owns the resource of ownerID or
// is an administrator.
func RequireOwnership(ctx context.Context, ownerID uint) (Identity, error) {
	id, err := RequireAuth(ctx)
	if err != nil {
		return Identity{}, err
	}
	if !id.IsAdmin && id.UserID != ownerID {
		return Identity{}, ErrForbidden
	}
	return id, nil
}
