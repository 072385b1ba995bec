// Package token issues and verifies signed access/refresh tokens and binds
// access tokens to revocable server-side sessions.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind discriminates access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Issuer is written to and required in every token.
const Issuer = "fintrack"

// Codec failures. Callers that only need yes/no should test for ErrInvalid.
var (
	ErrInvalid          = errors.New("invalid token")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
	ErrMalformed        = errors.New("token is malformed")
	ErrWrongKind        = errors.New("token kind not accepted here")
	ErrSessionNotFound  = errors.New("session not found or revoked")
)

// Identity is the subject a token is issued for.
type Identity struct {
	UserID  uint
	Email   string
	IsAdmin bool
}

// Payload is the verified content of a token. SessionID is set only by
// Service.Verify, after the backing session was found live.
type Payload struct {
	UserID    uint
	Email     string
	IsAdmin   bool
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
	SessionID uint
}

type claims struct {
	UserID  uint   `json:"userId"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin,omitempty"`
	Kind    Kind   `json:"type"`
	jwt.RegisteredClaims
}

// Codec signs and parses HS256 JWTs with a single server-held secret.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec creates a codec. now may be nil to use the wall clock.
func NewCodec(secret []byte, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{secret: secret, now: now}
}

// Issue signs a token of the given kind for id, valid for ttl.
// Refresh tokens do not carry the admin flag.
func (c *Codec) Issue(id Identity, kind Kind, ttl time.Duration) (string, error) {
	if kind != KindAccess && kind != KindRefresh {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}
	now := c.now()
	cl := claims{
		UserID:  id.UserID,
		Email:   id.Email,
		IsAdmin: id.IsAdmin && kind == KindAccess,
		Kind:    kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    Issuer,
			Subject:   fmt.Sprintf("%d", id.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Parse verifies signature and expiry and returns the token's payload.
// Errors wrap ErrInvalid together with ErrInvalidSignature, ErrExpired or ErrMalformed.
func (c *Codec) Parse(tokenString string) (*Payload, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(tokenString, &cl,
		func(*jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, invalid(classify(err))
	}
	if cl.UserID == 0 || (cl.Kind != KindAccess && cl.Kind != KindRefresh) {
		return nil, invalid(ErrMalformed)
	}

	p := &Payload{
		UserID:    cl.UserID,
		Email:     cl.Email,
		IsAdmin:   cl.IsAdmin,
		Kind:      cl.Kind,
		ExpiresAt: cl.ExpiresAt.Time,
	}
	if cl.IssuedAt != nil {
		p.IssuedAt = cl.IssuedAt.Time
	}
	return p, nil
}

// classify maps jwt errors onto the codec's failure kinds.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrMalformed
	}
}

func invalid(cause error) error {
	return fmt.Errorf("%w: %w", ErrInvalid, cause)
}
