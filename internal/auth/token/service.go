package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/pysugar/fintrack/internal/db"
	"github.com/pysugar/fintrack/internal/db/models"
	"github.com/pysugar/fintrack/internal/logging"
	"github.com/pysugar/fintrack/internal/metrics"
	"go.uber.org/zap"
)

// SessionStore is the persistence the service needs. *db.SessionStore implements it.
type SessionStore interface {
	Create(ctx context.Context, userID uint, tokenHash string, expiresAt, now time.Time) (uint, error)
	FindLive(ctx context.Context, userID uint, tokenHash string, now time.Time) (*models.Session, error)
	Touch(ctx context.Context, sessionID uint, now time.Time) error
	Revoke(ctx context.Context, sessionID uint) error
	RevokeAllForUser(ctx context.Context, userID uint) (int64, error)
}

// Pair is the result of a successful issuance.
type Pair struct {
	AccessToken  string
	RefreshToken string
	SessionID    uint
}

// Options configures a Service.
type Options struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	SessionTTL time.Duration
	Now        func() time.Time
	Logger     *zap.Logger
}

// Service issues token pairs and verifies presented tokens against both the
// signature and the live session table.
type Service struct {
	codec      *Codec
	sessions   SessionStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	sessionTTL time.Duration
	now        func() time.Time
	log        *zap.Logger
}

// NewService wires a codec and a session store.
func NewService(codec *Codec, sessions SessionStore, opts Options) *Service {
	s := &Service{
		codec:      codec,
		sessions:   sessions,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		sessionTTL: opts.SessionTTL,
		now:        opts.Now,
		log:        opts.Logger,
	}
	if s.accessTTL == 0 {
		s.accessTTL = 7 * 24 * time.Hour
	}
	if s.refreshTTL == 0 {
		s.refreshTTL = 30 * 24 * time.Hour
	}
	if s.sessionTTL == 0 {
		s.sessionTTL = s.accessTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// HashToken returns the hex SHA-256 digest stored in place of a raw token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IssueTokenPair signs an access and a refresh token and records a session
// bound to the access token. Nothing is returned unless the session row was
// written, so a caller never hands out a token it could not later verify.
func (s *Service) IssueTokenPair(ctx context.Context, id Identity) (*Pair, error) {
	access, err := s.codec.Issue(id, KindAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.Issue(id, KindRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	now := s.now()
	hash := HashToken(access)
	sessionID, err := s.sessions.Create(ctx, id.UserID, hash, now.Add(s.sessionTTL), now)
	if err != nil {
		return nil, fmt.Errorf("issue token pair for user %d: %w", id.UserID, err)
	}
	metrics.SessionsIssuedTotal.Inc()

	logging.FromContext(ctx, s.log).Debug("session issued",
		zap.Uint("user_id", id.UserID),
		zap.Uint("session_id", sessionID),
		zap.String("token_hash", logging.MaskHash(hash)),
	)

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    sessionID,
	}, nil
}

// Verify accepts only a live access token: the signature and expiry must hold,
// the kind must be access, and a session matching the hash of the presented
// token must still exist. On success the session is touched and the payload
// carries its id. Every failure satisfies errors.Is(err, ErrInvalid).
func (s *Service) Verify(ctx context.Context, raw string) (*Payload, error) {
	payload, err := s.codec.Parse(raw)
	if err != nil {
		metrics.TokenVerificationsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}
	if payload.Kind != KindAccess {
		metrics.TokenVerificationsTotal.WithLabelValues("wrong_kind").Inc()
		return nil, invalid(ErrWrongKind)
	}

	now := s.now()
	session, err := s.sessions.FindLive(ctx, payload.UserID, HashToken(raw), now)
	if errors.Is(err, db.ErrNotFound) {
		metrics.TokenVerificationsTotal.WithLabelValues("session_not_found").Inc()
		return nil, invalid(ErrSessionNotFound)
	}
	if err != nil {
		metrics.TokenVerificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	// Best-effort; a failed touch does not invalidate the request.
	if err := s.sessions.Touch(ctx, session.ID, now); err != nil {
		logging.FromContext(ctx, s.log).Warn("failed to touch session",
			zap.Uint("session_id", session.ID), zap.Error(err))
	}

	metrics.TokenVerificationsTotal.WithLabelValues("valid").Inc()
	payload.SessionID = session.ID
	return payload, nil
}

// ParseRefresh validates a refresh token by signature, expiry and kind only.
// Refresh tokens are not bound to a session row.
func (s *Service) ParseRefresh(raw string) (*Payload, error) {
	payload, err := s.codec.Parse(raw)
	if err != nil {
		return nil, err
	}
	if payload.Kind != KindRefresh {
		return nil, invalid(ErrWrongKind)
	}
	return payload, nil
}

// Revoke deletes a single session.
func (s *Service) Revoke(ctx context.Context, sessionID uint) error {
	return s.sessions.Revoke(ctx, sessionID)
}

// RevokeAllForUser deletes every session of userID.
func (s *Service) RevokeAllForUser(ctx context.Context, userID uint) (int64, error) {
	return s.sessions.RevokeAllForUser(ctx, userID)
}

// AccessTTL is the lifetime of issued access tokens.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL is the lifetime of issued refresh tokens.
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "error"
	}
}
