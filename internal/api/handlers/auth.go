// Package handlers implements the fintrack HTTP endpoints.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/fintrack/internal/api/middleware"
	"github.com/pysugar/fintrack/internal/api/response"
	"github.com/pysugar/fintrack/internal/auth/oauth"
	"github.com/pysugar/fintrack/internal/auth/token"
	"github.com/pysugar/fintrack/internal/db"
	"github.com/pysugar/fintrack/internal/db/models"
	"github.com/pysugar/fintrack/internal/logging"
	"github.com/pysugar/fintrack/internal/metrics"
	"go.uber.org/zap"
)

// TokenService is the part of *token.Service the handlers use.
type TokenService interface {
	IssueTokenPair(ctx context.Context, id token.Identity) (*token.Pair, error)
	ParseRefresh(raw string) (*token.Payload, error)
	Revoke(ctx context.Context, sessionID uint) error
	RevokeAllForUser(ctx context.Context, userID uint) (int64, error)
}

// UserStore is the part of *db.UserStore the handlers use.
type UserStore interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	CountAccounts(ctx context.Context, userID uint) (int64, error)
}

// Redirects are the post-login destinations.
type Redirects struct {
	Success string
	Failure string
}

type successBody struct {
	Success bool `json:"success"`
}

var providerDisplayNames = map[string]string{
	oauth.ProviderGoogle: "Google",
	oauth.ProviderGitHub: "GitHub",
}

// LoginHandler starts the OAuth handshake for the {provider} route param.
func LoginHandler(coord *oauth.Coordinator, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := strings.ToLower(chi.URLParam(r, "provider"))

		authURL, err := coord.Start(w, r, provider)
		switch {
		case errors.Is(err, oauth.ErrUnsupportedProvider):
			response.Error(w, http.StatusBadRequest, "Invalid OAuth provider")
			return
		case errors.Is(err, oauth.ErrProviderNotConfigured):
			response.Error(w, http.StatusInternalServerError, providerDisplayNames[provider]+" OAuth not configured")
			return
		case err != nil:
			logging.FromContext(r.Context(), log).Error("failed to start oauth login",
				zap.String("provider", provider), zap.Error(err))
			response.InternalError(w)
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// CallbackHandler completes the handshake, sets the session cookies and
// redirects. Every failure lands on the same error page without detail.
func CallbackHandler(coord *oauth.Coordinator, cookies middleware.SessionCookies, redirects Redirects) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := coord.Callback(w, r, chi.URLParam(r, "provider"))
		if err != nil {
			http.Redirect(w, r, redirects.Failure, http.StatusFound)
			return
		}

		cookies.SetAuth(w, result.Tokens.AccessToken)
		cookies.SetRefresh(w, result.Tokens.RefreshToken)
		http.Redirect(w, r, redirects.Success, http.StatusFound)
	}
}

// MeHandler returns the caller's public profile.
func MeHandler(users UserStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := middleware.RequireAuth(r.Context())
		if err != nil {
			middleware.WriteAuthError(w, err)
			return
		}

		user, err := users.FindByID(r.Context(), id.UserID)
		if errors.Is(err, db.ErrNotFound) {
			response.Unauthorized(w)
			return
		}
		if err != nil {
			logging.FromContext(r.Context(), log).Error("failed to load user", zap.Uint("user_id", id.UserID), zap.Error(err))
			response.InternalError(w)
			return
		}

		response.OK(w, user.Profile())
	}
}

// LogoutHandler revokes the caller's current session, if any, and clears
// the session cookies. It succeeds for anonymous callers too.
func LogoutHandler(tokens TokenService, cookies middleware.SessionCookies, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, ok := middleware.IdentityFrom(r.Context()); ok && id.SessionID != 0 {
			if err := tokens.Revoke(r.Context(), id.SessionID); err != nil {
				logging.FromContext(r.Context(), log).Warn("failed to revoke session",
					zap.Uint("session_id", id.SessionID), zap.Error(err))
			} else {
				metrics.SessionsRevokedTotal.WithLabelValues("logout").Inc()
			}
		}

		cookies.ClearAll(w)
		response.OK(w, successBody{Success: true})
	}
}

// LogoutAllHandler revokes every session of the caller.
func LogoutAllHandler(tokens TokenService, cookies middleware.SessionCookies, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := middleware.RequireAuth(r.Context())
		if err != nil {
			middleware.WriteAuthError(w, err)
			return
		}

		n, err := tokens.RevokeAllForUser(r.Context(), id.UserID)
		if err != nil {
			logging.FromContext(r.Context(), log).Error("failed to revoke sessions", zap.Uint("user_id", id.UserID), zap.Error(err))
			response.InternalError(w)
			return
		}
		metrics.SessionsRevokedTotal.WithLabelValues("logout_all").Add(float64(n))

		cookies.ClearAll(w)
		response.OK(w, map[string]any{"success": true, "revoked": n})
	}
}

// RefreshHandler exchanges the refresh cookie for a new token pair and
// session. Nothing is written to the cookies unless issuance succeeded.
func RefreshHandler(tokens TokenService, users UserStore, cookies middleware.SessionCookies, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(middleware.RefreshCookieName)
		if err != nil || cookie.Value == "" {
			response.Unauthorized(w)
			return
		}

		payload, err := tokens.ParseRefresh(cookie.Value)
		if err != nil {
			response.Unauthorized(w)
			return
		}

		// Refresh tokens carry no admin flag; the stored user decides it.
		user, err := users.FindByID(r.Context(), payload.UserID)
		if errors.Is(err, db.ErrNotFound) {
			response.Unauthorized(w)
			return
		}
		if err != nil {
			logging.FromContext(r.Context(), log).Error("failed to load user for refresh", zap.Uint("user_id", payload.UserID), zap.Error(err))
			response.InternalError(w)
			return
		}

		pair, err := tokens.IssueTokenPair(r.Context(), token.Identity{
			UserID:  user.ID,
			Email:   user.Email,
			IsAdmin: user.IsAdmin,
		})
		if err != nil {
			logging.FromContext(r.Context(), log).Error("failed to issue refreshed tokens", zap.Uint("user_id", user.ID), zap.Error(err))
			response.InternalError(w)
			return
		}

		cookies.SetAuth(w, pair.AccessToken)
		cookies.SetRefresh(w, pair.RefreshToken)
		response.OK(w, successBody{Success: true})
	}
}

// ProvidersHandler lists the login providers and whether each is usable.
func ProvidersHandler(registry *oauth.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]any{"providers": registry.List()})
	}
}
