package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/fintrack/internal/api/response"
	"github.com/pysugar/fintrack/internal/auth/token"
	"github.com/pysugar/fintrack/internal/db"
	"github.com/pysugar/fintrack/internal/db/models"
	"github.com/pysugar/fintrack/internal/logging"
	"go.uber.org/zap"
)

// TokenVerifier validates a presented access token against its live session.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*token.Payload, error)
}

// UserFinder loads the user a verified token belongs to.
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// Paths that never carry or need a session.
var (
	publicPrefixes = []string{
		"/api/auth/login",
		"/api/auth/callback",
		"/api/_",
		"/_nuxt",
		"/__",
	}
	publicPaths = map[string]struct{}{
		"/":        {},
		"/healthz": {},
		"/metrics": {},
	}
)

// IsPublicPath reports whether path is exempt from session authentication.
func IsPublicPath(path string) bool {
	if _, ok := publicPaths[path]; ok {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// SessionAuth resolves the auth cookie into an Identity on the request
// context. A request without the cookie continues anonymously. A cookie that
// fails verification, or whose user no longer exists, is cleared and the
// request continues anonymously; rejecting is left to the handlers.
func SessionAuth(verifier TokenVerifier, users UserFinder, cookies SessionCookies, log *zap.Logger) func(next http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(AuthCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			reqLog := logging.FromContext(ctx, log)

			payload, err := verifier.Verify(ctx, cookie.Value)
			if err != nil {
				reqLog.Debug("discarding invalid auth cookie", zap.Error(err))
				cookies.ClearAuth(w)
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.FindByID(ctx, payload.UserID)
			if errors.Is(err, db.ErrNotFound) {
				reqLog.Info("auth cookie for deleted user", zap.Uint("user_id", payload.UserID))
				cookies.ClearAuth(w)
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				reqLog.Error("failed to load session user", zap.Uint("user_id", payload.UserID), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			// Stored flags win over the token so demotions apply at once.
			id := Identity{
				UserID:    user.ID,
				Email:     user.Email,
				IsAdmin:   user.IsAdmin,
				SessionID: payload.SessionID,
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, id)))
		})
	}
}

// Authenticated rejects anonymous requests with 401.
func Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := RequireAuth(r.Context()); err != nil {
			WriteAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminOnly rejects anonymous requests with 401 and non-admins with 403.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := RequireAdmin(r.Context()); err != nil {
			if errors.Is(err, ErrForbidden) {
				response.Error(w, http.StatusForbidden, "Admin access required")
				return
			}
			WriteAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OwnerOnly admits admins and the user whose id is the route parameter param.
func OwnerOnly(param string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID, err := strconv.ParseUint(chi.URLParam(r, param), 10, 64)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "Invalid user id")
				return
			}
			if _, err := RequireOwnership(r.Context(), uint(ownerID)); err != nil {
				WriteAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteAuthError maps an authorization failure to its HTTP response.
func WriteAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		response.Error(w, http.StatusForbidden, "Access denied")
	default:
		response.Unauthorized(w)
	}
}
