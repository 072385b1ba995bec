package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/fintrack/internal/api/response"
	"github.com/pysugar/fintrack/internal/db"
	"github.com/pysugar/fintrack/internal/db/models"
	"github.com/pysugar/fintrack/internal/logging"
	"github.com/pysugar/fintrack/internal/metrics"
	"go.uber.org/zap"
)

type userBody struct {
	models.PublicProfile
	LinkedAccounts int64 `json:"linkedAccounts"`
}

// UserHandler returns the profile of the {id} user. Routes mount it behind
// middleware.OwnerOnly.
func UserHandler(users UserStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDParam(w, r)
		if !ok {
			return
		}

		user, err := users.FindByID(r.Context(), userID)
		if errors.Is(err, db.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			logging.FromContext(r.Context(), log).Error("failed to load user", zap.Uint("user_id", userID), zap.Error(err))
			response.InternalError(w)
			return
		}

		linked, err := users.CountAccounts(r.Context(), userID)
		if err != nil {
			logging.FromContext(r.Context(), log).Error("failed to count linked accounts", zap.Uint("user_id", userID), zap.Error(err))
			response.InternalError(w)
			return
		}

		response.OK(w, userBody{PublicProfile: user.Profile(), LinkedAccounts: linked})
	}
}

// RevokeUserSessionsHandler deletes every session of the {id} user. Routes
// mount it behind middleware.AdminOnly.
func RevokeUserSessionsHandler(tokens TokenService, users UserStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDParam(w, r)
		if !ok {
			return
		}

		if _, err := users.FindByID(r.Context(), userID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "User not found")
				return
			}
			logging.FromContext(r.Context(), log).Error("failed to load user", zap.Uint("user_id", userID), zap.Error(err))
			response.InternalError(w)
			return
		}

		n, err := tokens.RevokeAllForUser(r.Context(), userID)
		if err != nil {
			logging.FromContext(r.Context(), log).Error("failed to revoke sessions", zap.Uint("user_id", userID), zap.Error(err))
			response.InternalError(w)
			return
		}
		metrics.SessionsRevokedTotal.WithLabelValues("admin").Add(float64(n))

		logging.FromContext(r.Context(), log).Info("admin revoked user sessions",
			zap.Uint("user_id", userID), zap.Int64("revoked", n))
		response.OK(w, map[string]any{"success": true, "revoked": n})
	}
}

func userIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(w, http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	return uint(id), true
}
