package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/pysugar/fintrack/internal/api/response"
	"github.com/pysugar/fintrack/internal/version"
	"gorm.io/gorm"
)

// HealthHandler reports whether the database answers.
func HealthHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		sqlDB, err := database.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			status, code = "unavailable", http.StatusServiceUnavailable
		}

		response.JSON(w, code, map[string]string{
			"status":  status,
			"version": version.Version,
		})
	}
}

// IndexHandler answers the root path.
func IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"service": "fintrack",
			"version": version.Version,
		})
	}
}
