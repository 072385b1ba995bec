// Package api assembles the HTTP router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pysugar/fintrack/internal/api/handlers"
	"github.com/pysugar/fintrack/internal/api/middleware"
	"github.com/pysugar/fintrack/internal/auth/oauth"
	"github.com/pysugar/fintrack/internal/auth/token"
	"github.com/pysugar/fintrack/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the services the routes are built from.
type Deps struct {
	DB          *gorm.DB
	Users       *db.UserStore
	Tokens      *token.Service
	Coordinator *oauth.Coordinator
	Registry    *oauth.Registry
	Cookies     middleware.SessionCookies
	Redirects   handlers.Redirects
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter returns the service's HTTP handler.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(middleware.SessionAuth(d.Tokens, d.Users, d.Cookies, log))

	r.Get("/", handlers.IndexHandler())
	r.Get("/healthz", handlers.HealthHandler(d.DB))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/providers", handlers.ProvidersHandler(d.Registry))
			r.Get("/login/{provider}", handlers.LoginHandler(d.Coordinator, log))
			r.Get("/callback/{provider}", handlers.CallbackHandler(d.Coordinator, d.Cookies, d.Redirects))
			r.Get("/me", handlers.MeHandler(d.Users, log))
			r.Post("/logout", handlers.LogoutHandler(d.Tokens, d.Cookies, log))
			r.Post("/refresh", handlers.RefreshHandler(d.Tokens, d.Users, d.Cookies, log))
			r.With(middleware.Authenticated).Post("/logout-all", handlers.LogoutAllHandler(d.Tokens, d.Cookies, log))
		})

		r.With(middleware.OwnerOnly("id")).Get("/users/{id}", handlers.UserHandler(d.Users, log))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminOnly)
			r.Post("/users/{id}/sessions/revoke", handlers.RevokeUserSessionsHandler(d.Tokens, d.Users, log))
		})
	})

	return r
}
