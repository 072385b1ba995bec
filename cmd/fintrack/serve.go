package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pysugar/fintrack/internal/api"
	"github.com/pysugar/fintrack/internal/api/handlers"
	"github.com/pysugar/fintrack/internal/api/middleware"
	"github.com/pysugar/fintrack/internal/auth/identity"
	"github.com/pysugar/fintrack/internal/auth/oauth"
	"github.com/pysugar/fintrack/internal/auth/token"
	"github.com/pysugar/fintrack/internal/config"
	"github.com/pysugar/fintrack/internal/db"
	"github.com/pysugar/fintrack/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the expired-session sweeper",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	database, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}

	handler, sweeper, err := buildServer(cfg, database, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("fintrack starting",
			zap.String("addr", srv.Addr),
			zap.String("version", version.Version),
			zap.String("environment", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildServer wires stores, token service, OAuth coordinator and routes.
func buildServer(cfg *config.Config, database *gorm.DB, log *zap.Logger) (http.Handler, *token.Sweeper, error) {
	sessions := db.NewSessionStore(database)
	users := db.NewUserStore(database)

	tokens := token.NewService(token.NewCodec([]byte(cfg.Auth.JWTSecret), time.Now), sessions, token.Options{
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
		SessionTTL: cfg.Auth.SessionTTL,
		Logger:     log.Named("token"),
	})

	registry, err := oauth.NewRegistry(cfg.OAuth, cfg.Server.AppURL, log.Named("oauth"))
	if err != nil {
		return nil, nil, err
	}
	for _, p := range registry.List() {
		if !p.Configured {
			log.Warn("oauth provider not configured", zap.String("provider", p.ID))
		}
	}

	coord := oauth.NewCoordinator(
		registry,
		oauth.NewFlowCookies(cfg.FlowCookieSecret(), cfg.Auth.FlowTTL, cfg.SecureCookies()),
		identity.NewResolver(users, log.Named("identity")),
		tokens,
		oauth.Options{HTTPTimeout: cfg.Auth.HTTPTimeout, Logger: log.Named("oauth")},
	)

	handler := api.NewRouter(api.Deps{
		DB:          database,
		Users:       users,
		Tokens:      tokens,
		Coordinator: coord,
		Registry:    registry,
		Cookies: middleware.SessionCookies{
			Secure:     cfg.SecureCookies(),
			AccessTTL:  tokens.AccessTTL(),
			RefreshTTL: tokens.RefreshTTL(),
		},
		Redirects: handlers.Redirects{
			Success: cfg.Auth.LoginRedirect,
			Failure: cfg.Auth.LoginErrorRedirect,
		},
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      log,
	})

	sweeper := token.NewSweeper(sessions, cfg.Auth.SweepInterval, log.Named("sweeper"))
	return handler, sweeper, nil
}
