package main

import (
	"fmt"
	"os"

	"github.com/pysugar/fintrack/internal/config"
	"github.com/pysugar/fintrack/internal/db"
	"github.com/pysugar/fintrack/internal/logging"
	"github.com/pysugar/fintrack/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "fintrack",
	Short: "Session authentication service for the fintrack personal-finance tracker",
	Long: `fintrack signs users in through an external OAuth provider, keeps their
sessions in a relational store and guards the tracker's API with cookie-based
access and refresh tokens.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to fintrack.yaml (default: ./fintrack.yaml, ./config, /etc/fintrack)")
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate("{{printf \"fintrack version %s\\n\" .Version}}")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadRuntime reads the configuration and builds the process logger.
func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	zap.ReplaceGlobals(log)
	return cfg, log, nil
}

func openDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	database, err := db.InitDB(db.Options{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		LogLevel: cfg.Database.LogLevel,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return database, nil
}
