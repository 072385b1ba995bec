package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pysugar/fintrack/internal/db/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultQueryTimeout bounds every store call that arrives without a deadline.
const DefaultQueryTimeout = 5 * time.Second

// ErrNotFound is returned when a lookup matches no live row.
var ErrNotFound = errors.New("record not found")

// Options configures InitDB.
type Options struct {
	Driver   string // "sqlite" or "postgres"
	DSN      string
	LogLevel string // "silent", "error", "warn", "info"
}

// InitDB opens the relational store and runs migrations.
func InitDB(opts Options, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(sqliteDSN(opts.DSN))
	case "postgres":
		dialector = postgres.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	database, err := gorm.Open(dialector, GormConfig(opts.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", opts.Driver, err)
	}

	if err := Migrate(database); err != nil {
		return nil, err
	}

	if log != nil {
		log.Info("database ready", zap.String("driver", driverName(opts.Driver)))
	}
	return database, nil
}

// GormConfig returns the gorm settings shared by every store connection.
// Errors are translated so unique violations surface as gorm.ErrDuplicatedKey.
func GormConfig(logLevel string) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(logLevel)),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Migrate creates or updates the auth tables.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(&models.User{}, &models.OAuthAccount{}, &models.Session{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// SQLiteDSN is exported for tests that open their own in-memory databases.
func SQLiteDSN(dsn string) string {
	return sqliteDSN(dsn)
}

// sqliteDSN enables foreign keys so OnDelete:CASCADE holds, and makes
// concurrent writers wait for the lock instead of failing with SQLITE_BUSY.
// Write transactions lock at BEGIN.
func sqliteDSN(dsn string) string {
	params := [][2]string{
		{"_pragma=foreign_keys", "(1)"},
		{"_pragma=busy_timeout", "(5000)"},
		{"_txlock", "=immediate"},
	}
	if !strings.Contains(dsn, "mode=memory") && !strings.Contains(dsn, ":memory:") {
		params = append(params, [2]string{"_pragma=journal_mode", "(WAL)"})
	}

	for _, p := range params {
		if strings.Contains(dsn, p[0]) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + p[0] + p[1]
	}
	return dsn
}

func driverName(driver string) string {
	if driver == "" {
		return "sqlite"
	}
	return driver
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// withTimeout applies d to ctx unless ctx already carries a deadline.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
