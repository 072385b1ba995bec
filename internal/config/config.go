// Package config loads fintrack configuration from a YAML file and FINTRACK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MinSecretLength is the shortest accepted HMAC secret in bytes.
const MinSecretLength = 32

// Config holds all configuration for the service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Environment  string        `mapstructure:"environment"` // development, production
	AppURL       string        `mapstructure:"app_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // sqlite, postgres
	DSN      string `mapstructure:"dsn"`
	LogLevel string `mapstructure:"log_level"`
}

// AuthConfig holds token, session and cookie settings.
type AuthConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	CookieSecret       string        `mapstructure:"cookie_secret"`
	AccessTTL          time.Duration `mapstructure:"access_ttl"`
	RefreshTTL         time.Duration `mapstructure:"refresh_ttl"`
	SessionTTL         time.Duration `mapstructure:"session_ttl"`
	FlowTTL            time.Duration `mapstructure:"flow_ttl"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"`
	LoginRedirect      string        `mapstructure:"login_redirect"`
	LoginErrorRedirect string        `mapstructure:"login_error_redirect"`
}

// OAuthConfig holds provider credentials and an optional catalog override file.
type OAuthConfig struct {
	Catalog string              `mapstructure:"catalog"`
	Google  ProviderCredentials `mapstructure:"google"`
	GitHub  ProviderCredentials `mapstructure:"github"`
}

// ProviderCredentials are the client credentials registered with an identity provider.
type ProviderCredentials struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// Configured reports whether both halves of the credential are present.
func (p ProviderCredentials) Configured() bool {
	return strings.TrimSpace(p.ClientID) != "" && strings.TrimSpace(p.ClientSecret) != ""
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// Load reads configuration from the optional file at path (or the default
// search locations when path is empty) and from the environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fintrack")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/fintrack")
	}

	v.SetEnvPrefix("FINTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Nested keys are only seen by Unmarshal when bound explicitly.
	for _, key := range []string{
		"auth.jwt_secret",
		"auth.cookie_secret",
		"oauth.google.client_id",
		"oauth.google.client_secret",
		"oauth.github.client_id",
		"oauth.github.client_secret",
		"database.dsn",
	} {
		_ = v.BindEnv(key)
	}

	// Variable names used by the tracker's original deployment.
	_ = v.BindEnv("auth.jwt_secret", "FINTRACK_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("oauth.google.client_id", "FINTRACK_OAUTH_GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_ID")
	_ = v.BindEnv("oauth.google.client_secret", "FINTRACK_OAUTH_GOOGLE_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET")
	_ = v.BindEnv("server.app_url", "FINTRACK_SERVER_APP_URL", "APP_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Server.AppURL = strings.TrimSuffix(cfg.Server.AppURL, "/")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.app_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "fintrack.db")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("auth.access_ttl", 7*24*time.Hour)
	v.SetDefault("auth.refresh_ttl", 30*24*time.Hour)
	v.SetDefault("auth.session_ttl", 7*24*time.Hour)
	v.SetDefault("auth.flow_ttl", 10*time.Minute)
	v.SetDefault("auth.sweep_interval", time.Hour)
	v.SetDefault("auth.http_timeout", 10*time.Second)
	v.SetDefault("auth.login_redirect", "/dashboard")
	v.SetDefault("auth.login_error_redirect", "/login?error=oauth_failed")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < MinSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", MinSecretLength)
	}
	if c.Auth.CookieSecret != "" && len(c.Auth.CookieSecret) < MinSecretLength {
		return fmt.Errorf("auth.cookie_secret must be at least %d bytes", MinSecretLength)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 || c.Auth.SessionTTL <= 0 {
		return errors.New("auth token and session TTLs must be positive")
	}
	if c.Auth.FlowTTL <= 0 {
		return errors.New("auth.flow_ttl must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// SecureCookies reports whether cookies get the Secure attribute.
func (c *Config) SecureCookies() bool {
	return c.IsProduction()
}

// FlowCookieSecret returns the key used to sign OAuth flow cookies.
// Falls back to the JWT secret when no dedicated cookie secret is set.
func (c *Config) FlowCookieSecret() []byte {
	if c.Auth.CookieSecret != "" {
		return []byte(c.Auth.CookieSecret)
	}
	return []byte(c.Auth.JWTSecret)
}
