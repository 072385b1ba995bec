package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FINTRACK_AUTH_JWT_SECRET", testSecret)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 10*time.Minute, cfg.Auth.FlowTTL)
	assert.Equal(t, "/login?error=oauth_failed", cfg.Auth.LoginErrorRedirect)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.SecureCookies())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintrack.yaml")
	body := `
server:
  port: 9090
  environment: production
  app_url: https://money.example.com/
auth:
  jwt_secret: ` + testSecret + `
  access_ttl: 1h
oauth:
  google:
    client_id: file-id
    client_secret: file-secret
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("GOOGLE_CLIENT_ID", "env-id")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://money.example.com", cfg.Server.AppURL)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTTL)
	assert.Equal(t, "env-id", cfg.OAuth.Google.ClientID)
	assert.True(t, cfg.OAuth.Google.Configured())
	assert.True(t, cfg.SecureCookies())
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "sqlite"},
			Auth: AuthConfig{
				JWTSecret:  testSecret,
				AccessTTL:  time.Hour,
				RefreshTTL: time.Hour,
				SessionTTL: time.Hour,
				FlowTTL:    time.Minute,
			},
		}
	}

	require.NoError(t, base().Validate())

	short := base()
	short.Auth.JWTSecret = "short"
	assert.Error(t, short.Validate())

	driver := base()
	driver.Database.Driver = "mysql"
	assert.Error(t, driver.Validate())

	ttl := base()
	ttl.Auth.FlowTTL = 0
	assert.Error(t, ttl.Validate())
}

func TestFlowCookieSecret_FallsBackToJWTSecret(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{JWTSecret: testSecret}}
	assert.Equal(t, []byte(testSecret), cfg.FlowCookieSecret())

	cfg.Auth.CookieSecret = "fedcba9876543210fedcba9876543210"
	assert.Equal(t, []byte("fedcba9876543210fedcba9876543210"), cfg.FlowCookieSecret())
}
