package oauth

import (
	"testing"

	"github.com/pysugar/fintrack/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var googleCreds = config.ProviderCredentials{ClientID: "client", ClientSecret: "secret"}

func TestRegistry_BuiltinGoogle(t *testing.T) {
	r, err := NewRegistry(config.OAuthConfig{Google: googleCreds}, "https://money.example.com/", nil)
	require.NoError(t, err)

	p, err := r.Lookup("Google")
	require.NoError(t, err)
	assert.Equal(t, "google", p.ID)
	assert.True(t, p.PKCE)
	assert.Equal(t, "https://www.googleapis.com/oauth2/v2/userinfo", p.UserInfoURL)
	assert.Equal(t, []string{"openid", "profile", "email"}, p.Config.Scopes)
	assert.Equal(t, "https://money.example.com/api/auth/callback/google", p.Config.RedirectURL)
	assert.Equal(t, oauth2.AuthStyleInParams, p.Config.Endpoint.AuthStyle)
	assert.Equal(t, "picture", p.Profile.Avatar)
}

func TestRegistry_LookupErrors(t *testing.T) {
	r, err := NewRegistry(config.OAuthConfig{}, "http://localhost:8080", nil)
	require.NoError(t, err)

	_, err = r.Lookup("twitter")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	_, err = r.Lookup("google")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)

	// Credentials alone do not make github usable without a catalog entry.
	r, err = NewRegistry(config.OAuthConfig{GitHub: googleCreds}, "http://localhost:8080", nil)
	require.NoError(t, err)
	_, err = r.Lookup("github")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestRegistry_CatalogOverrides(t *testing.T) {
	path := writeCatalog(t, `providers:
  - id: google
    token_url: https://idp.test/token
    scopes: [openid, email]
  - id: github
    auth_url: https://github.test/login/oauth/authorize
    token_url: https://github.test/login/oauth/access_token
    userinfo_url: https://api.github.test/user
    pkce: false
    profile:
      avatar: avatar_url
  - id: twitter
    auth_url: https://x.test/auth
`)
	r, err := NewRegistry(config.OAuthConfig{
		Catalog: path,
		Google:  googleCreds,
		GitHub:  googleCreds,
	}, "http://localhost:8080", nil)
	require.NoError(t, err)

	g, err := r.Lookup("google")
	require.NoError(t, err)
	assert.Equal(t, "https://idp.test/token", g.Config.Endpoint.TokenURL)
	assert.Equal(t, "https://accounts.google.com/o/oauth2/auth", g.Config.Endpoint.AuthURL)
	assert.Equal(t, []string{"openid", "email"}, g.Config.Scopes)

	gh, err := r.Lookup("github")
	require.NoError(t, err)
	assert.False(t, gh.PKCE)
	assert.Equal(t, "id", gh.Profile.ID)
	assert.Equal(t, "avatar_url", gh.Profile.Avatar)
	assert.Equal(t, oauth2.AuthStyleAutoDetect, gh.Config.Endpoint.AuthStyle)

	_, err = r.Lookup("twitter")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	assert.Equal(t, []ProviderInfo{
		{ID: "github", Configured: true, LoginURL: "/api/auth/login/github"},
		{ID: "google", Configured: true, LoginURL: "/api/auth/login/google"},
	}, r.List())
}

func TestRegistry_MissingCatalogFile(t *testing.T) {
	_, err := NewRegistry(config.OAuthConfig{Catalog: "/nonexistent/providers.yaml"}, "", nil)
	assert.Error(t, err)
}
