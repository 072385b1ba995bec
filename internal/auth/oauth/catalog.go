package oauth

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pysugar/fintrack/internal/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gopkg.in/yaml.v3"
)

// Supported provider names.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// Auth styles accepted in the catalog.
const (
	AuthStyleAuto   = "auto"
	AuthStyleParams = "params"
	AuthStyleHeader = "header"
)

const callbackPath = "/api/auth/callback/"

var supportedProviders = map[string]struct{}{
	ProviderGoogle: {},
	ProviderGitHub: {},
}

type catalogFile struct {
	Providers []ProviderDefinition `yaml:"providers"`
}

// ProfileFields names the userinfo JSON fields holding each profile attribute.
type ProfileFields struct {
	ID     string `yaml:"id"`
	Email  string `yaml:"email"`
	Name   string `yaml:"name"`
	Avatar string `yaml:"avatar"`
}

// ProviderDefinition describes the endpoints of an identity provider.
type ProviderDefinition struct {
	ID          string        `yaml:"id"`
	AuthURL     string        `yaml:"auth_url"`
	TokenURL    string        `yaml:"token_url"`
	UserInfoURL string        `yaml:"userinfo_url"`
	AuthStyle   string        `yaml:"auth_style"`
	Scopes      []string      `yaml:"scopes"`
	PKCE        *bool         `yaml:"pkce"`
	Profile     ProfileFields `yaml:"profile"`
}

// ProviderInfo is the public view of a registered provider.
type ProviderInfo struct {
	ID         string `json:"id"`
	Configured bool   `json:"configured"`
	LoginURL   string `json:"loginUrl"`
}

// Provider is a fully configured identity provider.
type Provider struct {
	ID          string
	Config      *oauth2.Config
	UserInfoURL string
	PKCE        bool
	Profile     ProfileFields
}

// Registry resolves provider names to configured providers.
type Registry struct {
	providers map[string]*Provider
	known     []string
}

func builtinDefinitions() []ProviderDefinition {
	return []ProviderDefinition{
		{
			ID:          ProviderGoogle,
			AuthURL:     google.Endpoint.AuthURL,
			TokenURL:    google.Endpoint.TokenURL,
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
			AuthStyle:   AuthStyleParams,
			Scopes:      []string{"openid", "profile", "email"},
			PKCE:        boolPtr(true),
			Profile:     ProfileFields{ID: "id", Email: "email", Name: "name", Avatar: "picture"},
		},
	}
}

// LoadCatalog reads provider definitions from a YAML file.
func LoadCatalog(path string) ([]ProviderDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth provider catalog %q: %w", path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse oauth provider catalog %q: %w", path, err)
	}
	return file.Providers, nil
}

// NewRegistry builds the provider registry from the built-in definitions,
// the optional catalog file and the configured client credentials. Catalog
// entries replace built-in fields they set; entries outside the supported
// set are ignored.
func NewRegistry(cfg config.OAuthConfig, appURL string, log *zap.Logger) (*Registry, error) {
	if log == nil {
		log = zap.NewNop()
	}

	defs := make(map[string]ProviderDefinition)
	for _, def := range builtinDefinitions() {
		defs[def.ID] = def
	}

	if path := strings.TrimSpace(cfg.Catalog); path != "" {
		entries, err := LoadCatalog(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			id := normalizeProviderID(entry.ID)
			if _, ok := supportedProviders[id]; !ok {
				log.Warn("ignoring unsupported provider in oauth catalog", zap.String("provider", entry.ID))
				continue
			}
			entry.ID = id
			defs[id] = mergeDefinition(defs[id], entry)
		}
	}

	creds := map[string]config.ProviderCredentials{
		ProviderGoogle: cfg.Google,
		ProviderGitHub: cfg.GitHub,
	}

	r := &Registry{providers: make(map[string]*Provider)}
	for id := range supportedProviders {
		r.known = append(r.known, id)

		def, ok := defs[id]
		if !ok || !creds[id].Configured() {
			continue
		}
		if def.AuthURL == "" || def.TokenURL == "" || def.UserInfoURL == "" {
			log.Warn("oauth provider definition is incomplete", zap.String("provider", id))
			continue
		}
		r.providers[id] = newProvider(def, creds[id], appURL)
	}
	sort.Strings(r.known)

	return r, nil
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (*Provider, error) {
	id := normalizeProviderID(name)
	if _, ok := supportedProviders[id]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, id)
	}
	return p, nil
}

// List returns every supported provider and whether it is usable.
func (r *Registry) List() []ProviderInfo {
	result := make([]ProviderInfo, 0, len(r.known))
	for _, id := range r.known {
		_, configured := r.providers[id]
		result = append(result, ProviderInfo{
			ID:         id,
			Configured: configured,
			LoginURL:   "/api/auth/login/" + id,
		})
	}
	return result
}

func newProvider(def ProviderDefinition, creds config.ProviderCredentials, appURL string) *Provider {
	pkce := true
	if def.PKCE != nil {
		pkce = *def.PKCE
	}

	profile := def.Profile
	if profile.ID == "" {
		profile.ID = "id"
	}
	if profile.Email == "" {
		profile.Email = "email"
	}

	return &Provider{
		ID: def.ID,
		Config: &oauth2.Config{
			ClientID:     strings.TrimSpace(creds.ClientID),
			ClientSecret: strings.TrimSpace(creds.ClientSecret),
			RedirectURL:  strings.TrimSuffix(appURL, "/") + callbackPath + def.ID,
			Scopes:       append([]string(nil), def.Scopes...),
			Endpoint: oauth2.Endpoint{
				AuthURL:   def.AuthURL,
				TokenURL:  def.TokenURL,
				AuthStyle: authStyle(def.AuthStyle),
			},
		},
		UserInfoURL: def.UserInfoURL,
		PKCE:        pkce,
		Profile:     profile,
	}
}

func mergeDefinition(base, override ProviderDefinition) ProviderDefinition {
	merged := base
	merged.ID = override.ID
	if override.AuthURL != "" {
		merged.AuthURL = override.AuthURL
	}
	if override.TokenURL != "" {
		merged.TokenURL = override.TokenURL
	}
	if override.UserInfoURL != "" {
		merged.UserInfoURL = override.UserInfoURL
	}
	if override.AuthStyle != "" {
		merged.AuthStyle = override.AuthStyle
	}
	if len(override.Scopes) > 0 {
		merged.Scopes = override.Scopes
	}
	if override.PKCE != nil {
		merged.PKCE = override.PKCE
	}
	if override.Profile.ID != "" {
		merged.Profile.ID = override.Profile.ID
	}
	if override.Profile.Email != "" {
		merged.Profile.Email = override.Profile.Email
	}
	if override.Profile.Name != "" {
		merged.Profile.Name = override.Profile.Name
	}
	if override.Profile.Avatar != "" {
		merged.Profile.Avatar = override.Profile.Avatar
	}
	return merged
}

func authStyle(s string) oauth2.AuthStyle {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case AuthStyleParams:
		return oauth2.AuthStyleInParams
	case AuthStyleHeader:
		return oauth2.AuthStyleInHeader
	default:
		return oauth2.AuthStyleAutoDetect
	}
}

func normalizeProviderID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func boolPtr(v bool) *bool {
	return &v
}
