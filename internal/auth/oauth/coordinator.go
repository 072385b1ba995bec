// Package oauth runs the Authorization Code + PKCE handshake with an external
// identity provider and turns a successful callback into a local session.
package oauth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pysugar/fintrack/internal/auth/identity"
	"github.com/pysugar/fintrack/internal/auth/token"
	"github.com/pysugar/fintrack/internal/db/models"
	"github.com/pysugar/fintrack/internal/logging"
	"github.com/pysugar/fintrack/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxProfileBytes    = 1 << 20
	maxErrorBody       = 256
)

// IdentityResolver maps a provider profile onto a local user.
type IdentityResolver interface {
	FindOrCreate(ctx context.Context, p identity.Profile) (*models.User, error)
}

// TokenIssuer issues a session-bound token pair.
type TokenIssuer interface {
	IssueTokenPair(ctx context.Context, id token.Identity) (*token.Pair, error)
}

// Options configures a Coordinator.
type Options struct {
	HTTPTimeout time.Duration
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Result is the outcome of a successful callback.
type Result struct {
	User   *models.User
	Tokens *token.Pair
}

// Coordinator drives the login handshake. It keeps no per-flow state of its
// own; everything a callback needs arrives in the request cookies.
type Coordinator struct {
	registry *Registry
	cookies  *FlowCookies
	resolver IdentityResolver
	tokens   TokenIssuer
	client   *http.Client
	timeout  time.Duration
	log      *zap.Logger
}

// NewCoordinator wires the handshake dependencies.
func NewCoordinator(registry *Registry, cookies *FlowCookies, resolver IdentityResolver, tokens TokenIssuer, opts Options) *Coordinator {
	c := &Coordinator{
		registry: registry,
		cookies:  cookies,
		resolver: resolver,
		tokens:   tokens,
		client:   opts.HTTPClient,
		timeout:  opts.HTTPTimeout,
		log:      opts.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = defaultHTTPTimeout
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Start begins a login with providerName: it stores a fresh state and PKCE
// verifier in flow cookies on w and returns the provider authorization URL.
func (c *Coordinator) Start(w http.ResponseWriter, r *http.Request, providerName string) (string, error) {
	p, err := c.registry.Lookup(providerName)
	if err != nil {
		return "", err
	}

	state := oauth2.GenerateVerifier()
	if err := c.cookies.Set(w, StateCookieName(p.ID), state); err != nil {
		return "", fmt.Errorf("set state cookie: %w", err)
	}

	var opts []oauth2.AuthCodeOption
	if p.PKCE {
		verifier := oauth2.GenerateVerifier()
		if err := c.cookies.Set(w, VerifierCookieName(p.ID), verifier); err != nil {
			return "", fmt.Errorf("set verifier cookie: %w", err)
		}
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}

	logging.FromContext(r.Context(), c.log).Debug("oauth login started", zap.String("provider", p.ID))
	return p.Config.AuthCodeURL(state, opts...), nil
}

// Callback completes a login. Both flow cookies are consumed before any
// check runs, so a second callback with the same cookies cannot succeed.
func (c *Coordinator) Callback(w http.ResponseWriter, r *http.Request, providerName string) (result *Result, err error) {
	p, err := c.registry.Lookup(providerName)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()
	log := logging.FromContext(ctx, c.log).With(zap.String("provider", p.ID))
	defer func() {
		if err != nil {
			metrics.LoginsTotal.WithLabelValues(p.ID, metrics.ResultFailure).Inc()
			log.Warn("oauth callback failed", zap.Error(err))
			return
		}
		metrics.LoginsTotal.WithLabelValues(p.ID, metrics.ResultSuccess).Inc()
	}()

	expectedState, hasState := c.cookies.Take(w, r, StateCookieName(p.ID))
	verifier, hasVerifier := c.cookies.Take(w, r, VerifierCookieName(p.ID))

	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		return nil, fmt.Errorf("%w: provider returned %q", ErrExchangeFailed, providerErr)
	}

	state := query.Get("state")
	if !hasState || state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expectedState)) != 1 {
		return nil, ErrInvalidState
	}

	var opts []oauth2.AuthCodeOption
	if p.PKCE {
		if !hasVerifier {
			return nil, ErrMissingVerifier
		}
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	code := query.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrExchangeFailed)
	}

	profile, err := c.exchange(ctx, p, code, opts)
	if err != nil {
		return nil, err
	}

	user, err := c.resolver.FindOrCreate(ctx, *profile)
	if err != nil {
		return nil, err
	}

	pair, err := c.tokens.IssueTokenPair(ctx, token.Identity{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	})
	if err != nil {
		return nil, err
	}

	log.Info("oauth login succeeded", zap.Uint("user_id", user.ID), zap.Uint("session_id", pair.SessionID))
	return &Result{User: user, Tokens: pair}, nil
}

// exchange trades code for provider tokens and fetches the profile, bounded
// by the coordinator timeout.
func (c *Coordinator) exchange(ctx context.Context, p *Provider, code string, opts []oauth2.AuthCodeOption) (*identity.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)

	tok, err := p.Config.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	profile, err := fetchProfile(ctx, p, tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileFailed, err)
	}
	return profile, nil
}

func fetchProfile(ctx context.Context, p *Provider, tok *oauth2.Token) (*identity.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.Config.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody+1))
		return nil, fmt.Errorf("userinfo returned status %d: %s", resp.StatusCode, logging.Truncate(string(body), maxErrorBody))
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBytes))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}

	profile := &identity.Profile{
		Provider:          p.ID,
		ProviderAccountID: stringField(fields, p.Profile.ID),
		Email:             stringField(fields, p.Profile.Email),
		Name:              stringField(fields, p.Profile.Name),
		Avatar:            stringField(fields, p.Profile.Avatar),
	}
	if profile.ProviderAccountID == "" || profile.Email == "" {
		return nil, errors.New("userinfo lacks account id or email")
	}
	return profile, nil
}

func stringField(fields map[string]any, key string) string {
	if key == "" {
		return ""
	}
	switch v := fields[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
