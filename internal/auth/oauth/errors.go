package oauth

import "errors"

var (
	// ErrUnsupportedProvider is returned for a provider name outside the supported set.
	ErrUnsupportedProvider = errors.New("unsupported oauth provider")
	// ErrProviderNotConfigured is returned for a supported provider with no credentials or definition.
	ErrProviderNotConfigured = errors.New("oauth provider not configured")
	// ErrInvalidState is returned when the callback state is absent or differs from the state cookie.
	ErrInvalidState = errors.New("invalid oauth state")
	// ErrMissingVerifier is returned when the PKCE verifier cookie is absent.
	ErrMissingVerifier = errors.New("missing pkce code verifier")
	// ErrExchangeFailed is returned when the provider rejects the authorization code.
	ErrExchangeFailed = errors.New("oauth code exchange failed")
	// ErrProfileFailed is returned when the provider profile cannot be fetched or lacks an id or email.
	ErrProfileFailed = errors.New("oauth profile fetch failed")
)
