package oauth

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	stateCookiePrefix    = "oauth_state_"
	verifierCookiePrefix = "oauth_code_verifier_"
)

// StateCookieName is the cookie carrying the CSRF state for provider.
func StateCookieName(provider string) string { return stateCookiePrefix + provider }

// VerifierCookieName is the cookie carrying the PKCE verifier for provider.
func VerifierCookieName(provider string) string { return verifierCookiePrefix + provider }

// FlowCookies writes and reads the short-lived handshake cookies. Values are
// signed and encrypted, and a value older than the flow TTL fails to decode.
type FlowCookies struct {
	codec  *securecookie.SecureCookie
	ttl    time.Duration
	secure bool
}

// NewFlowCookies derives the signing and encryption keys from secret.
func NewFlowCookies(secret []byte, ttl time.Duration, secure bool) *FlowCookies {
	hashKey := sha256.Sum256(append([]byte("fintrack-flow-hash:"), secret...))
	blockKey := sha256.Sum256(append([]byte("fintrack-flow-block:"), secret...))

	codec := securecookie.New(hashKey[:], blockKey[:]).
		MaxAge(int(ttl / time.Second)).
		SetSerializer(securecookie.JSONEncoder{})

	return &FlowCookies{codec: codec, ttl: ttl, secure: secure}
}

// Set writes value under name.
func (c *FlowCookies) Set(w http.ResponseWriter, name, value string) error {
	encoded, err := c.codec.Encode(name, value)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(c.ttl / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Take reads the cookie name and, if it was present, emits its deletion.
// A cookie that was present but fails verification reads as absent.
func (c *FlowCookies) Take(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	c.Clear(w, name)

	var value string
	if err := c.codec.Decode(name, cookie.Value, &value); err != nil || value == "" {
		return "", false
	}
	return value, true
}

// Clear emits an expiring cookie for name.
func (c *FlowCookies) Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
