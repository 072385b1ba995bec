package middleware

import (
	"net/http"
	"time"
)

// Session cookie names.
const (
	AuthCookieName    = "auth_token"
	RefreshCookieName = "refresh_token"
)

// SessionCookies writes the auth and refresh cookies.
type SessionCookies struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// SetAuth writes the access token cookie.
func (c SessionCookies) SetAuth(w http.ResponseWriter, token string) {
	c.set(w, AuthCookieName, token, c.AccessTTL)
}

// SetRefresh writes the refresh token cookie.
func (c SessionCookies) SetRefresh(w http.ResponseWriter, token string) {
	c.set(w, RefreshCookieName, token, c.RefreshTTL)
}

// ClearAuth expires the access token cookie.
func (c SessionCookies) ClearAuth(w http.ResponseWriter) {
	c.clear(w, AuthCookieName)
}

// ClearAll expires both session cookies.
func (c SessionCookies) ClearAll(w http.ResponseWriter) {
	c.clear(w, AuthCookieName)
	c.clear(w, RefreshCookieName)
}

func (c SessionCookies) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.Secure,
	})
}

func (c SessionCookies) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.Secure,
	})
}
