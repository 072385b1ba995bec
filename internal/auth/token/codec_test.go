package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCodec_IssueAndParse(t *testing.T) {
	clock := newClock()
	codec := NewCodec(testSecret, clock.Now)

	raw, err := codec.Issue(Identity{UserID: 7, Email: "a@x.com", IsAdmin: true}, KindAccess, time.Hour)
	require.NoError(t, err)

	p, err := codec.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint(7), p.UserID)
	assert.Equal(t, "a@x.com", p.Email)
	assert.True(t, p.IsAdmin)
	assert.Equal(t, KindAccess, p.Kind)
	assert.True(t, p.IssuedAt.Equal(clock.t))
	assert.True(t, p.ExpiresAt.Equal(clock.t.Add(time.Hour)))
	assert.Zero(t, p.SessionID)
}

func TestCodec_RefreshDropsAdminFlag(t *testing.T) {
	codec := NewCodec(testSecret, newClock().Now)

	raw, err := codec.Issue(Identity{UserID: 7, Email: "a@x.com", IsAdmin: true}, KindRefresh, time.Hour)
	require.NoError(t, err)

	p, err := codec.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, KindRefresh, p.Kind)
	assert.False(t, p.IsAdmin)
}

func TestCodec_TokensAreUnique(t *testing.T) {
	codec := NewCodec(testSecret, newClock().Now)
	id := Identity{UserID: 7, Email: "a@x.com"}

	a, err := codec.Issue(id, KindAccess, time.Hour)
	require.NoError(t, err)
	b, err := codec.Issue(id, KindAccess, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "same identity and instant must still yield distinct tokens")
}

func TestCodec_Expired(t *testing.T) {
	clock := newClock()
	codec := NewCodec(testSecret, clock.Now)

	raw, err := codec.Issue(Identity{UserID: 7}, KindAccess, time.Hour)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = codec.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCodec_InvalidSignature(t *testing.T) {
	clock := newClock()
	raw, err := NewCodec(testSecret, clock.Now).Issue(Identity{UserID: 7}, KindAccess, time.Hour)
	require.NoError(t, err)

	other := NewCodec([]byte("another-secret-another-secret-xx"), clock.Now)
	_, err = other.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// Tampered payload.
	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	forged, err := NewCodec([]byte("forger-secret-forger-secret-xxxx"), clock.Now).Issue(Identity{UserID: 1, IsAdmin: true}, KindAccess, time.Hour)
	require.NoError(t, err)
	tampered := parts[0] + "." + strings.Split(forged, ".")[1] + "." + parts[2]
	_, err = NewCodec(testSecret, clock.Now).Parse(tampered)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_RejectsOtherAlgorithms(t *testing.T) {
	clock := newClock()
	cl := claims{
		UserID: 7,
		Kind:   KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, cl).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewCodec(testSecret, clock.Now).Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_Malformed(t *testing.T) {
	codec := NewCodec(testSecret, newClock().Now)

	for _, raw := range []string{"", "abc", "a.b.c", "not-a-token.at.all"} {
		_, err := codec.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalid, raw)
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}
}

func TestCodec_RejectsUnknownKind(t *testing.T) {
	clock := newClock()
	codec := NewCodec(testSecret, clock.Now)

	_, err := codec.Issue(Identity{UserID: 7}, Kind("id"), time.Hour)
	assert.Error(t, err)

	cl := claims{
		UserID: 7,
		Kind:   Kind("id"),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(testSecret)
	require.NoError(t, err)

	_, err = codec.Parse(raw)
	assert.ErrorIs(t, err, ErrMalformed)
}
