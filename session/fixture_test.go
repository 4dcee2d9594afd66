package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-roleplay-desk/identity"
	"github.com/jrsteele09/go-roleplay-desk/identity/fakeidentity"
	"github.com/jrsteele09/go-roleplay-desk/session"
	"github.com/jrsteele09/go-roleplay-desk/token"
)

const (
	secretStr        = "super-secret-jwt-token-with-at-least-32-characters"
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "password123"
)

type testFixture struct {
	provider *fakeidentity.Provider
	codec    *token.Codec
	resolver *session.Resolver
	gate     *session.Gate
	refresh  *session.RefreshMiddleware
	user     *identity.User
	session  *identity.Session
}

func setupTestFixture(t *testing.T, opts ...session.GateOption) *testFixture {
	t.Helper()

	provider := fakeidentity.New(secretStr)
	res, err := provider.SignUp(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.NotNil(t, res.Session)

	codec := token.NewCodec(secretStr)
	resolver := session.NewResolver(provider, session.WithTimeout(time.Second))
	return &testFixture{
		provider: provider,
		codec:    codec,
		resolver: resolver,
		gate:     session.NewGate(resolver, opts...),
		refresh:  session.NewRefreshMiddleware(codec, resolver, opts...),
		user:     res.User,
		session:  res.Session,
	}
}

func (f *testFixture) expiredAccessToken(t *testing.T) string {
	t.Helper()
	raw, err := f.provider.AccessToken(f.user.ID, f.user.Email, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	return raw
}

func newRequest(method, target string, creds session.Credentials) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	if creds.AccessToken != "" {
		r.AddCookie(&http.Cookie{Name: session.AccessTokenCookie, Value: creds.AccessToken})
	}
	if creds.RefreshToken != "" {
		r.AddCookie(&http.Cookie{Name: session.RefreshTokenCookie, Value: creds.RefreshToken})
	}
	return r
}

func responseCookie(resp *http.Response, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

// nextDestination decodes the post-login destination stored in the next cookie.
func nextDestination(t *testing.T, c *http.Cookie) string {
	t.Helper()
	require.NotNil(t, c)
	dest, err := url.QueryUnescape(c.Value)
	require.NoError(t, err)
	return dest
}

func countSetCookie(resp *http.Response, name string) int {
	n := 0
	for _, c := range resp.Cookies() {
		if c.Name == name {
			n++
		}
	}
	return n
}

func requireSecureCookie(t *testing.T, c *http.Cookie) {
	t.Helper()
	require.NotNil(t, c)
	require.True(t, c.HttpOnly)
	require.True(t, c.Secure)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.Equal(t, "/", c.Path)
}

// userHandler records the user it was called with.
func userHandler(seen **identity.User) session.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		*seen = user
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func jwtClaims(subject string, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}
