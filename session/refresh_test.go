package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jrsteele09/go-roleplay-desk/identity"
	identitymock "github.com/jrsteele09/go-roleplay-desk/identity/mock"
	"github.com/jrsteele09/go-roleplay-desk/session"
	"github.com/jrsteele09/go-roleplay-desk/token"
)

// passThrough records the credentials it was called with.
func passThrough(called *bool, seen *session.Credentials) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*called = true
		*seen = session.CredentialsFromRequest(r)
		_, _ = w.Write([]byte("ok"))
	}
}

func TestRefreshMiddleware_PassesThrough(t *testing.T) {
	f := setupTestFixture(t)

	tests := []struct {
		name  string
		creds func() session.Credentials
	}{
		{"no access token", func() session.Credentials {
			return session.Credentials{RefreshToken: f.session.RefreshToken}
		}},
		{"valid access token", func() session.Credentials {
			return session.Credentials{AccessToken: f.session.AccessToken, RefreshToken: f.session.RefreshToken}
		}},
		{"invalid access token", func() session.Credentials {
			return session.Credentials{AccessToken: "tampered", RefreshToken: f.session.RefreshToken}
		}},
		{"expired without refresh token", func() session.Credentials {
			return session.Credentials{AccessToken: f.expiredAccessToken(t)}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := tt.creds()
			var called bool
			var seen session.Credentials

			rr := httptest.NewRecorder()
			f.refresh.Middleware(passThrough(&called, &seen))(rr, newRequest(http.MethodGet, "/chat", creds))

			require.True(t, called)
			require.Equal(t, creds, seen)
			require.Equal(t, http.StatusOK, rr.Code)
			require.Empty(t, rr.Result().Header.Values("Set-Cookie"))
		})
	}
}

func TestRefreshMiddleware_InvalidTokenNeverRefreshes(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := identitymock.NewClient(ctrl) // no calls expected
	mw := session.NewRefreshMiddleware(token.NewCodec(secretStr), session.NewResolver(client))

	var called bool
	var seen session.Credentials
	rr := httptest.NewRecorder()
	mw.Middleware(passThrough(&called, &seen))(rr, newRequest(http.MethodGet, "/chat", session.Credentials{
		AccessToken:  "tampered",
		RefreshToken: "rt",
	}))
	require.True(t, called)
}

func TestRefreshMiddleware_RefreshRoundTrip(t *testing.T) {
	f := setupTestFixture(t)

	var called bool
	var seen session.Credentials
	rr := httptest.NewRecorder()
	f.refresh.Middleware(passThrough(&called, &seen))(rr, newRequest(http.MethodGet, "/chat/create?x=1", session.Credentials{
		AccessToken:  f.expiredAccessToken(t),
		RefreshToken: f.session.RefreshToken,
	}))

	resp := rr.Result()
	require.True(t, called)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, resp.Header.Values("Set-Cookie"), 2)

	access := responseCookie(resp, session.AccessTokenCookie)
	refresh := responseCookie(resp, session.RefreshTokenCookie)
	requireSecureCookie(t, access)
	requireSecureCookie(t, refresh)
	require.Equal(t, token.Valid, f.codec.Classify(access.Value))
	require.NotEqual(t, f.session.RefreshToken, refresh.Value)

	// Downstream saw the new pair, not the expired one.
	require.Equal(t, access.Value, seen.AccessToken)
	require.Equal(t, refresh.Value, seen.RefreshToken)

	// The new access token alone is enough on the next request, with no further refresh.
	ctrl := gomock.NewController(t)
	client := identitymock.NewClient(ctrl)
	client.EXPECT().GetUser(gomock.Any(), access.Value).Return(f.user, nil)
	gate := session.NewGate(session.NewResolver(client))
	mw := session.NewRefreshMiddleware(f.codec, session.NewResolver(client))

	var user *identity.User
	rr = httptest.NewRecorder()
	mw.Middleware(gate.Require(userHandler(&user)))(rr, newRequest(http.MethodGet, "/chat", session.Credentials{AccessToken: access.Value}))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, f.user.ID, user.ID)
	require.Empty(t, rr.Result().Header.Values("Set-Cookie"))
}

func TestRefreshMiddleware_RefreshFailure(t *testing.T) {
	f := setupTestFixture(t)

	var called bool
	var seen session.Credentials
	rr := httptest.NewRecorder()
	f.refresh.Middleware(passThrough(&called, &seen))(rr, newRequest(http.MethodGet, "/chat/create?x=1", session.Credentials{
		AccessToken:  f.expiredAccessToken(t),
		RefreshToken: "revoked",
	}))

	resp := rr.Result()
	require.False(t, called)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))

	for _, name := range []string{session.AccessTokenCookie, session.RefreshTokenCookie} {
		c := responseCookie(resp, name)
		requireSecureCookie(t, c)
		require.Empty(t, c.Value)
		require.Less(t, c.MaxAge, 0)
	}
	next := responseCookie(resp, session.NextCookie)
	requireSecureCookie(t, next)
	require.Equal(t, "/chat/create?x=1", nextDestination(t, next))
}

func TestRefreshMiddleware_RefreshFailureHTMX(t *testing.T) {
	f := setupTestFixture(t)

	rr := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/htmx/chat/", session.Credentials{
		AccessToken:  f.expiredAccessToken(t),
		RefreshToken: "revoked",
	})
	r.Header.Set("HX-Request", "true")
	r.Header.Set("HX-Current-URL", "http://example.com/chat/7")
	f.refresh.Middleware(passThrough(new(bool), new(session.Credentials)))(rr, r)

	resp := rr.Result()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("HX-Redirect"))
	require.Equal(t, "/chat/7", nextDestination(t, responseCookie(resp, session.NextCookie)))
}

func TestRefreshMiddleware_RefreshTokenIsUsedOnce(t *testing.T) {
	f := setupTestFixture(t)
	creds := session.Credentials{AccessToken: f.expiredAccessToken(t), RefreshToken: f.session.RefreshToken}

	rr := httptest.NewRecorder()
	f.refresh.Middleware(passThrough(new(bool), new(session.Credentials)))(rr, newRequest(http.MethodGet, "/chat", creds))
	require.Equal(t, http.StatusOK, rr.Code)

	// Replaying the consumed pair ends the session.
	rr = httptest.NewRecorder()
	f.refresh.Middleware(passThrough(new(bool), new(session.Credentials)))(rr, newRequest(http.MethodGet, "/chat", creds))
	require.Equal(t, http.StatusSeeOther, rr.Code)
}

func TestRefreshMiddleware_LaterCookieWriteWins(t *testing.T) {
	f := setupTestFixture(t)

	rr := httptest.NewRecorder()
	f.refresh.Middleware(func(w http.ResponseWriter, r *http.Request) {
		session.SetSessionCookies(w, &identity.Session{AccessToken: "from-gate", RefreshToken: "from-gate-rt"})
		w.WriteHeader(http.StatusOK)
	})(rr, newRequest(http.MethodGet, "/chat", session.Credentials{
		AccessToken:  f.expiredAccessToken(t),
		RefreshToken: f.session.RefreshToken,
	}))

	resp := rr.Result()
	require.Equal(t, 1, countSetCookie(resp, session.AccessTokenCookie))
	require.Equal(t, 1, countSetCookie(resp, session.RefreshTokenCookie))
	require.Equal(t, "from-gate", responseCookie(resp, session.AccessTokenCookie).Value)
	require.Equal(t, "from-gate-rt", responseCookie(resp, session.RefreshTokenCookie).Value)
}

func TestRefreshMiddleware_HandlerThatNeverWrites(t *testing.T) {
	f := setupTestFixture(t)

	rr := httptest.NewRecorder()
	f.refresh.Middleware(func(http.ResponseWriter, *http.Request) {})(rr, newRequest(http.MethodGet, "/chat", session.Credentials{
		AccessToken:  f.expiredAccessToken(t),
		RefreshToken: f.session.RefreshToken,
	}))
	require.Len(t, rr.Header().Values("Set-Cookie"), 2)
}

func TestRefreshMiddleware_ClientGoneWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := identitymock.NewClient(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	client.EXPECT().RefreshSession(gomock.Any(), "rt").DoAndReturn(func(ctx context.Context, _ string) (*identity.AuthResult, error) {
		cancel()
		return nil, ctx.Err()
	})

	f := setupTestFixture(t)
	mw := session.NewRefreshMiddleware(f.codec, session.NewResolver(client))

	var called bool
	rr := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/chat", session.Credentials{
		AccessToken:  f.expiredAccessToken(t),
		RefreshToken: "rt",
	}).WithContext(ctx)
	mw.Middleware(passThrough(&called, new(session.Credentials)))(rr, r)

	require.False(t, called)
	require.Empty(t, rr.Header().Values("Set-Cookie"))
	require.Zero(t, rr.Body.Len())
}

func TestRefreshMiddleware_RefreshFailureOnEntryPath(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
	}{
		{"login page", http.MethodPost, "/login"},
		{"sign up", http.MethodPost, "/register"},
		{"auth api", http.MethodPost, "/api/auth/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t, session.WithEntryPaths("/register", "/api/auth/"))

			var called bool
			var seen session.Credentials
			rr := httptest.NewRecorder()
			r := newRequest(tt.method, tt.target, session.Credentials{
				AccessToken:  f.expiredAccessToken(t),
				RefreshToken: "revoked",
			})
			r.AddCookie(&http.Cookie{Name: session.NextCookie, Value: "%2Fchat%2Fcreate"})
			f.refresh.Middleware(passThrough(&called, &seen))(rr, r)

			resp := rr.Result()
			require.True(t, called)
			require.True(t, seen.Empty())
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Empty(t, resp.Header.Get("Location"))
			require.Empty(t, resp.Header.Get("HX-Redirect"))
			for _, name := range []string{session.AccessTokenCookie, session.RefreshTokenCookie} {
				require.Less(t, responseCookie(resp, name).MaxAge, 0)
			}
			// the remembered destination is left for the login handler
			require.Nil(t, responseCookie(resp, session.NextCookie))
		})
	}
}

func TestRefreshMiddleware_NeverRemembersLoginPath(t *testing.T) {
	f := setupTestFixture(t)

	rr := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/htmx/chat/", session.Credentials{
		AccessToken:  f.expiredAccessToken(t),
		RefreshToken: "revoked",
	})
	r.Header.Set("HX-Request", "true")
	r.Header.Set("HX-Current-URL", "http://example.com/login")
	f.refresh.Middleware(passThrough(new(bool), new(session.Credentials)))(rr, r)

	resp := rr.Result()
	require.Equal(t, "/login", resp.Header.Get("HX-Redirect"))
	require.Nil(t, responseCookie(resp, session.NextCookie))
}
