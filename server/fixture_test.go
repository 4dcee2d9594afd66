package server_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-roleplay-desk/catalog"
	"github.com/jrsteele09/go-roleplay-desk/catalog/fakecatalog"
	"github.com/jrsteele09/go-roleplay-desk/chat"
	"github.com/jrsteele09/go-roleplay-desk/chat/fakechat"
	"github.com/jrsteele09/go-roleplay-desk/identity"
	"github.com/jrsteele09/go-roleplay-desk/identity/fakeidentity"
	"github.com/jrsteele09/go-roleplay-desk/internal/config"
	"github.com/jrsteele09/go-roleplay-desk/llm/fakellm"
	"github.com/jrsteele09/go-roleplay-desk/server"
	"github.com/jrsteele09/go-roleplay-desk/session"
	"github.com/jrsteele09/go-roleplay-desk/storage/fakestorage"
	"github.com/jrsteele09/go-roleplay-desk/token"
)

const (
	secretStr        = "super-secret-jwt-token-with-at-least-32-characters"
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "password123"
	testReply        = "I'm looking for a three bedroom house near a good school."
)

type testServer struct {
	srv      *server.Server
	provider *fakeidentity.Provider
	chatRepo *fakechat.Repo
	images   *fakestorage.Store
	model    *fakellm.Completer
	registry *prometheus.Registry
	user     *identity.User
	session  *identity.Session
}

// setupTestConfig sets the required environment and returns the configuration built from it.
func setupTestConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("SUPABASE_URL", "https://project.supabase.test")
	t.Setenv("SUPABASE_KEY", "anon-key")
	t.Setenv("SUPABASE_JWT_SECRET", secretStr)
	t.Setenv("SITE_URL", "https://desk.example.com")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("IDENTITY_TIMEOUT", "2s")

	cfg, err := config.New()
	require.NoError(t, err)
	return cfg
}

func setupTestServer(t *testing.T, opts ...fakeidentity.Option) *testServer {
	t.Helper()
	cfg := setupTestConfig(t)

	provider := fakeidentity.New(secretStr, opts...)
	ts := &testServer{
		provider: provider,
		chatRepo: fakechat.New(),
		images:   fakestorage.New(),
		model:    &fakellm.Completer{Fixed: testReply},
		registry: prometheus.NewRegistry(),
	}

	res, err := provider.SignUp(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)
	ts.user = res.User
	ts.session = res.Session

	ts.srv, err = server.New(cfg, server.Dependencies{
		Identity: provider,
		Codec:    token.NewCodec(secretStr),
		Catalog:  catalog.NewService(fakecatalog.New(), ts.images),
		Chat:     chat.NewService(ts.chatRepo, ts.model),
		Registry: ts.registry,
	})
	require.NoError(t, err)
	return ts
}

func (ts *testServer) do(r *http.Request) *http.Response {
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, r)
	return rec.Result()
}

// signedIn adds the fixture user's session cookies to r.
func (ts *testServer) signedIn(r *http.Request) *http.Request {
	return withSession(r, ts.session)
}

func withSession(r *http.Request, s *identity.Session) *http.Request {
	r.AddCookie(&http.Cookie{Name: session.AccessTokenCookie, Value: s.AccessToken})
	r.AddCookie(&http.Cookie{Name: session.RefreshTokenCookie, Value: s.RefreshToken})
	return r
}

func (ts *testServer) expiredAccessToken(t *testing.T) string {
	t.Helper()
	raw, err := ts.provider.AccessToken(ts.user.ID, ts.user.Email, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	return raw
}

// startChatSession creates a roleplay session for the fixture user through the service.
func (ts *testServer) startChatSession(t *testing.T, userID string) *chat.Session {
	t.Helper()
	svc := chat.NewService(ts.chatRepo, ts.model)
	created, err := svc.StartSession(context.Background(), userID, validPersona())
	require.NoError(t, err)
	return created
}

func validPersona() chat.ClientParameters {
	return chat.ClientParameters{
		ClientName:        "Dana Whitfield",
		ClientType:        "first-time-buyer",
		BudgetMin:         300000,
		BudgetMax:         450000,
		UrgencyLevel:      7,
		PersonalityTraits: []string{"analytical", "cautious"},
	}
}

func formRequest(method, target string, values url.Values) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func htmx(r *http.Request) *http.Request {
	r.Header.Set("HX-Request", "true")
	return r
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// multipartRequest builds an item form. image may be nil.
func multipartRequest(t *testing.T, target string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, target, &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
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

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

// requireSessionCookie checks a token cookie carries the attributes every token cookie must.
// nextDestination decodes the post-login destination stored in the next cookie.
func nextDestination(t *testing.T, c *http.Cookie) string {
	t.Helper()
	require.NotNil(t, c)
	dest, err := url.QueryUnescape(c.Value)
	require.NoError(t, err)
	return dest
}

func requireSessionCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	c := responseCookie(resp, name)
	require.NotNil(t, c, "missing %s cookie", name)
	require.NotEmpty(t, c.Value)
	require.True(t, c.HttpOnly)
	require.True(t, c.Secure)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.Equal(t, "/", c.Path)
	return c
}

func requireClearedCookie(t *testing.T, resp *http.Response, name string) {
	t.Helper()
	c := responseCookie(resp, name)
	require.NotNil(t, c, "expected %s to be cleared", name)
	require.Empty(t, c.Value)
	require.Less(t, c.MaxAge, 0)
}
