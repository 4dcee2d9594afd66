package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-roleplay-desk/identity"
	"github.com/jrsteele09/go-roleplay-desk/server"
	"github.com/jrsteele09/go-roleplay-desk/session"
)

func TestAPILogin(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(jsonRequest(http.MethodPost, server.RouteAPILogin, `{"email":"`+testUserEmail+`","password":"`+testUserPassword+`"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result identity.AuthResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.NotNil(t, result.Session)
	require.NotEmpty(t, result.Session.AccessToken)
	require.NotEmpty(t, result.Session.RefreshToken)
	require.Equal(t, ts.user.ID, result.User.ID)
}

func TestAPILoginFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"wrong password", `{"email":"` + testUserEmail + `","password":"nope"}`, http.StatusUnauthorized},
		{"missing password", `{"email":"` + testUserEmail + `"}`, http.StatusBadRequest},
		{"malformed json", `{"email":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServer(t)

			resp := ts.do(jsonRequest(http.MethodPost, server.RouteAPILogin, tt.body))
			require.Equal(t, tt.want, resp.StatusCode)
			require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		})
	}
}

func TestAPIRegister(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(jsonRequest(http.MethodPost, server.RouteAPIRegister, `{"email":"api.user@example.com","password":"secret-pass"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result identity.AuthResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Equal(t, "api.user@example.com", result.User.Email)

	resp = ts.do(jsonRequest(http.MethodPost, server.RouteAPIRegister, `{"email":"api.user@example.com","password":"secret-pass"}`))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIRefresh(t *testing.T) {
	ts := setupTestServer(t)

	r := httptest.NewRequest(http.MethodPost, server.RouteAPIRefresh, nil)
	r.AddCookie(&http.Cookie{Name: session.RefreshTokenCookie, Value: ts.session.RefreshToken})
	resp := ts.do(r)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	requireSessionCookie(t, resp, session.AccessTokenCookie)
	refresh := requireSessionCookie(t, resp, session.RefreshTokenCookie)
	require.NotEqual(t, ts.session.RefreshToken, refresh.Value)

	// the old refresh token is spent
	r = jsonRequest(http.MethodPost, server.RouteAPIRefresh, `{"refresh_token":"`+ts.session.RefreshToken+`"}`)
	resp = ts.do(r)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	requireClearedCookie(t, resp, session.AccessTokenCookie)

	// the new one works from a JSON body
	resp = ts.do(jsonRequest(http.MethodPost, server.RouteAPIRefresh, `{"refresh_token":"`+refresh.Value+`"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIRefreshMissingToken(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(httptest.NewRequest(http.MethodPost, server.RouteAPIRefresh, nil))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "refresh token missing", body["error"])
}

func TestAPILogout(t *testing.T) {
	ts := setupTestServer(t)

	r := httptest.NewRequest(http.MethodPost, server.RouteAPILogout, nil)
	r.Header.Set("Authorization", "Bearer "+ts.session.AccessToken)
	resp := ts.do(r)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	requireClearedCookie(t, resp, session.AccessTokenCookie)

	r = httptest.NewRequest(http.MethodGet, server.RouteAPIMe, nil)
	r.Header.Set("Authorization", "Bearer "+ts.session.AccessToken)
	resp = ts.do(r)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPIMe(t *testing.T) {
	ts := setupTestServer(t)

	r := httptest.NewRequest(http.MethodGet, server.RouteAPIMe, nil)
	r.Header.Set("Authorization", "Bearer "+ts.session.AccessToken)
	resp := ts.do(r)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user identity.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	require.Equal(t, ts.user.ID, user.ID)
	require.Equal(t, testUserEmail, user.Email)
}

func TestAPIChat(t *testing.T) {
	ts := setupTestServer(t)

	r := jsonRequest(http.MethodPost, server.RouteAPIChat, `{"script":"Is the garden south facing?"}`)
	r.Header.Set("Authorization", "Bearer "+ts.session.AccessToken)
	resp := ts.do(r)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, testReply, body["response"])

	// form encoded, as the original HTML client posts it
	resp = ts.do(ts.signedIn(formRequest(http.MethodPost, server.RouteAPIChat, url.Values{"script": {"Hello"}})))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, ts.model.Calls(), 2)

	resp = ts.do(ts.signedIn(formRequest(http.MethodPost, server.RouteAPIChat, url.Values{})))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIChatUnauthorized(t *testing.T) {
	ts := setupTestServer(t)

	r := jsonRequest(http.MethodPost, server.RouteAPIChat, `{"script":"hi"}`)
	r.Header.Set("Authorization", "Bearer not-a-token")
	resp := ts.do(r)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, ts.model.Calls())
}

func TestCORSPreflight(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com")
	ts := setupTestServer(t)

	r := httptest.NewRequest(http.MethodOptions, server.RouteAPIChat, nil)
	r.Header.Set("Origin", "https://app.example.com")
	resp := ts.do(r)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	require.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Methods"))

	r = httptest.NewRequest(http.MethodOptions, server.RouteAPIChat, nil)
	r.Header.Set("Origin", "https://evil.example.com")
	resp = ts.do(r)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSSiteURLIsAllowed(t *testing.T) {
	ts := setupTestServer(t)

	r := jsonRequest(http.MethodPost, server.RouteAPILogin, `{"email":"`+testUserEmail+`","password":"`+testUserPassword+`"}`)
	r.Header.Set("Origin", "https://desk.example.com")
	resp := ts.do(r)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "https://desk.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}
