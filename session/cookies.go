package session

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-roleplay-desk/identity"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	NextCookie         = "next"
	ChatSessionCookie  = "chat_session_id"

	// DefaultLoginPath is where unauthenticated requests are sent.
	DefaultLoginPath = "/login"
)

// Credentials are the token cookies carried by a request.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether neither token is present.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// CredentialsFromRequest reads the token cookies.
func CredentialsFromRequest(r *http.Request) Credentials {
	return Credentials{
		AccessToken:  cookieValue(r, AccessTokenCookie),
		RefreshToken: cookieValue(r, RefreshTokenCookie),
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// newCookie builds a cookie with the attributes every cookie of this application carries.
// maxAge follows http.Cookie semantics: 0 is a browser session cookie, negative deletes.
func newCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// SetCookie stages a cookie on the response, replacing any Set-Cookie for the same name
// staged earlier in the request. The last writer wins.
func SetCookie(w http.ResponseWriter, c *http.Cookie) {
	h := w.Header()
	if existing := h.Values("Set-Cookie"); len(existing) > 0 {
		kept := existing[:0:0]
		for _, line := range existing {
			if !setCookieHasName(line, c.Name) {
				kept = append(kept, line)
			}
		}
		h.Del("Set-Cookie")
		for _, line := range kept {
			h.Add("Set-Cookie", line)
		}
	}
	http.SetCookie(w, c)
}

func setCookieHasName(line, name string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), name+"=")
}

func hasSetCookie(h http.Header, name string) bool {
	for _, line := range h.Values("Set-Cookie") {
		if setCookieHasName(line, name) {
			return true
		}
	}
	return false
}

// SetSessionCookies stores both tokens of a session.
func SetSessionCookies(w http.ResponseWriter, s *identity.Session) {
	if s == nil {
		return
	}
	SetCookie(w, newCookie(AccessTokenCookie, s.AccessToken, 0))
	SetCookie(w, newCookie(RefreshTokenCookie, s.RefreshToken, 0))
}

func sessionCookies(s *identity.Session) []*http.Cookie {
	return []*http.Cookie{
		newCookie(AccessTokenCookie, s.AccessToken, 0),
		newCookie(RefreshTokenCookie, s.RefreshToken, 0),
	}
}

// ClearSessionCookies deletes both token cookies.
func ClearSessionCookies(w http.ResponseWriter) {
	SetCookie(w, newCookie(AccessTokenCookie, "", -1))
	SetCookie(w, newCookie(RefreshTokenCookie, "", -1))
}

// SetNextCookie remembers where to send the user after a successful login. The destination
// is query escaped: raw request URIs may hold bytes such as ';' and '"' that are not valid
// in a cookie value.
func SetNextCookie(w http.ResponseWriter, destination string, maxAge time.Duration) {
	SetCookie(w, newCookie(NextCookie, url.QueryEscape(destination), int(maxAge.Seconds())))
}

// ClearNextCookie forgets the post-login destination.
func ClearNextCookie(w http.ResponseWriter) {
	SetCookie(w, newCookie(NextCookie, "", -1))
}

// SetChatSessionCookie remembers the roleplay session the user is working in.
func SetChatSessionCookie(w http.ResponseWriter, sessionID string) {
	SetCookie(w, newCookie(ChatSessionCookie, sessionID, 0))
}

func ClearChatSessionCookie(w http.ResponseWriter) {
	SetCookie(w, newCookie(ChatSessionCookie, "", -1))
}

// ChatSessionFromRequest returns the remembered roleplay session id, if any.
func ChatSessionFromRequest(r *http.Request) string {
	return cookieValue(r, ChatSessionCookie)
}

// NextFromRequest returns the remembered post-login destination, or fallback when absent
// or not a local path.
func NextFromRequest(r *http.Request, fallback string) string {
	dest, err := url.QueryUnescape(cookieValue(r, NextCookie))
	if err != nil {
		return fallback
	}
	return SafeNext(dest, fallback)
}

// SafeNext only lets through same-site absolute paths, so a crafted cookie can't turn the
// login page into an open redirect.
func SafeNext(dest, fallback string) string {
	if dest == "" || !strings.HasPrefix(dest, "/") || strings.HasPrefix(dest, "//") || strings.HasPrefix(dest, "/\\") {
		return fallback
	}
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return u.RequestURI()
}

// withCredentials returns a copy of r whose Cookie header carries the new token pair, so
// handlers further down see a live session.
func withCredentials(r *http.Request, s *identity.Session) *http.Request {
	cookies := r.Cookies()
	r2 := r.Clone(r.Context())
	r2.Header.Del("Cookie")

	var sawRefresh bool
	for _, c := range cookies {
		switch c.Name {
		case AccessTokenCookie:
			c.Value = s.AccessToken
		case RefreshTokenCookie:
			c.Value = s.RefreshToken
			sawRefresh = true
		}
		r2.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	if !sawRefresh {
		r2.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: s.RefreshToken})
	}
	return r2
}

// withoutCredentials returns a copy of r without the token cookies.
func withoutCredentials(r *http.Request) *http.Request {
	cookies := r.Cookies()
	r2 := r.Clone(r.Context())
	r2.Header.Del("Cookie")
	for _, c := range cookies {
		if c.Name == AccessTokenCookie || c.Name == RefreshTokenCookie {
			continue
		}
		r2.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return r2
}
