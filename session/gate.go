package session

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-roleplay-desk/identity"
	"github.com/jrsteele09/go-roleplay-desk/token"
)

// DefaultNextMaxAge is how long the post-login destination is remembered.
const DefaultNextMaxAge = 5 * time.Minute

// HandlerFunc is a handler that needs an authenticated user. user is nil only for handlers
// wrapped with Optional.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, user *identity.User)

// Gate puts pages and endpoints behind a resolved identity.
type Gate struct {
	settings
	resolver *Resolver
}

// settings are shared by Gate and RefreshMiddleware so both send users to the same place.
type settings struct {
	loginPath  string
	entryPaths []string
	nextMaxAge time.Duration
	claims     *token.Codec
}

func newSettings(opts []GateOption) settings {
	s := settings{
		loginPath:  DefaultLoginPath,
		nextMaxAge: DefaultNextMaxAge,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

type GateOption func(*settings)

// WithLoginPath changes where unauthenticated requests are sent.
func WithLoginPath(path string) GateOption {
	return func(g *settings) {
		g.loginPath = path
	}
}

// WithEntryPaths names the pages and endpoints that start a session, such as sign up and the
// auth API. A path ending in "/" covers everything below it. The login path is always one.
// Stale cookies sent to an entry path are dropped instead of bouncing the request to the
// login page, and an entry path is never remembered as the post-login destination.
func WithEntryPaths(paths ...string) GateOption {
	return func(g *settings) {
		g.entryPaths = append(g.entryPaths, paths...)
	}
}

func (s settings) isEntryPath(path string) bool {
	if path == s.loginPath {
		return true
	}
	for _, p := range s.entryPaths {
		if path == p || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

// rememberNext sets the next cookie to dest unless dest is an entry path.
func (s settings) rememberNext(w http.ResponseWriter, dest string) {
	if u, err := url.Parse(dest); err == nil && s.isEntryPath(u.Path) {
		return
	}
	SetNextCookie(w, dest, s.nextMaxAge)
}

// WithNextMaxAge sets the lifetime of the post-login destination cookie.
func WithNextMaxAge(d time.Duration) GateOption {
	return func(g *settings) {
		if d > 0 {
			g.nextMaxAge = d
		}
	}
}

// WithLocalClaims lets a locally valid access token through without asking the identity
// provider. The user is built from the token claims alone, so revocation is only noticed
// once the token expires.
func WithLocalClaims(codec *token.Codec) GateOption {
	return func(g *settings) {
		g.claims = codec
	}
}

func NewGate(resolver *Resolver, opts ...GateOption) *Gate {
	return &Gate{
		settings: newSettings(opts),
		resolver: resolver,
	}
}

// Require runs h with the request's user, or redirects to the login page remembering where
// the request was going.
func (g *Gate) Require(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds := CredentialsFromRequest(r)
		outcome := g.resolve(r, creds)
		if r.Context().Err() != nil {
			return
		}

		if !outcome.Authenticated() {
			g.redirectToLogin(w, r, creds, outcome.Next)
			return
		}
		h(w, g.persist(w, r, outcome), outcome.User)
	}
}

// RequireAPI is Require for JSON endpoints: unauthenticated requests get a 401 instead of
// a redirect.
func (g *Gate) RequireAPI(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds := CredentialsFromRequest(r)
		if bearer := bearerToken(r); bearer != "" {
			creds.AccessToken = bearer
		}
		outcome := g.resolve(r, creds)
		if r.Context().Err() != nil {
			return
		}

		if !outcome.Authenticated() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		h(w, g.persist(w, r, outcome), outcome.User)
	}
}

// Optional runs h with the user when there is one and nil otherwise. It never redirects.
func (g *Gate) Optional(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds := CredentialsFromRequest(r)
		if creds.Empty() {
			h(w, r, nil)
			return
		}
		outcome := g.resolve(r, creds)
		if r.Context().Err() != nil {
			return
		}
		h(w, g.persist(w, r, outcome), outcome.User)
	}
}

func (g *Gate) resolve(r *http.Request, creds Credentials) Outcome {
	next := OriginalURL(r)
	if g.claims != nil && creds.AccessToken != "" {
		if outcome, ok := g.fromClaims(creds.AccessToken, next); ok {
			return outcome
		}
	}
	return g.resolver.Resolve(r.Context(), creds, next)
}

// fromClaims is the fast path. ok is false when the token needs the identity provider.
func (g *Gate) fromClaims(accessToken, next string) (Outcome, bool) {
	status := g.claims.Classify(accessToken)
	g.resolver.metrics.classified(status.String())
	if status != token.Valid {
		return Outcome{}, false
	}
	claims, err := g.claims.ExtractClaims(accessToken)
	if err != nil {
		log.Debug().Err(err).Str("token", fingerprint(accessToken)).Msg("access token claims unusable")
		g.resolver.metrics.outcome("redirect")
		return redirectTo(next), true
	}
	g.resolver.metrics.outcome("local")
	return authenticated(&identity.User{
		ID:    claims.Subject,
		Email: claims.Email,
		Phone: claims.Phone,
	}, nil), true
}

// persist writes a refreshed pair onto the response before the handler runs, and hands the
// handler a request that carries it.
func (g *Gate) persist(w http.ResponseWriter, r *http.Request, outcome Outcome) *http.Request {
	if outcome.Refreshed == nil {
		return r
	}
	SetSessionCookies(w, outcome.Refreshed)
	return withCredentials(r, outcome.Refreshed)
}

func (g *Gate) redirectToLogin(w http.ResponseWriter, r *http.Request, creds Credentials, next string) {
	if !creds.Empty() {
		ClearSessionCookies(w)
	}
	g.rememberNext(w, next)
	Redirect(w, r, g.loginPath)
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
