package session

import (
	"bufio"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-roleplay-desk/token"
)

// Classifier tells apart valid, expired and invalid access tokens without I/O.
type Classifier interface {
	Classify(accessToken string) token.Status
}

// RefreshMiddleware swaps an expired access token for a fresh pair before the request is
// routed. It only acts on provable expiry: invalid tokens pass through for the gate to reject.
type RefreshMiddleware struct {
	settings
	codec    Classifier
	resolver *Resolver
}

func NewRefreshMiddleware(codec Classifier, resolver *Resolver, opts ...GateOption) *RefreshMiddleware {
	return &RefreshMiddleware{
		settings: newSettings(opts),
		codec:    codec,
		resolver: resolver,
	}
}

// Middleware has the shape of the server's middleware chain.
func (m *RefreshMiddleware) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds := CredentialsFromRequest(r)
		if creds.AccessToken == "" {
			next(w, r)
			return
		}

		status := m.codec.Classify(creds.AccessToken)
		m.resolver.metrics.classified(status.String())
		if status != token.Expired || creds.RefreshToken == "" {
			next(w, r)
			return
		}

		res, err := m.resolver.Refresh(r.Context(), creds.RefreshToken)
		if r.Context().Err() != nil {
			// Client went away; nothing will be read.
			return
		}
		m.resolver.metrics.refresh("middleware", err == nil)
		if err != nil {
			log.Info().Err(err).
				Str("token", fingerprint(creds.RefreshToken)).
				Str("path", r.URL.Path).
				Msg("refresh before routing failed")
			ClearSessionCookies(w)
			if m.isEntryPath(r.URL.Path) {
				// The request is signing in; let it through without the dead pair.
				next(w, withoutCredentials(r))
				return
			}
			m.rememberNext(w, OriginalURL(r))
			Redirect(w, r, m.loginPath)
			return
		}

		log.Debug().Str("user", res.User.ID).Msg("session refreshed before routing")
		cw := &cookieWriter{ResponseWriter: w, pending: sessionCookies(res.Session)}
		next(cw, withCredentials(r, res.Session))
		cw.flush()
	}
}

// cookieWriter adds the refreshed cookies to the response headers just before they are
// sent. A cookie a handler already set under the same name is left alone: that write
// happened later in the request and wins.
type cookieWriter struct {
	http.ResponseWriter
	pending []*http.Cookie
	flushed bool
}

func (cw *cookieWriter) flush() {
	if cw.flushed {
		return
	}
	cw.flushed = true
	h := cw.ResponseWriter.Header()
	for _, c := range cw.pending {
		if !hasSetCookie(h, c.Name) {
			http.SetCookie(cw.ResponseWriter, c)
		}
	}
}

func (cw *cookieWriter) WriteHeader(code int) {
	cw.flush()
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *cookieWriter) Write(b []byte) (int, error) {
	cw.flush()
	return cw.ResponseWriter.Write(b)
}

func (cw *cookieWriter) Flush() {
	cw.flush()
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *cookieWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	cw.flush()
	return http.NewResponseController(cw.ResponseWriter).Hijack()
}

func (cw *cookieWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
