// Package supabase builds the single REST client shared by the auth, table and storage
// adapters, so the process keeps one connection pool towards the project.
package supabase

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/go-roleplay-desk/internal/errors"
)

const (
	AuthPath    = "/auth/v1"
	RESTPath    = "/rest/v1"
	StoragePath = "/storage/v1"

	apiKeyHeader = "apikey"
)

type Option func(*resty.Client)

// WithTimeout bounds every request made through the client.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) {
		c.SetTimeout(d)
	}
}

// WithRequestLogging logs every completed call at debug level and failures at warn level.
func WithRequestLogging(destination string) Option {
	return func(c *resty.Client) {
		c.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			ev := log.Debug()
			if resp.StatusCode() >= http.StatusInternalServerError {
				ev = log.Warn()
			}
			ev.Str("destination", destination).
				Str("method", resp.Request.Method).
				Str("path", resp.Request.RawRequest.URL.Path).
				Int("status", resp.StatusCode()).
				Dur("duration", resp.Time()).
				Msg("http call completed")
			return nil
		})
		c.OnError(func(req *resty.Request, err error) {
			log.Warn().Err(err).
				Str("destination", destination).
				Str("method", req.Method).
				Msg("http call completed with error")
		})
	}
}

// NewClient returns a resty client pointed at the project URL with the anon key attached.
func NewClient(projectURL, apiKey string, opts ...Option) *resty.Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(projectURL, "/")).
		SetHeader(apiKeyHeader, apiKey).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Error is a decoded error body. The different Supabase services disagree on field names,
// so every known variant is read.
type Error struct {
	Status           int    `json:"-"`
	Code             any    `json:"code,omitempty"`
	ErrorCode        string `json:"error_code,omitempty"`
	ErrorName        string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
	Msg              string `json:"msg,omitempty"`
	Message          string `json:"message,omitempty"`
}

func (e *Error) Error() string {
	msg := firstNonEmpty(e.ErrorDescription, e.Msg, e.Message, e.ErrorName)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("supabase: status %d: %s", e.Status, msg)
}

// Unwrap classifies the error by status code.
func (e *Error) Unwrap() error {
	switch {
	case e.Status >= http.StatusInternalServerError:
		return apperrors.ErrRemoteUnavailable
	case e.Status == http.StatusNotFound:
		return apperrors.ErrNotFound
	case e.Status == http.StatusForbidden:
		return apperrors.ErrForbidden
	default:
		return apperrors.ErrRemoteResponse
	}
}

// CodeString returns the machine readable code, whichever field carried it.
func (e *Error) CodeString() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	if s, ok := e.Code.(string); ok {
		return s
	}
	return e.ErrorName
}

// DecodeError turns a non-2xx response into *Error.
func DecodeError(resp *resty.Response) error {
	e := &Error{Status: resp.StatusCode()}
	if body := resp.Body(); len(body) > 0 {
		_ = json.Unmarshal(body, e)
	}
	return e
}

// TransportError wraps a network level failure.
func TransportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, apperrors.ErrRemoteUnavailable, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
