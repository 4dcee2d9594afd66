package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jrsteele09/go-roleplay-desk/identity"
	"github.com/jrsteele09/go-roleplay-desk/internal/errors"
)

const (
	tracerName = "github.com/jrsteele09/go-roleplay-desk/session"

	// DefaultIdentityTimeout bounds every identity provider call made while resolving.
	DefaultIdentityTimeout = 5 * time.Second
)

// Resolver works out who a request belongs to from its token cookies. It asks the identity
// provider about the access token and, failing that, exchanges the refresh token. Remote
// errors are never retried and never escape: they resolve to a redirect.
type Resolver struct {
	client  identity.Client
	timeout time.Duration
	metrics *Metrics
	tracer  trace.Tracer
}

type ResolverOption func(*Resolver)

// WithTimeout bounds each identity provider call.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMetrics records resolution outcomes.
func WithMetrics(m *Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) ResolverOption {
	return func(r *Resolver) {
		r.tracer = t
	}
}

func NewResolver(client identity.Client, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:  client,
		timeout: DefaultIdentityTimeout,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the outcome for the given credentials. next is the URL the request was
// for; it is carried on a redirect outcome.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials, next string) Outcome {
	ctx, span := r.tracer.Start(ctx, "session.Resolve")
	defer span.End()

	if creds.AccessToken != "" {
		user, err := r.currentUser(ctx, creds.AccessToken)
		if err == nil {
			span.SetAttributes(attribute.String("session.outcome", "authenticated"))
			r.metrics.outcome("authenticated")
			return authenticated(user, nil)
		}
		log.Debug().Err(err).Str("token", fingerprint(creds.AccessToken)).Msg("access token rejected")
	}

	if creds.RefreshToken != "" {
		res, err := r.refresh(ctx, creds.RefreshToken)
		r.metrics.refresh("resolver", err == nil)
		if err == nil {
			span.SetAttributes(attribute.String("session.outcome", "refreshed"))
			r.metrics.outcome("refreshed")
			return authenticated(res.User, res.Session)
		}
		log.Info().Err(err).Str("token", fingerprint(creds.RefreshToken)).Msg("refresh token rejected")
		span.RecordError(err)
	}

	span.SetStatus(codes.Error, "unauthenticated")
	span.SetAttributes(attribute.String("session.outcome", "redirect"))
	r.metrics.outcome("redirect")
	return redirectTo(next)
}

func (r *Resolver) currentUser(ctx context.Context, accessToken string) (*identity.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	user, err := r.client.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if user == nil || user.ID == "" {
		return nil, errors.ErrUserNotFound
	}
	return user, nil
}

// Refresh exchanges a refresh token for a new pair. The old refresh token must be treated
// as consumed whatever the result.
func (r *Resolver) Refresh(ctx context.Context, refreshToken string) (*identity.AuthResult, error) {
	ctx, span := r.tracer.Start(ctx, "session.Refresh")
	defer span.End()

	res, err := r.refresh(ctx, refreshToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
	}
	return res, err
}

func (r *Resolver) refresh(ctx context.Context, refreshToken string) (*identity.AuthResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.client.RefreshSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if res == nil || res.Session == nil || res.Session.AccessToken == "" {
		return nil, errors.ErrSessionMissing
	}
	if res.User == nil || res.User.ID == "" {
		return nil, errors.ErrUserNotFound
	}
	return res, nil
}
