// Package gotrue implements identity.Client against the Supabase Auth (GoTrue) REST API.
package gotrue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jrsteele09/go-roleplay-desk/identity"
	apperrors "github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/internal/supabase"
)

const (
	routeSignUp = supabase.AuthPath + "/signup"
	routeToken  = supabase.AuthPath + "/token"
	routeUser   = supabase.AuthPath + "/user"
	routeLogout = supabase.AuthPath + "/logout"

	grantPassword     = "password"
	grantRefreshToken = "refresh_token"
)

type Client struct {
	rest    *resty.Client
	siteURL string
}

var _ identity.Client = (*Client)(nil)

// New wraps the shared Supabase REST client. siteURL is where verification emails point back to.
func New(rest *resty.Client, siteURL string) *Client {
	return &Client{rest: rest, siteURL: siteURL}
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*identity.AuthResult, error) {
	req := c.rest.R().
		SetContext(ctx).
		SetBody(credentialsIn{Email: email, Password: password})
	if c.siteURL != "" {
		req.SetQueryParam("redirect_to", c.siteURL)
	}

	var out signUpOut
	resp, err := req.SetResult(&out).Post(routeSignUp)
	if err != nil {
		return nil, supabase.TransportError("gotrue sign up", err)
	}
	if resp.IsError() {
		return nil, classify("gotrue sign up", resp, apperrors.ErrInvalidRequest)
	}

	// With email confirmation enabled the provider answers with a bare user and no session.
	if out.AccessToken == "" {
		return &identity.AuthResult{User: out.userOut.toUser()}, nil
	}
	return out.sessionOut.toAuthResult(), nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*identity.AuthResult, error) {
	return c.token(ctx, "gotrue sign in", grantPassword, credentialsIn{Email: email, Password: password}, apperrors.ErrInvalidCredentials)
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*identity.AuthResult, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("gotrue refresh: %w", apperrors.ErrInvalidRefreshToken)
	}
	return c.token(ctx, "gotrue refresh", grantRefreshToken, refreshIn{RefreshToken: refreshToken}, apperrors.ErrInvalidRefreshToken)
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Post(routeLogout)
	if err != nil {
		return supabase.TransportError("gotrue sign out", err)
	}
	// An already revoked token means the session is gone, which is what sign out wants.
	if resp.IsError() && resp.StatusCode() != http.StatusUnauthorized && resp.StatusCode() != http.StatusNotFound {
		return classify("gotrue sign out", resp, apperrors.ErrInvalidToken)
	}
	return nil
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*identity.User, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("gotrue get user: %w", apperrors.ErrInvalidToken)
	}
	var out userOut
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&out).
		Get(routeUser)
	if err != nil {
		return nil, supabase.TransportError("gotrue get user", err)
	}
	if resp.IsError() {
		return nil, classify("gotrue get user", resp, apperrors.ErrInvalidToken)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("gotrue get user: %w", apperrors.ErrUserNotFound)
	}
	return out.toUser(), nil
}

func (c *Client) UpdateUser(ctx context.Context, accessToken string, update identity.UserUpdate) (*identity.User, error) {
	var out userOut
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(userUpdateIn{Email: update.Email, Phone: update.Phone}).
		SetResult(&out).
		Put(routeUser)
	if err != nil {
		return nil, supabase.TransportError("gotrue update user", err)
	}
	if resp.IsError() {
		return nil, classify("gotrue update user", resp, apperrors.ErrInvalidRequest)
	}
	return out.toUser(), nil
}

func (c *Client) token(ctx context.Context, op, grantType string, body any, rejected error) (*identity.AuthResult, error) {
	var out sessionOut
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("grant_type", grantType).
		SetBody(body).
		SetResult(&out).
		Post(routeToken)
	if err != nil {
		return nil, supabase.TransportError(op, err)
	}
	if resp.IsError() {
		return nil, classify(op, resp, rejected)
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrSessionMissing)
	}
	return out.toAuthResult(), nil
}

// codeErrors maps GoTrue error codes that mean something more specific than the
// caller's sentinel.
var codeErrors = map[string]error{
	"email_not_confirmed":        apperrors.ErrEmailNotConfirmed,
	"refresh_token_not_found":    apperrors.ErrInvalidRefreshToken,
	"refresh_token_already_used": apperrors.ErrInvalidRefreshToken,
	"over_request_rate_limit":    apperrors.ErrRemoteUnavailable,
}

// classify maps 4xx answers to the caller supplied sentinel and keeps the decoded body in
// the chain for logging. A known error code wins over the status.
func classify(op string, resp *resty.Response, rejected error) error {
	apiErr := supabase.DecodeError(resp)
	if coded := codeError(apiErr); coded != nil {
		return fmt.Errorf("%s: %w: %w", op, coded, apiErr)
	}
	switch resp.StatusCode() {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %w: %w", op, rejected, apiErr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w: %w", op, apperrors.ErrRemoteUnavailable, apiErr)
	default:
		return fmt.Errorf("%s: %w", op, apiErr)
	}
}

func codeError(err error) error {
	var apiErr *supabase.Error
	if !errors.As(err, &apiErr) {
		return nil
	}
	if coded, ok := codeErrors[apiErr.CodeString()]; ok {
		return coded
	}
	// older GoTrue releases answer invalid_grant and only say so in the description
	if strings.EqualFold(apiErr.ErrorDescription, "email not confirmed") || strings.EqualFold(apiErr.Msg, "email not confirmed") {
		return apperrors.ErrEmailNotConfirmed
	}
	return nil
}

type credentialsIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshIn struct {
	RefreshToken string `json:"refresh_token"`
}

type userUpdateIn struct {
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

type userOut struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	ConfirmedAt      *time.Time `json:"confirmed_at"`
	LastSignInAt     *time.Time `json:"last_sign_in_at"`
}

func (u userOut) toUser() *identity.User {
	return &identity.User{
		ID:             u.ID,
		Email:          u.Email,
		EmailConfirmed: u.EmailConfirmedAt != nil || u.ConfirmedAt != nil,
		LastSignIn:     u.LastSignInAt,
		Phone:          u.Phone,
	}
}

type sessionOut struct {
	AccessToken  string  `json:"access_token"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    int64   `json:"expires_in"`
	ExpiresAt    int64   `json:"expires_at"`
	RefreshToken string  `json:"refresh_token"`
	User         userOut `json:"user"`
}

func (s sessionOut) toAuthResult() *identity.AuthResult {
	return &identity.AuthResult{
		User: s.User.toUser(),
		Session: &identity.Session{
			AccessToken:  s.AccessToken,
			RefreshToken: s.RefreshToken,
			TokenType:    s.TokenType,
			ExpiresIn:    s.ExpiresIn,
			ExpiresAt:    s.ExpiresAt,
		},
	}
}

// signUpOut accepts both sign up answers: a session with a nested user, or a bare user.
type signUpOut struct {
	sessionOut
	userOut
}
