//go:generate go run go.uber.org/mock/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "Client=Client"

// Package identity describes the remote identity provider the application delegates
// authentication to. The provider owns users and sessions; the application only keeps a
// per-request projection of them.
package identity

import (
	"context"
	"time"
)

// User is the local projection of an identity provider user.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	EmailConfirmed bool       `json:"email_confirmed"`
	LastSignIn     *time.Time `json:"last_sign_in,omitempty"`
	Phone          string     `json:"phone_number,omitempty"`
}

// Session is an access/refresh token pair. A refresh token must be treated as single use:
// the provider may invalidate it as soon as it has been exchanged.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// Expiry returns when the access token lapses, or the zero time when unknown.
func (s Session) Expiry() time.Time {
	if s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

// AuthResult is what sign up, sign in and refresh return. Session is nil when the provider
// created the user but withheld a session (pending email confirmation).
type AuthResult struct {
	User    *User    `json:"user"`
	Session *Session `json:"session,omitempty"`
}

// UserUpdate carries the user attributes to change; nil fields are left untouched.
type UserUpdate struct {
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.Phone == nil
}

// Client is the remote identity provider. Every call is a network round trip and must be
// given a context with a deadline. Sign out is stateless: the access token to revoke is
// always passed explicitly.
type Client interface {
	SignUp(ctx context.Context, email, password string) (*AuthResult, error)
	SignIn(ctx context.Context, email, password string) (*AuthResult, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*AuthResult, error)
	UpdateUser(ctx context.Context, accessToken string, update UserUpdate) (*User, error)
}
