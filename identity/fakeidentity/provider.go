// Package fakeidentity is an in-memory identity provider. It issues real HS256 tokens with
// the shared secret, so everything downstream of the identity client behaves as it does
// against the hosted provider.
package fakeidentity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-roleplay-desk/identity"
	"github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/token"
)

var _ identity.Client = (*Provider)(nil)

const DefaultAccessTTL = time.Hour

type account struct {
	user         identity.User
	passwordHash string
}

// Provider keeps users, refresh tokens and revoked access tokens in memory. Refresh tokens
// are single use.
type Provider struct {
	signer      *token.HMACSigner
	accessTTL   time.Duration
	confirmMail bool

	revoked *token.RevocationList

	lock     sync.RWMutex
	accounts map[string]*account // by email
	refresh  map[string]string   // refresh token to user id
}

type Option func(*Provider)

// WithAccessTTL sets the lifetime of issued access tokens.
func WithAccessTTL(d time.Duration) Option {
	return func(p *Provider) {
		p.accessTTL = d
	}
}

// WithEmailConfirmation makes SignUp return a user without a session, as the hosted
// provider does when email confirmation is switched on.
func WithEmailConfirmation() Option {
	return func(p *Provider) {
		p.confirmMail = true
	}
}

func New(secret string, opts ...Option) *Provider {
	p := &Provider{
		signer:    token.NewHMACSigner(secret),
		accessTTL: DefaultAccessTTL,
		accounts:  make(map[string]*account),
		refresh:   make(map[string]string),
		revoked:   token.NewRevocationList(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (*identity.AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, errors.Wrapf(err, "hash password")
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if _, ok := p.accounts[email]; ok {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "user already registered")
	}
	acc := &account{
		user: identity.User{
			ID:             uuid.New().String(),
			Email:          email,
			EmailConfirmed: !p.confirmMail,
		},
		passwordHash: string(hash),
	}
	p.accounts[email] = acc

	if p.confirmMail {
		user := acc.user
		return &identity.AuthResult{User: &user}, nil
	}
	return p.issue(acc)
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*identity.AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	acc, ok := p.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok || bcrypt.CompareHashAndPassword([]byte(acc.passwordHash), []byte(password)) != nil {
		return nil, errors.ErrInvalidCredentials
	}
	if !acc.user.EmailConfirmed {
		return nil, errors.ErrEmailNotConfirmed
	}
	return p.issue(acc)
}

func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	acc, err := p.accountForToken(accessToken)
	if err != nil {
		return nil
	}
	claims := p.claims(accessToken)
	p.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
	for rt, id := range p.refresh {
		if id == acc.user.ID {
			delete(p.refresh, rt)
		}
	}
	return nil
}

func (p *Provider) GetUser(ctx context.Context, accessToken string) (*identity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.lock.RLock()
	defer p.lock.RUnlock()

	acc, err := p.accountForToken(accessToken)
	if err != nil {
		return nil, err
	}
	user := acc.user
	return &user, nil
}

func (p *Provider) RefreshSession(ctx context.Context, refreshToken string) (*identity.AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	userID, ok := p.refresh[refreshToken]
	if !ok {
		return nil, errors.ErrInvalidRefreshToken
	}
	delete(p.refresh, refreshToken)

	acc := p.accountByID(userID)
	if acc == nil {
		return nil, errors.ErrUserNotFound
	}
	return p.issue(acc)
}

func (p *Provider) UpdateUser(ctx context.Context, accessToken string, update identity.UserUpdate) (*identity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	acc, err := p.accountForToken(accessToken)
	if err != nil {
		return nil, err
	}
	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if _, taken := p.accounts[email]; taken && email != acc.user.Email {
			return nil, errors.Wrapf(errors.ErrInvalidRequest, "email already in use")
		}
		delete(p.accounts, acc.user.Email)
		acc.user.Email = email
		p.accounts[email] = acc
	}
	if update.Phone != nil {
		acc.user.Phone = *update.Phone
	}
	user := acc.user
	return &user, nil
}

// ConfirmEmail marks a user's email as confirmed.
func (p *Provider) ConfirmEmail(email string) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	acc, ok := p.accounts[strings.ToLower(email)]
	if !ok {
		return errors.ErrUserNotFound
	}
	acc.user.EmailConfirmed = true
	return nil
}

// AccessToken mints an access token for the user expiring at exp. Tests use it to produce
// expired but correctly signed tokens.
func (p *Provider) AccessToken(userID, email string, exp time.Time) (string, error) {
	now := token.NowTimeFunc()
	return p.signer.Sign(token.Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.New().String(),
		},
	})
}

// IssueRefreshToken registers a refresh token for the user, as if handed out by a sign in.
func (p *Provider) IssueRefreshToken(userID string) string {
	p.lock.Lock()
	defer p.lock.Unlock()

	rt := newRefreshToken()
	p.refresh[rt] = userID
	return rt
}

// issue must be called with the write lock held.
func (p *Provider) issue(acc *account) (*identity.AuthResult, error) {
	now := token.NowTimeFunc()
	p.revoked.Prune(now)
	exp := now.Add(p.accessTTL)
	access, err := p.AccessToken(acc.user.ID, acc.user.Email, exp)
	if err != nil {
		return nil, err
	}
	rt := newRefreshToken()
	p.refresh[rt] = acc.user.ID

	signedIn := now
	acc.user.LastSignIn = &signedIn
	user := acc.user
	return &identity.AuthResult{
		User: &user,
		Session: &identity.Session{
			AccessToken:  access,
			RefreshToken: rt,
			TokenType:    "bearer",
			ExpiresIn:    int64(p.accessTTL.Seconds()),
			ExpiresAt:    exp.Unix(),
		},
	}, nil
}

// accountForToken must be called with the lock held.
func (p *Provider) accountForToken(accessToken string) (*account, error) {
	claims := &token.Claims{}
	_, err := jwt.ParseWithClaims(accessToken, claims, p.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{p.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(token.NowTimeFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	if p.revoked.IsRevoked(claims.ID) {
		return nil, errors.ErrInvalidToken
	}
	acc := p.accountByID(claims.Subject)
	if acc == nil {
		return nil, errors.ErrUserNotFound
	}
	return acc, nil
}

// claims reads a token that accountForToken already verified.
func (p *Provider) claims(accessToken string) *token.Claims {
	claims := &token.Claims{}
	_, _, _ = jwt.NewParser().ParseUnverified(accessToken, claims)
	return claims
}

func (p *Provider) accountByID(id string) *account {
	for _, acc := range p.accounts {
		if acc.user.ID == id {
			return acc
		}
	}
	return nil
}

func newRefreshToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
