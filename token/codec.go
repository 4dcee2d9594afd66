package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/jrsteele09/go-roleplay-desk/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Status is the local classification of an access token.
type Status int

const (
	Invalid Status = iota
	Expired
	Valid
)

func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	default:
		return "invalid"
	}
}

// Claims are the access token claims the application relies on.
type Claims struct {
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Codec verifies access tokens issued by the identity provider with the shared HMAC secret.
// It never performs I/O.
type Codec struct {
	signer   *HMACSigner
	audience string
	leeway   time.Duration
}

type CodecOption func(*Codec)

// WithAudience enforces the "aud" claim. Without it the audience is not checked, since
// tokens may omit the claim.
func WithAudience(aud string) CodecOption {
	return func(c *Codec) {
		c.audience = aud
	}
}

// WithLeeway tolerates clock skew when checking time based claims.
func WithLeeway(d time.Duration) CodecOption {
	return func(c *Codec) {
		c.leeway = d
	}
}

func NewCodec(secret string, opts ...CodecOption) *Codec {
	c := &Codec{signer: NewHMACSigner(secret)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify reports whether the token is Valid, Expired (correctly signed and well formed,
// only the exp claim has lapsed) or Invalid (anything else).
func (c *Codec) Classify(raw string) Status {
	_, err := c.parse(raw)
	switch {
	case err == nil:
		return Valid
	case onlyExpired(err):
		return Expired
	default:
		return Invalid
	}
}

// ExtractClaims returns the claims of a valid token. A token without a subject or an email
// is rejected with ErrMissingClaims.
func (c *Codec) ExtractClaims(raw string) (*Claims, error) {
	claims, err := c.parse(raw)
	if err != nil {
		if onlyExpired(err) {
			return nil, fmt.Errorf("extract claims: %w", apperrors.ErrTokenExpired)
		}
		return nil, fmt.Errorf("extract claims: %w: %v", apperrors.ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.Email) == "" {
		return nil, fmt.Errorf("extract claims: %w", apperrors.ErrMissingClaims)
	}
	return claims, nil
}

func (c *Codec) parse(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, jwt.ErrTokenMalformed
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(NowTimeFunc),
		jwt.WithLeeway(c.leeway),
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, c.signer.GetVerificationKey, opts...)
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// onlyExpired is true when exp has lapsed and nothing else about the token is wrong.
// Signature and structure problems are reported by the parser before claims are validated,
// so an expiry error already implies a good signature.
func onlyExpired(err error) bool {
	if !errors.Is(err, jwt.ErrTokenExpired) {
		return false
	}
	for _, other := range []error{
		jwt.ErrTokenMalformed,
		jwt.ErrTokenSignatureInvalid,
		jwt.ErrTokenUnverifiable,
		jwt.ErrTokenNotValidYet,
		jwt.ErrTokenUsedBeforeIssued,
		jwt.ErrTokenInvalidAudience,
		jwt.ErrTokenRequiredClaimMissing,
		jwt.ErrTokenInvalidIssuer,
		jwt.ErrTokenInvalidSubject,
	} {
		if errors.Is(err, other) {
			return false
		}
	}
	return true
}
