package config

import "time"

const (
	nextCookieMaxAgeVar = "NEXT_COOKIE_MAX_AGE"
	trustLocalClaimsVar = "TRUST_LOCAL_CLAIMS"
)

type SessionConfig interface {
	GetNextCookieMaxAge() time.Duration
	GetTrustLocalClaims() bool
}

type Session struct{}

var _ SessionConfig = Session{}

// GetNextCookieMaxAge is how long the post-login bounce-back destination is remembered.
func (Session) GetNextCookieMaxAge() time.Duration {
	return GetDuration(nextCookieMaxAgeVar, 5*time.Minute)
}

// GetTrustLocalClaims enables the zero round-trip path: a locally valid access token is
// accepted without asking the identity provider.
func (Session) GetTrustLocalClaims() bool {
	return GetBool(trustLocalClaimsVar, false)
}
