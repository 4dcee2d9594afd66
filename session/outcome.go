package session

import "github.com/jrsteele09/go-roleplay-desk/identity"

// Outcome is the result of resolving a request's identity: either an authenticated user or
// a redirect to the login page. There is no error state; every failure is a redirect.
type Outcome struct {
	// User is set when the request is authenticated.
	User *identity.User
	// Refreshed holds the new token pair when resolving had to exchange the refresh token.
	// The caller must persist it.
	Refreshed *identity.Session
	// Next is the original request URL, kept for the post-login bounce back.
	Next string
}

func authenticated(user *identity.User, refreshed *identity.Session) Outcome {
	return Outcome{User: user, Refreshed: refreshed}
}

func redirectTo(next string) Outcome {
	return Outcome{Next: next}
}

// Authenticated reports whether a user was resolved.
func (o Outcome) Authenticated() bool {
	return o.User != nil
}
