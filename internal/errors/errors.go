package errors

import (
	"errors"
	"fmt"
)

// Common error types for the roleplay desk
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionMissing     = errors.New("no session issued")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrUserNotFound       = errors.New("user not found")

	// Token errors
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrMissingClaims       = errors.New("token missing required claims")

	// Remote service errors
	ErrRemoteUnavailable = errors.New("remote service unavailable")
	ErrRemoteResponse    = errors.New("unexpected remote response")

	// Request errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrForbidden      = errors.New("forbidden")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return errors.Join(errs...)
}
