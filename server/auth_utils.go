package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/session"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json"
)

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	session.Redirect(w, r, path+"?error="+url.QueryEscape(errorMsg))
}

// identityContext bounds a call to the identity provider made directly by a handler.
func (s *Server) identityContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.config.GetIdentityTimeout())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to encode JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// authErrorMessage is the text shown to a user whose sign in or sign up failed. Details of
// unexpected failures stay in the log.
func authErrorMessage(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidCredentials):
		return "Invalid email or password"
	case apperrors.Is(err, apperrors.ErrEmailNotConfirmed), apperrors.Is(err, apperrors.ErrSessionMissing):
		return "Please confirm your email address before logging in"
	case apperrors.Is(err, apperrors.ErrInvalidRequest):
		return "Please check the details you entered"
	case apperrors.Is(err, apperrors.ErrRemoteUnavailable):
		return "The sign in service is unavailable, please try again shortly"
	default:
		return "Something went wrong, please try again"
	}
}

// statusForError maps a service error onto the HTTP status an API client sees.
func statusForError(err error) int {
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidRequest):
		return http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrInvalidCredentials),
		apperrors.Is(err, apperrors.ErrInvalidRefreshToken),
		apperrors.Is(err, apperrors.ErrInvalidToken):
		return http.StatusUnauthorized
	case apperrors.Is(err, apperrors.ErrEmailNotConfirmed),
		apperrors.Is(err, apperrors.ErrSessionMissing),
		apperrors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case apperrors.Is(err, apperrors.ErrRemoteUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// invalidRequestText is the user facing part of an ErrInvalidRequest chain.
func invalidRequestText(err error) string {
	return strings.TrimSuffix(err.Error(), ": "+apperrors.ErrInvalidRequest.Error())
}
