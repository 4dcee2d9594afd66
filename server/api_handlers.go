package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-roleplay-desk/identity"
	apperrors "github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/session"
)

const maxJSONBodyBytes = 1 << 20

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type chatRequest struct {
	Script string `json:"script"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "invalid JSON body")
	}
	return nil
}

func (s *Server) readCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "email and password are required")
		return req, false
	}
	return req, true
}

// APIRegisterHandler creates an account. The session is null while the email awaits
// confirmation.
func (s *Server) APIRegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := s.readCredentials(w, r)
		if !ok {
			return
		}
		ctx, cancel := s.identityContext(r)
		defer cancel()

		result, err := s.identity.SignUp(ctx, req.Email, req.Password)
		if err != nil {
			log.Warn().Err(err).Msg("API registration failed")
			writeJSONError(w, statusForError(err), authErrorMessage(err))
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

func (s *Server) APILoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := s.readCredentials(w, r)
		if !ok {
			return
		}
		ctx, cancel := s.identityContext(r)
		defer cancel()

		result, err := s.identity.SignIn(ctx, req.Email, req.Password)
		if err == nil && (result == nil || result.Session == nil) {
			err = apperrors.ErrSessionMissing
		}
		if err != nil {
			writeJSONError(w, statusForError(err), authErrorMessage(err))
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// APILogoutHandler revokes the caller's access token, from the Authorization header or the
// cookie, and clears the token cookies.
func (s *Server) APILogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken := bearerToken(r)
		if accessToken == "" {
			accessToken = session.CredentialsFromRequest(r).AccessToken
		}
		if accessToken != "" {
			ctx, cancel := s.identityContext(r)
			defer cancel()
			if err := s.identity.SignOut(ctx, accessToken); err != nil {
				log.Warn().Err(err).Msg("Sign out at identity provider failed")
			}
		}
		session.ClearSessionCookies(w)
		writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	}
}

// APIRefreshHandler exchanges the refresh token, from the cookie or the JSON body, for a
// new pair. Both cookies are rewritten since the old refresh token is spent.
func (s *Server) APIRefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refreshToken := session.CredentialsFromRequest(r).RefreshToken
		if refreshToken == "" {
			var req refreshRequest
			if err := decodeJSON(w, r, &req); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			refreshToken = req.RefreshToken
		}
		if refreshToken == "" {
			writeJSONError(w, http.StatusUnauthorized, "refresh token missing")
			return
		}

		result, err := s.resolver.Refresh(r.Context(), refreshToken)
		if err != nil {
			log.Info().Err(err).Msg("API token refresh failed")
			session.ClearSessionCookies(w)
			writeJSONError(w, http.StatusUnauthorized, "refresh failed")
			return
		}
		session.SetSessionCookies(w, result.Session)
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) APIMeHandler() session.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		writeJSON(w, http.StatusOK, user)
	}
}

func (s *Server) APIListItemsHandler() session.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		items, err := s.catalog.List(r.Context())
		if err != nil {
			log.Err(err).Msg("Failed to list items")
			writeJSONError(w, statusForError(err), "items could not be loaded")
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (s *Server) APIAddItemHandler() session.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		in, err := newItemFromRequest(w, r)
		if err != nil {
			writeJSONError(w, statusForError(err), invalidRequestText(err))
			return
		}
		item, err := s.catalog.Add(r.Context(), in)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrInvalidRequest) {
				writeJSONError(w, http.StatusBadRequest, invalidRequestText(err))
				return
			}
			log.Err(err).Str("user", user.ID).Msg("Failed to add item")
			writeJSONError(w, statusForError(err), "item could not be added")
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

// APIChatHandler is the one-shot roleplay as JSON. The script may come as a form field or
// a JSON body.
func (s *Server) APIChatHandler() session.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		var req chatRequest
		if strings.HasPrefix(r.Header.Get("Content-Type"), contentTypeJSON) {
			if err := decodeJSON(w, r, &req); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
		} else {
			req.Script = r.FormValue("script")
		}

		response, err := s.chat.Respond(r.Context(), req.Script)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrInvalidRequest) {
				writeJSONError(w, http.StatusBadRequest, invalidRequestText(err))
				return
			}
			log.Err(err).Str("user", user.ID).Msg("Roleplay reply failed")
			writeJSONError(w, http.StatusBadGateway, modelUnavailableMessage)
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{Response: response})
	}
}

// bearerToken returns the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	const prefix = "bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
