package server

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-roleplay-desk/identity"
	apperrors "github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/session"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	pageData
	Email string // Preserve email on error
}

// LoginPageUIHandler displays the login page (GET /login)
func (s *Server) LoginPageUIHandler() session.HandlerFunc {
	loginTmpl := mustParse(ParseTemplate("login.html"))

	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		data := LoginPageData{
			pageData: s.page(user),
			Email:    r.URL.Query().Get("email"),
		}
		data.Error = r.URL.Query().Get("error")
		render(w, loginTmpl, http.StatusOK, data)
	}
}

// LoginSubmissionHandler signs the user in and sends them on to wherever they were heading
// before the login page interrupted them.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	messageTmpl := mustParse(ParseFragment("fragment_message.html"))

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := strings.TrimSpace(r.FormValue("email"))
		password := r.FormValue("password")
		if email == "" || password == "" {
			s.formError(w, r, messageTmpl, RouteLogin, "Email and password are required")
			return
		}

		ctx, cancel := s.identityContext(r)
		defer cancel()

		result, err := s.identity.SignIn(ctx, email, password)
		if err == nil && (result == nil || result.Session == nil) {
			err = apperrors.ErrSessionMissing
		}
		if err != nil {
			if !apperrors.Is(err, apperrors.ErrInvalidCredentials) {
				log.Warn().Err(err).Msg("Sign in failed")
			}
			s.formError(w, r, messageTmpl, RouteLogin, authErrorMessage(err))
			return
		}

		session.SetSessionCookies(w, result.Session)
		session.ClearNextCookie(w)
		session.Redirect(w, r, session.NextFromRequest(r, RouteChat))
	}
}

// LogoutHandler revokes the session at the provider when it can and always forgets it
// locally.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.signOut(r)
		session.ClearSessionCookies(w)
		session.ClearNextCookie(w)
		session.ClearChatSessionCookie(w)
		session.Redirect(w, r, RouteIndex)
	}
}

// signOut is best effort: an unreachable provider must not keep the user signed in locally.
func (s *Server) signOut(r *http.Request) {
	accessToken := session.CredentialsFromRequest(r).AccessToken
	if accessToken == "" {
		return
	}
	ctx, cancel := s.identityContext(r)
	defer cancel()
	if err := s.identity.SignOut(ctx, accessToken); err != nil {
		log.Warn().Err(err).Msg("Sign out at identity provider failed")
	}
}

// formError shows a form error. HTMX forms get the message fragment swapped into the form;
// plain posts are sent back to the page with the error in the query.
func (s *Server) formError(w http.ResponseWriter, r *http.Request, messageTmpl *template.Template, page, message string) {
	if session.IsHTMXRequest(r) {
		render(w, messageTmpl, http.StatusOK, messageData{Kind: "error", Text: message})
		return
	}
	redirectWithError(w, r, page, message)
}
