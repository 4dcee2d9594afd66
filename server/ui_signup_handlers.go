package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-roleplay-desk/identity"
	"github.com/jrsteele09/go-roleplay-desk/session"
)

const checkEmailMessage = "Account created. Check your email to confirm your address, then log in."

type SignupPageData struct {
	pageData
	Email string
}

// SignupGetHandler displays the registration page
func (s *Server) SignupGetHandler() session.HandlerFunc {
	signupTmpl := mustParse(ParseTemplate("register.html"))

	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		data := SignupPageData{pageData: s.page(user), Email: r.URL.Query().Get("email")}
		data.Error = r.URL.Query().Get("error")
		data.Message = r.URL.Query().Get("message")
		render(w, signupTmpl, http.StatusOK, data)
	}
}

// SignupPostHandler creates the account. When the provider withholds a session until the
// email is confirmed, the user is told to check their inbox instead of being signed in.
func (s *Server) SignupPostHandler() http.HandlerFunc {
	messageTmpl := mustParse(ParseFragment("fragment_message.html"))

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := strings.TrimSpace(r.FormValue("email"))
		password := r.FormValue("password")
		if email == "" || password == "" {
			s.formError(w, r, messageTmpl, RouteRegister, "Email and password are required")
			return
		}
		if password != r.FormValue("confirm_password") {
			s.formError(w, r, messageTmpl, RouteRegister, "Passwords do not match")
			return
		}

		ctx, cancel := s.identityContext(r)
		defer cancel()

		result, err := s.identity.SignUp(ctx, email, password)
		if err != nil {
			log.Warn().Err(err).Msg("Registration failed")
			s.formError(w, r, messageTmpl, RouteRegister, authErrorMessage(err))
			return
		}

		if result == nil || result.Session == nil {
			log.Info().Msg("Registration pending email confirmation")
			if session.IsHTMXRequest(r) {
				render(w, messageTmpl, http.StatusOK, messageData{Kind: "success", Text: checkEmailMessage})
				return
			}
			http.Redirect(w, r, RouteRegister+"?message="+url.QueryEscape(checkEmailMessage), http.StatusSeeOther)
			return
		}

		session.SetSessionCookies(w, result.Session)
		session.Redirect(w, r, RouteChat)
	}
}
