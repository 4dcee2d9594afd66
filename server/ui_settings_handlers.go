package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-roleplay-desk/identity"
	"github.com/jrsteele09/go-roleplay-desk/session"
)

// AccountSettingsHandler shows the account page (GET /settings, GET /settings/account).
func (s *Server) AccountSettingsHandler() session.HandlerFunc {
	tmpl := mustParse(ParseTemplate("settings.html"))

	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		render(w, tmpl, http.StatusOK, s.page(user))
	}
}

// UpdateAccountHandler changes the user's email or phone number. Only fields that differ
// from the current values are sent to the identity provider.
func (s *Server) UpdateAccountHandler() session.HandlerFunc {
	messageTmpl := mustParse(ParseFragment("fragment_message.html"))

	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		var update identity.UserUpdate
		if email := strings.TrimSpace(r.FormValue("email")); email != "" && email != user.Email {
			update.Email = &email
		}
		if phone := strings.TrimSpace(r.FormValue("phone_number")); phone != "" && phone != user.Phone {
			update.Phone = &phone
		}
		if update.Empty() {
			render(w, messageTmpl, http.StatusOK, messageData{Kind: "success", Text: "Nothing to update"})
			return
		}

		ctx, cancel := s.identityContext(r)
		defer cancel()
		if _, err := s.identity.UpdateUser(ctx, session.CredentialsFromRequest(r).AccessToken, update); err != nil {
			log.Warn().Err(err).Str("user", user.ID).Msg("Profile update failed")
			render(w, messageTmpl, http.StatusOK, messageData{
				Kind: "error",
				Text: "An error occurred while updating your profile. Please try again.",
			})
			return
		}
		render(w, messageTmpl, http.StatusOK, messageData{Kind: "success", Text: "Account updated successfully"})
	}
}
