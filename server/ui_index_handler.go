package server

import (
	"net/http"

	"github.com/jrsteele09/go-roleplay-desk/identity"
	"github.com/jrsteele09/go-roleplay-desk/session"
)

// IndexHandler renders the home page. The user is optional: a visitor without a session
// still gets the page.
func (s *Server) IndexHandler() session.HandlerFunc {
	tmpl := mustParse(ParseTemplate("index.html"))

	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		render(w, tmpl, http.StatusOK, s.page(user))
	}
}
