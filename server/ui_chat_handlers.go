package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-roleplay-desk/chat"
	"github.com/jrsteele09/go-roleplay-desk/identity"
	apperrors "github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/llm"
	"github.com/jrsteele09/go-roleplay-desk/session"
)

const modelUnavailableMessage = "The client is not responding right now, please try again"

type ChatPageData struct {
	pageData
	ActiveSessionID string
}

type ChatCreatePageData struct {
	pageData
	Params      chat.ClientParameters
	Problems    []string
	ClientTypes []string
	Traits      []string
	MinBudget   int
}

type ChatSessionPageData struct {
	pageData
	Session  *chat.Session
	Params   *chat.ClientParameters
	Messages []chat.Message
}

type DashboardPageData struct {
	pageData
	Dashboard *chat.Dashboard
}

type chatReplyData struct {
	Script   string
	Response string
}

// ChatPageHandler is the practice landing page (GET /chat).
func (s *Server) ChatPageHandler() session.HandlerFunc {
	tmpl := mustParse(ParseTemplate("chat.html"))

	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		render(w, tmpl, http.StatusOK, ChatPageData{
			pageData:        s.page(user),
			ActiveSessionID: session.ChatSessionFromRequest(r),
		})
	}
}

// DashboardHandler shows the user's practice totals and recent sessions (GET /dashboard).
func (s *Server) DashboardHandler() session.HandlerFunc {
	tmpl := mustParse(ParseTemplate("dashboard.html"))

	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		dashboard, err := s.chat.Dashboard(r.Context(), user.ID, chat.RecentSessions)
		if err != nil {
			log.Err(err).Str("user", user.ID).Msg("Failed to load dashboard")
			http.Error(w, "Failed to load your practice sessions", http.StatusInternalServerError)
			return
		}
		render(w, tmpl, http.StatusOK, DashboardPageData{
			pageData:  s.page(user),
			Dashboard: dashboard,
		})
	}
}

// ChatCreateGetHandler shows the persona form. ?clone=<session id> prefills it with the
// persona of an earlier session so it can be practised again.
func (s *Server) ChatCreateGetHandler() session.HandlerFunc {
	tmpl := mustParse(ParseTemplate("chat_create.html"))

	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		params := chat.DefaultParameters()
		if clone := r.URL.Query().Get("clone"); clone != "" {
			previous, err := s.chat.Parameters(r.Context(), user.ID, clone)
			switch {
			case err == nil:
				params = *previous
			case !apperrors.Is(err, apperrors.ErrNotFound):
				log.Err(err).Str("session", clone).Msg("Failed to load persona to clone")
			}
		}
		render(w, tmpl, http.StatusOK, s.chatCreateData(user, params, nil))
	}
}

// ChatCreatePostHandler stores the persona, opens a session and moves the user into it.
func (s *Server) ChatCreatePostHandler() session.HandlerFunc {
	tmpl := mustParse(ParseTemplate("chat_create.html"))

	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		params := clientParametersFromForm(r)

		created, err := s.chat.StartSession(r.Context(), user.ID, params)
		if err != nil {
			var validationErr *chat.ValidationError
			if apperrors.As(err, &validationErr) {
				render(w, tmpl, http.StatusUnprocessableEntity, s.chatCreateData(user, params, validationErr.Problems))
				return
			}
			log.Err(err).Str("user", user.ID).Msg("Failed to start chat session")
			data := s.chatCreateData(user, params, nil)
			data.Error = "Could not start the session, please try again"
			render(w, tmpl, http.StatusInternalServerError, data)
			return
		}

		session.SetChatSessionCookie(w, created.ID)
		session.Redirect(w, r, chatSessionPath(created.ID))
	}
}

func (s *Server) chatCreateData(user *identity.User, params chat.ClientParameters, problems []string) ChatCreatePageData {
	return ChatCreatePageData{
		pageData:    s.page(user),
		Params:      params,
		Problems:    problems,
		ClientTypes: chat.ClientTypes,
		Traits:      chat.PersonalityTraits,
		MinBudget:   chat.MinBudget,
	}
}

// clientParametersFromForm reads the persona form. Unparseable numbers are left at zero
// so validation reports them alongside everything else.
func clientParametersFromForm(r *http.Request) chat.ClientParameters {
	atoi := func(name string) int {
		n, _ := strconv.Atoi(strings.TrimSpace(r.FormValue(name)))
		return n
	}
	return chat.ClientParameters{
		ClientName:          strings.TrimSpace(r.FormValue("client_name")),
		ClientType:          strings.TrimSpace(r.FormValue("client_type")),
		BudgetMin:           atoi("budget_min"),
		BudgetMax:           atoi("budget_max"),
		UrgencyLevel:        atoi("urgency_level"),
		PersonalityTraits:   r.Form["personality_traits"],
		PropertyPreferences: strings.TrimSpace(r.FormValue("property_preferences")),
		SpecialRequirements: strings.TrimSpace(r.FormValue("special_requirements")),
	}
}

// ChatSessionHandler shows one roleplay session with its history (GET /chat/{id}).
func (s *Server) ChatSessionHandler() session.HandlerFunc {
	tmpl := mustParse(ParseTemplate("chat_session.html", "fragment_chat_message.html"))

	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		id := r.PathValue("id")
		current, messages, err := s.chat.History(r.Context(), user.ID, id)
		if err != nil {
			s.chatSessionError(w, r, err)
			return
		}
		params, err := s.chat.Parameters(r.Context(), user.ID, id)
		if err != nil {
			s.chatSessionError(w, r, err)
			return
		}

		session.SetChatSessionCookie(w, current.ID)
		render(w, tmpl, http.StatusOK, ChatSessionPageData{
			pageData: s.page(user),
			Session:  current,
			Params:   params,
			Messages: messages,
		})
	}
}

// ChatEndHandler closes a session and shows it again in its ended state.
func (s *Server) ChatEndHandler() session.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		id := r.PathValue("id")
		if err := s.chat.EndSession(r.Context(), user.ID, id); err != nil {
			s.chatSessionError(w, r, err)
			return
		}
		if session.ChatSessionFromRequest(r) == id {
			session.ClearChatSessionCookie(w)
		}
		session.Redirect(w, r, chatSessionPath(id))
	}
}

func (s *Server) chatSessionError(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.Is(err, apperrors.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	log.Err(err).Str("session", r.PathValue("id")).Msg("Chat session request failed")
	http.Error(w, "Failed to load chat session", http.StatusInternalServerError)
}

// HTMXChatHandler is the one-shot roleplay: the reply fragment is swapped into the page.
func (s *Server) HTMXChatHandler() session.HandlerFunc {
	replyTmpl := mustParse(ParseFragment("fragment_chat_reply.html"))
	messageTmpl := mustParse(ParseFragment("fragment_message.html"))

	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		script := r.FormValue("script")
		response, err := s.chat.Respond(r.Context(), script)
		if err != nil {
			render(w, messageTmpl, http.StatusOK, messageData{Kind: "error", Text: s.chatErrorText(err, user)})
			return
		}
		render(w, replyTmpl, http.StatusOK, chatReplyData{Script: script, Response: response})
	}
}

// HTMXChatSessionHandler sends one message in a session and returns the exchange fragment.
func (s *Server) HTMXChatSessionHandler() session.HandlerFunc {
	exchangeTmpl := mustParse(ParseFragment("fragment_chat_exchange.html", "fragment_chat_message.html"))
	messageTmpl := mustParse(ParseFragment("fragment_message.html"))

	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		content := r.FormValue("message")
		reply, err := s.chat.Send(r.Context(), user.ID, r.PathValue("id"), content)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			render(w, messageTmpl, http.StatusOK, messageData{Kind: "error", Text: s.chatErrorText(err, user)})
			return
		}
		sent := chat.Message{SessionID: reply.SessionID, Role: string(llm.RoleUser), Content: strings.TrimSpace(content)}
		render(w, exchangeTmpl, http.StatusOK, []chat.Message{sent, *reply})
	}
}

func (s *Server) chatErrorText(err error, user *identity.User) string {
	var validationErr *chat.ValidationError
	switch {
	case apperrors.As(err, &validationErr):
		return strings.Join(validationErr.Problems, " ")
	case apperrors.Is(err, chat.ErrSessionEnded):
		return "This session has ended, start a new one to keep practising"
	case apperrors.Is(err, apperrors.ErrInvalidRequest):
		return "Please enter a message"
	default:
		log.Err(err).Str("user", user.ID).Msg("Roleplay reply failed")
		return modelUnavailableMessage
	}
}
