package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/internal/utils"
	"github.com/jrsteele09/go-roleplay-desk/llm"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const customerPrompt = "Act as a customer: "

type Service struct {
	repo  Repo
	model llm.Completer
}

func NewService(repo Repo, model llm.Completer) *Service {
	return &Service{repo: repo, model: model}
}

// Respond is a one-shot roleplay: the model answers script as a customer would.
func (s *Service) Respond(ctx context.Context, script string) (string, error) {
	if strings.TrimSpace(script) == "" {
		return "", errors.Wrapf(errors.ErrInvalidRequest, "script is required")
	}
	reply, err := s.model.Complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: customerPrompt + script}})
	if err != nil {
		return "", errors.Wrapf(err, "roleplay response")
	}
	return reply, nil
}

// StartSession stores the persona and opens an active session for it.
func (s *Service) StartSession(ctx context.Context, userID string, params ClientParameters) (*Session, error) {
	params.PersonalityTraits = utils.NonEmpty(params.PersonalityTraits)
	if err := params.Validate(); err != nil {
		return nil, err
	}

	now := NowTimeFunc().UTC()
	params.ID = uuid.New().String()
	params.UserID = userID
	params.CreatedAt = now
	params.UpdatedAt = now
	if err := s.repo.CreateParameters(ctx, &params); err != nil {
		return nil, errors.Wrapf(err, "save client parameters")
	}

	session := &Session{
		ID:                 uuid.New().String(),
		UserID:             userID,
		ClientParametersID: params.ID,
		StartTime:          now,
		Status:             StatusActive,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, errors.Wrapf(err, "create chat session")
	}

	log.Info().Str("user", userID).Str("session", session.ID).Str("client", params.ClientName).Msg("chat session started")
	return session, nil
}

// Send adds the user's message to the session and returns the customer's reply. The reply
// is stored only when the model produced one.
func (s *Service) Send(ctx context.Context, userID, sessionID, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "message is required")
	}

	session, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != StatusActive {
		return nil, errors.Wrapf(ErrSessionEnded, "chat session %s", sessionID)
	}
	params, err := s.repo.GetParameters(ctx, session.ClientParametersID)
	if err != nil {
		return nil, errors.Wrapf(err, "load client parameters")
	}
	history, err := s.repo.Messages(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrapf(err, "load messages")
	}

	userMsg := &Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      string(llm.RoleUser),
		Content:   content,
		Timestamp: NowTimeFunc().UTC(),
	}
	if err := s.repo.AddMessage(ctx, userMsg); err != nil {
		return nil, errors.Wrapf(err, "store message")
	}

	reply, err := s.model.Complete(ctx, conversation(params, append(history, *userMsg)))
	if err != nil {
		return nil, errors.Wrapf(err, "customer reply")
	}

	assistantMsg := &Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      string(llm.RoleAssistant),
		Content:   reply,
		Timestamp: NowTimeFunc().UTC(),
	}
	if err := s.repo.AddMessage(ctx, assistantMsg); err != nil {
		return nil, errors.Wrapf(err, "store reply")
	}
	return assistantMsg, nil
}

// History returns the session and its messages in order.
func (s *Service) History(ctx context.Context, userID, sessionID string) (*Session, []Message, error) {
	session, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.repo.Messages(ctx, sessionID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "load messages")
	}
	return session, messages, nil
}

// Parameters returns the persona of a session.
func (s *Service) Parameters(ctx context.Context, userID, sessionID string) (*ClientParameters, error) {
	session, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetParameters(ctx, session.ClientParametersID)
}

// EndSession closes the session. Ending an ended session is a no-op.
func (s *Service) EndSession(ctx context.Context, userID, sessionID string) error {
	session, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if session.Status == StatusEnded {
		return nil
	}
	return s.repo.EndSession(ctx, sessionID, NowTimeFunc().UTC())
}

// RecentSessions is how many sessions the dashboard lists.
const RecentSessions = 5

// Dashboard totals the user's practice history and keeps the newest recent sessions.
// Practice time only counts ended sessions.
func (s *Service) Dashboard(ctx context.Context, userID string, recent int) (*Dashboard, error) {
	summaries, err := s.repo.SessionSummaries(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list chat sessions")
	}

	dashboard := &Dashboard{TotalSessions: len(summaries)}
	clientTypes := make(map[string]struct{})
	for _, summary := range summaries {
		dashboard.PracticeTime += summary.Duration()
		if summary.ClientType != "" {
			clientTypes[strings.ToLower(summary.ClientType)] = struct{}{}
		}
	}
	dashboard.ClientTypes = len(clientTypes)

	if recent >= 0 && len(summaries) > recent {
		summaries = summaries[:recent]
	}
	dashboard.Recent = summaries
	return dashboard, nil
}

// owned hides other users' sessions behind ErrNotFound.
func (s *Service) owned(ctx context.Context, userID, sessionID string) (*Session, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrapf(err, "load chat session %s", sessionID)
	}
	if session.UserID != userID {
		return nil, errors.Wrapf(errors.ErrNotFound, "chat session %s", sessionID)
	}
	return session, nil
}

func conversation(params *ClientParameters, history []Message) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt(params)})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	return messages
}

// SystemPrompt describes the persona to the model.
func SystemPrompt(p *ClientParameters) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s talking to a real estate agent. ", p.ClientName, p.ClientType)
	fmt.Fprintf(&b, "Your budget is between $%d and $%d. ", p.BudgetMin, p.BudgetMax)
	fmt.Fprintf(&b, "Your urgency to move is %d out of %d. ", p.UrgencyLevel, MaxUrgency)
	fmt.Fprintf(&b, "Your personality is %s. ", strings.Join(p.PersonalityTraits, ", "))
	if p.PropertyPreferences != "" {
		fmt.Fprintf(&b, "You are looking for %s. ", p.PropertyPreferences)
	}
	if p.SpecialRequirements != "" {
		fmt.Fprintf(&b, "Special requirements: %s. ", p.SpecialRequirements)
	}
	b.WriteString("Stay in character, answer as the customer only and keep replies short.")
	return b.String()
}
