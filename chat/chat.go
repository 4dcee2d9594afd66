// Package chat runs roleplay practice sessions: the user plays the agent and the model plays
// a customer described by ClientParameters.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/internal/utils"
)

const (
	MinBudget        = 50000
	MinUrgency       = 1
	MaxUrgency       = 10
	minClientNameLen = 2
)

type SessionStatus string

// ErrSessionEnded is returned when a message is sent to a session that was closed.
var ErrSessionEnded = fmt.Errorf("chat session has ended: %w", errors.ErrInvalidRequest)

const (
	StatusActive SessionStatus = "active"
	StatusEnded  SessionStatus = "ended"
)

// ClientParameters describe the customer persona the model plays.
type ClientParameters struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"user_id"`
	ClientName          string    `json:"client_name"`
	ClientType          string    `json:"client_type"`
	BudgetMin           int       `json:"budget_min"`
	BudgetMax           int       `json:"budget_max"`
	UrgencyLevel        int       `json:"urgency_level"`
	PersonalityTraits   []string  `json:"personality_traits"`
	PropertyPreferences string    `json:"property_preferences,omitempty"`
	SpecialRequirements string    `json:"special_requirements,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ClientTypes and PersonalityTraits are the choices offered by the persona form.
var (
	ClientTypes       = []string{"first-time-buyer", "investor", "downsizer", "luxury-buyer", "family-home"}
	PersonalityTraits = []string{"analytical", "emotional", "skeptical", "decisive", "cautious"}
)

// DefaultParameters prefill a new persona form.
func DefaultParameters() ClientParameters {
	return ClientParameters{
		BudgetMin:         300000,
		BudgetMax:         500000,
		UrgencyLevel:      5,
		PersonalityTraits: []string{"analytical"},
	}
}

// ValidationError lists every problem with a persona so a form can show them together.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid client parameters: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return errors.ErrInvalidRequest
}

func (p ClientParameters) Validate() error {
	var problems []string
	if len(strings.TrimSpace(p.ClientName)) < minClientNameLen {
		problems = append(problems, "Client name must be at least 2 characters.")
	}
	if strings.TrimSpace(p.ClientType) == "" {
		problems = append(problems, "Please select a client type.")
	}
	if p.BudgetMin < MinBudget {
		problems = append(problems, fmt.Sprintf("Minimum budget must be at least %d.", MinBudget))
	}
	if p.BudgetMax < MinBudget {
		problems = append(problems, fmt.Sprintf("Maximum budget must be at least %d.", MinBudget))
	}
	if p.BudgetMin > p.BudgetMax {
		problems = append(problems, "Minimum budget must not exceed maximum budget.")
	}
	if p.UrgencyLevel < MinUrgency || p.UrgencyLevel > MaxUrgency {
		problems = append(problems, fmt.Sprintf("Urgency level must be between %d and %d.", MinUrgency, MaxUrgency))
	}
	if len(utils.NonEmpty(p.PersonalityTraits)) == 0 {
		problems = append(problems, "Please select at least one personality trait.")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

type Session struct {
	ID                 string        `json:"id"`
	UserID             string        `json:"user_id"`
	ClientParametersID string        `json:"client_parameters_id"`
	StartTime          time.Time     `json:"start_time"`
	EndTime            *time.Time    `json:"end_time,omitempty"`
	Status             SessionStatus `json:"status"`
}

type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"chat_session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionSummary is one row of a user's practice history: the session with its persona
// and how many messages were exchanged.
type SessionSummary struct {
	Session
	ClientName   string
	ClientType   string
	BudgetMin    int
	BudgetMax    int
	MessageCount int
}

// Duration is how long an ended session ran. A session still active has no duration yet.
func (s SessionSummary) Duration() time.Duration {
	if s.EndTime == nil || s.EndTime.Before(s.StartTime) {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// Dashboard totals a user's practice history.
type Dashboard struct {
	TotalSessions int
	PracticeTime  time.Duration
	ClientTypes   int
	Recent        []SessionSummary
}

// Repo persists personas, sessions and their messages.
type Repo interface {
	CreateParameters(ctx context.Context, params *ClientParameters) error
	GetParameters(ctx context.Context, id string) (*ClientParameters, error)
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	EndSession(ctx context.Context, id string, at time.Time) error
	AddMessage(ctx context.Context, msg *Message) error
	Messages(ctx context.Context, sessionID string) ([]Message, error)
	// SessionSummaries lists every session of the user, newest first.
	SessionSummaries(ctx context.Context, userID string) ([]SessionSummary, error)
}
