// Package postgrest stores chat personas, sessions and messages in Supabase tables through
// PostgREST.
package postgrest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jrsteele09/go-roleplay-desk/chat"
	apperrors "github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/internal/supabase"
	"github.com/jrsteele09/go-roleplay-desk/internal/utils"
)

const (
	parametersTable = supabase.RESTPath + "/client_parameters"
	sessionsTable   = supabase.RESTPath + "/chat_sessions"
	messagesTable   = supabase.RESTPath + "/messages"

	traitSeparator = ","
)

var _ chat.Repo = (*Repo)(nil)

type Repo struct {
	rest *resty.Client
}

func New(rest *resty.Client) *Repo {
	return &Repo{rest: rest}
}

func (r *Repo) CreateParameters(ctx context.Context, params *chat.ClientParameters) error {
	return r.insert(ctx, "insert client parameters", parametersTable, toParametersRow(params))
}

func (r *Repo) GetParameters(ctx context.Context, id string) (*chat.ClientParameters, error) {
	var rows []parametersRow
	if err := r.selectByID(ctx, "get client parameters", parametersTable, id, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("client parameters %s: %w", id, apperrors.ErrNotFound)
	}
	return rows[0].toDomain(), nil
}

func (r *Repo) CreateSession(ctx context.Context, session *chat.Session) error {
	return r.insert(ctx, "insert chat session", sessionsTable, session)
}

func (r *Repo) GetSession(ctx context.Context, id string) (*chat.Session, error) {
	var rows []chat.Session
	if err := r.selectByID(ctx, "get chat session", sessionsTable, id, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("chat session %s: %w", id, apperrors.ErrNotFound)
	}
	return &rows[0], nil
}

func (r *Repo) EndSession(ctx context.Context, id string, at time.Time) error {
	resp, err := r.rest.R().
		SetContext(ctx).
		SetQueryParam("id", "eq."+id).
		SetBody(map[string]any{"status": chat.StatusEnded, "end_time": at}).
		Patch(sessionsTable)
	if err != nil {
		return supabase.TransportError("end chat session", err)
	}
	if resp.IsError() {
		return fmt.Errorf("end chat session: %w", supabase.DecodeError(resp))
	}
	return nil
}

func (r *Repo) AddMessage(ctx context.Context, msg *chat.Message) error {
	return r.insert(ctx, "insert message", messagesTable, msg)
}

func (r *Repo) Messages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	messages := []chat.Message{}
	resp, err := r.rest.R().
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("chat_session_id", "eq."+sessionID).
		SetQueryParam("order", "timestamp.asc").
		SetResult(&messages).
		Get(messagesTable)
	if err != nil {
		return nil, supabase.TransportError("list messages", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list messages: %w", supabase.DecodeError(resp))
	}
	return messages, nil
}

// summarySelect embeds the persona and a message count through the foreign keys on
// chat_sessions and messages.
const summarySelect = "*,client_parameters(client_name,client_type,budget_min,budget_max),messages(count)"

func (r *Repo) SessionSummaries(ctx context.Context, userID string) ([]chat.SessionSummary, error) {
	rows := []summaryRow{}
	resp, err := r.rest.R().
		SetContext(ctx).
		SetQueryParam("select", summarySelect).
		SetQueryParam("user_id", "eq."+userID).
		SetQueryParam("order", "start_time.desc").
		SetResult(&rows).
		Get(sessionsTable)
	if err != nil {
		return nil, supabase.TransportError("list chat sessions", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list chat sessions: %w", supabase.DecodeError(resp))
	}

	summaries := make([]chat.SessionSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, row.toDomain())
	}
	return summaries, nil
}

func (r *Repo) insert(ctx context.Context, op, table string, row any) error {
	resp, err := r.rest.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(row).
		Post(table)
	if err != nil {
		return supabase.TransportError(op, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: %w", op, supabase.DecodeError(resp))
	}
	return nil
}

func (r *Repo) selectByID(ctx context.Context, op, table, id string, result any) error {
	resp, err := r.rest.R().
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("id", "eq."+id).
		SetQueryParam("limit", "1").
		SetResult(result).
		Get(table)
	if err != nil {
		return supabase.TransportError(op, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: %w", op, supabase.DecodeError(resp))
	}
	return nil
}

// parametersRow is the table shape: traits are a single text column.
type parametersRow struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"user_id"`
	ClientName          string    `json:"client_name"`
	ClientType          string    `json:"client_type"`
	BudgetMin           int       `json:"budget_min"`
	BudgetMax           int       `json:"budget_max"`
	UrgencyLevel        int       `json:"urgency_level"`
	PersonalityTraits   string    `json:"personality_traits"`
	PropertyPreferences *string   `json:"property_preferences"`
	SpecialRequirements *string   `json:"special_requirements"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func toParametersRow(p *chat.ClientParameters) parametersRow {
	return parametersRow{
		ID:                  p.ID,
		UserID:              p.UserID,
		ClientName:          p.ClientName,
		ClientType:          p.ClientType,
		BudgetMin:           p.BudgetMin,
		BudgetMax:           p.BudgetMax,
		UrgencyLevel:        p.UrgencyLevel,
		PersonalityTraits:   strings.Join(p.PersonalityTraits, traitSeparator),
		PropertyPreferences: utils.PtrOrNil(p.PropertyPreferences),
		SpecialRequirements: utils.PtrOrNil(p.SpecialRequirements),
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func (row parametersRow) toDomain() *chat.ClientParameters {
	return &chat.ClientParameters{
		ID:                  row.ID,
		UserID:              row.UserID,
		ClientName:          row.ClientName,
		ClientType:          row.ClientType,
		BudgetMin:           row.BudgetMin,
		BudgetMax:           row.BudgetMax,
		UrgencyLevel:        row.UrgencyLevel,
		PersonalityTraits:   utils.SplitList(row.PersonalityTraits, traitSeparator),
		PropertyPreferences: utils.Value(row.PropertyPreferences),
		SpecialRequirements: utils.Value(row.SpecialRequirements),
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
}

type summaryRow struct {
	chat.Session
	Client *struct {
		ClientName string `json:"client_name"`
		ClientType string `json:"client_type"`
		BudgetMin  int    `json:"budget_min"`
		BudgetMax  int    `json:"budget_max"`
	} `json:"client_parameters"`
	Messages []struct {
		Count int `json:"count"`
	} `json:"messages"`
}

func (row summaryRow) toDomain() chat.SessionSummary {
	summary := chat.SessionSummary{Session: row.Session}
	if row.Client != nil {
		summary.ClientName = row.Client.ClientName
		summary.ClientType = row.Client.ClientType
		summary.BudgetMin = row.Client.BudgetMin
		summary.BudgetMax = row.Client.BudgetMax
	}
	if len(row.Messages) > 0 {
		summary.MessageCount = row.Messages[0].Count
	}
	return summary
}
