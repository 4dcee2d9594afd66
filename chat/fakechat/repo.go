package fakechat

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jrsteele09/go-roleplay-desk/chat"
	"github.com/jrsteele09/go-roleplay-desk/internal/errors"
)

var _ chat.Repo = (*Repo)(nil)

type Repo struct {
	lock     sync.RWMutex
	params   map[string]chat.ClientParameters
	sessions map[string]chat.Session
	messages map[string][]chat.Message // by session id
}

func New() *Repo {
	return &Repo{
		params:   make(map[string]chat.ClientParameters),
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
	}
}

func (r *Repo) CreateParameters(_ context.Context, params *chat.ClientParameters) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.params[params.ID] = *params
	return nil
}

func (r *Repo) GetParameters(_ context.Context, id string) (*chat.ClientParameters, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	p, ok := r.params[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return &p, nil
}

func (r *Repo) CreateSession(_ context.Context, session *chat.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.sessions[session.ID] = *session
	return nil
}

func (r *Repo) GetSession(_ context.Context, id string) (*chat.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return &s, nil
}

func (r *Repo) EndSession(_ context.Context, id string, at time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return errors.ErrNotFound
	}
	s.Status = chat.StatusEnded
	s.EndTime = &at
	r.sessions[id] = s
	return nil
}

func (r *Repo) AddMessage(_ context.Context, msg *chat.Message) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.sessions[msg.SessionID]; !ok {
		return errors.ErrNotFound
	}
	r.messages[msg.SessionID] = append(r.messages[msg.SessionID], *msg)
	return nil
}

func (r *Repo) Messages(_ context.Context, sessionID string) ([]chat.Message, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return append([]chat.Message{}, r.messages[sessionID]...), nil
}

func (r *Repo) SessionSummaries(_ context.Context, userID string) ([]chat.SessionSummary, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	summaries := []chat.SessionSummary{}
	for _, s := range r.sessions {
		if s.UserID != userID {
			continue
		}
		p := r.params[s.ClientParametersID]
		summaries = append(summaries, chat.SessionSummary{
			Session:      s,
			ClientName:   p.ClientName,
			ClientType:   p.ClientType,
			BudgetMin:    p.BudgetMin,
			BudgetMax:    p.BudgetMax,
			MessageCount: len(r.messages[s.ID]),
		})
	}
	slices.SortFunc(summaries, func(a, b chat.SessionSummary) int {
		return b.StartTime.Compare(a.StartTime)
	})
	return summaries, nil
}
