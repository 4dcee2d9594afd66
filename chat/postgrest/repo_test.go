package postgrest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-roleplay-desk/chat"
	"github.com/jrsteele09/go-roleplay-desk/chat/postgrest"
	"github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/internal/supabase"
)

func TestRepo_ParametersRoundTrip(t *testing.T) {
	var stored map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/client_parameters", r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&stored))
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			require.Equal(t, "eq.p1", r.URL.Query().Get("id"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode([]any{stored})
		}
	}))
	defer srv.Close()

	repo := postgrest.New(supabase.NewClient(srv.URL, "key"))
	err := repo.CreateParameters(context.Background(), &chat.ClientParameters{
		ID:                "p1",
		UserID:            "u1",
		ClientName:        "John Doe",
		ClientType:        "Investor",
		BudgetMin:         100000,
		BudgetMax:         200000,
		UrgencyLevel:      3,
		PersonalityTraits: []string{"analytical", "skeptical"},
	})
	require.NoError(t, err)
	require.Equal(t, "analytical,skeptical", stored["personality_traits"])
	require.Nil(t, stored["property_preferences"])

	params, err := repo.GetParameters(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, []string{"analytical", "skeptical"}, params.PersonalityTraits)
	require.Equal(t, "Investor", params.ClientType)
}

func TestRepo_GetSessionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := postgrest.New(supabase.NewClient(srv.URL, "key")).GetSession(context.Background(), "missing")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRepo_Messages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/messages", r.URL.Path)
		require.Equal(t, "eq.s1", r.URL.Query().Get("chat_session_id"))
		require.Equal(t, "timestamp.asc", r.URL.Query().Get("order"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"m1","chat_session_id":"s1","role":"user","content":"hi","timestamp":"2026-03-01T09:00:00Z"}]`))
	}))
	defer srv.Close()

	messages, err := postgrest.New(supabase.NewClient(srv.URL, "key")).Messages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "hi", messages[0].Content)
}

func TestRepo_EndSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "eq.s1", r.URL.Query().Get("id"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "ended", body["status"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, postgrest.New(supabase.NewClient(srv.URL, "key")).EndSession(context.Background(), "s1", chat.NowTimeFunc()))
}

func TestRepo_SessionSummaries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/chat_sessions", r.URL.Path)
		require.Equal(t, "eq.u1", r.URL.Query().Get("user_id"))
		require.Equal(t, "start_time.desc", r.URL.Query().Get("order"))
		require.Contains(t, r.URL.Query().Get("select"), "messages(count)")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"s2","user_id":"u1","client_parameters_id":"p2","start_time":"2026-03-02T09:00:00Z","status":"active",
			 "client_parameters":{"client_name":"Emma Rodriguez","client_type":"downsizer","budget_min":350000,"budget_max":400000},
			 "messages":[{"count":27}]},
			{"id":"s1","user_id":"u1","client_parameters_id":"p1","start_time":"2026-03-01T09:00:00Z","end_time":"2026-03-01T09:20:00Z","status":"ended",
			 "client_parameters":null,"messages":[]}
		]`))
	}))
	defer srv.Close()

	summaries, err := postgrest.New(supabase.NewClient(srv.URL, "key")).SessionSummaries(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, "s2", summaries[0].ID)
	require.Equal(t, "Emma Rodriguez", summaries[0].ClientName)
	require.Equal(t, 400000, summaries[0].BudgetMax)
	require.Equal(t, 27, summaries[0].MessageCount)
	require.Equal(t, chat.StatusEnded, summaries[1].Status)
	require.Zero(t, summaries[1].MessageCount)
	require.Equal(t, 20*time.Minute, summaries[1].Duration())
}
