package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/talk-engine/pkg/talk"
)

func TestSessionHandler_Lifecycle(t *testing.T) {
	ts := setupTestServer(t)

	started := ts.startSession(t, map[string]any{"master": "towne", "npc": 1, "avatar_name": "Shamino"})
	assert.Equal(t, "Iolo", started.NPCName)
	assert.True(t, started.Active)
	ts.waitPrompt(t, started.ID)

	path := "/v1/sessions/" + started.ID.String()
	rr := ts.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	status := decode[SessionResponse](t, rr)
	assert.True(t, status.Waiting)
	assert.Empty(t, status.Outcome)

	rr = ts.do(t, http.MethodGet, path+"/events?peek=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	peeked := decode[EventsResponse](t, rr)
	require.Len(t, peeked.Events, 1)
	assert.Equal(t, "You see ", peeked.Events[0].Text)

	rr = ts.do(t, http.MethodGet, path+"/events", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	drained := decode[EventsResponse](t, rr)
	assert.True(t, drained.Active)
	require.NotEmpty(t, drained.Events)
	assert.Equal(t, talk.PromptUserInterest, drained.Events[len(drained.Events)-1].Command)

	rr = ts.do(t, http.MethodPost, path+"/responses", map[string]string{"text": "join"})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	ts.waitEnded(t, started.ID)

	require.Eventually(t, func() bool {
		rec, err := ts.store.LoadSession(context.Background(), started.ID)
		return err == nil && rec != nil && rec.Ended
	}, 2*time.Second, 5*time.Millisecond)

	rr = ts.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	ended := decode[SessionResponse](t, rr)
	assert.False(t, ended.Active)
	assert.NotNil(t, ended.EndedAt)

	rr = ts.do(t, http.MethodGet, path+"/events", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rest := decode[EventsResponse](t, rr)
	assert.False(t, rest.Active)
	require.NotEmpty(t, rest.Events)
	assert.Equal(t, talk.JoinParty, rest.Events[len(rest.Events)-1].Command)

	game, err := ts.store.LoadGameState(context.Background(), started.GameID)
	require.NoError(t, err)
	require.NotNil(t, game)
	assert.Equal(t, 2, game.PartySize())

	rr = ts.do(t, http.MethodPost, path+"/responses", map[string]string{"text": "bye"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSessionHandler_Cancel(t *testing.T) {
	ts := setupTestServer(t)

	started := ts.startSession(t, map[string]any{"master": "towne", "npc": 1})
	ts.waitPrompt(t, started.ID)

	rr := ts.do(t, http.MethodDelete, "/v1/sessions/"+started.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.False(t, ts.mr.Exists("game-lock:"+started.GameID.String()))

	rr = ts.do(t, http.MethodDelete, "/v1/sessions/"+started.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSessionHandler_StartErrors(t *testing.T) {
	ts := setupTestServer(t)

	busy := ts.startSession(t, map[string]any{"master": "towne", "npc": 1})

	tests := []struct {
		name    string
		body    map[string]any
		status  int
		details string
	}{
		{"missing master", map[string]any{"npc": 1}, http.StatusBadRequest, "master"},
		{"bad master", map[string]any{"master": "dungeon", "npc": 1}, http.StatusBadRequest, "master"},
		{"missing npc", map[string]any{"master": "towne"}, http.StatusBadRequest, "npc"},
		{"negative npc", map[string]any{"master": "towne", "npc": -1}, http.StatusBadRequest, "npc"},
		{"unknown npc", map[string]any{"master": "castle", "npc": 1}, http.StatusNotFound, ""},
		{"unknown game", map[string]any{"master": "towne", "npc": 1, "game_id": uuid.NewString()}, http.StatusNotFound, ""},
		{"broken script", map[string]any{"master": "towne", "npc": 3}, http.StatusUnprocessableEntity, ""},
		{"game busy", map[string]any{"master": "towne", "npc": 1, "game_id": busy.GameID.String()}, http.StatusConflict, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPost, "/v1/sessions", tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			resp := decode[ErrorResponse](t, rr)
			assert.NotEmpty(t, resp.Error)
			if tt.details != "" {
				assert.Contains(t, resp.Details, tt.details)
			}
		})
	}
}

func TestSessionHandler_NotFound(t *testing.T) {
	ts := setupTestServer(t)
	id := uuid.NewString()

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/v1/sessions/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/v1/sessions/"+id+"/responses", map[string]string{"text": "hi"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/v1/sessions/nope", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/v1/sessions/"+id+"/events?peek=x", nil).Code)

	rr := ts.do(t, http.MethodGet, "/v1/sessions/"+id+"/events", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[EventsResponse](t, rr).Events)
}
