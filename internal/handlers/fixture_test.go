package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/talk-engine/internal/gamedata"
	"github.com/jwebster45206/talk-engine/internal/services/events"
	"github.com/jwebster45206/talk-engine/internal/services/queue"
	"github.com/jwebster45206/talk-engine/internal/session"
	"github.com/jwebster45206/talk-engine/pkg/conversation"
	"github.com/jwebster45206/talk-engine/pkg/storage"
	"github.com/jwebster45206/talk-engine/pkg/talk"
)

type fakeLibrary struct {
	scripts map[string]*talk.Script
	broken  map[string]error
}

func (l *fakeLibrary) key(master gamedata.MasterFile, npc int) string {
	return fmt.Sprintf("%s:%d", master, npc)
}

func (l *fakeLibrary) Script(master gamedata.MasterFile, npc int) (*talk.Script, error) {
	if err, ok := l.broken[l.key(master, npc)]; ok {
		return nil, fmt.Errorf("%s npc %d: %w", master, npc, err)
	}
	s, ok := l.scripts[l.key(master, npc)]
	if !ok {
		return nil, gamedata.ErrNPCNotFound
	}
	return s, nil
}

func (l *fakeLibrary) NPCs(master gamedata.MasterFile) []int {
	var ids []int
	for npc := 0; npc < 8; npc++ {
		k := l.key(master, npc)
		if _, ok := l.scripts[k]; ok {
			ids = append(ids, npc)
		} else if _, ok := l.broken[k]; ok {
			ids = append(ids, npc)
		}
	}
	return ids
}

func (l *fakeLibrary) Phrases() conversation.Phrases {
	return conversation.DefaultPhrases()
}

func newFakeLibrary(t *testing.T) *fakeLibrary {
	t.Helper()
	s, err := talk.Build([]talk.Line{
		{talk.Text("Iolo")},
		{talk.Text("a bard.")},
		{talk.Text("Hello")},
		{talk.Text("I keep the inn.")},
		{talk.Text("Farewell.")},
		{talk.Text("join")},
		{talk.Text("Gladly!"), talk.Cmd(talk.JoinParty)},
	})
	require.NoError(t, err)
	return &fakeLibrary{
		scripts: map[string]*talk.Script{"towne:1": s},
		broken:  map[string]error{"towne:3": talk.ErrTooShort},
	}
}

type testServer struct {
	router     http.Handler
	manager    *session.Manager
	store      *storage.MockStorage
	transcript *queue.TranscriptQueue
	mr         *miniredis.Miniredis
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := testLogger()
	ts := &testServer{
		store:      storage.NewMockStorage(),
		transcript: queue.NewTranscriptQueue(queue.NewClientFromRedis(rdb, log), time.Hour, log),
		mr:         mr,
	}
	lib := newFakeLibrary(t)
	ts.manager = session.NewManager(lib, ts.store, log,
		session.WithTranscript(ts.transcript),
		session.WithPublisher(events.NewBroadcaster(rdb, log)),
		session.WithLocker(session.NewRedisLocker(rdb, time.Minute)),
		session.WithOdds(func(int) bool { return false }),
		session.WithDefaultAvatar("Roberto"),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = ts.manager.Shutdown(ctx)
	})
	ts.router = NewRouter(RouterDeps{
		Manager:       ts.manager,
		Storage:       ts.store,
		Library:       lib,
		Transcript:    ts.transcript,
		Redis:         rdb,
		DefaultAvatar: "Roberto",
		Logger:        log,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) startSession(t *testing.T, body map[string]any) SessionResponse {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/v1/sessions", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp SessionResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func (ts *testServer) waitPrompt(t *testing.T, id uuid.UUID) {
	t.Helper()
	require.Eventually(t, func() bool {
		s, ok := ts.manager.Get(id)
		return ok && s.Waiting()
	}, 2*time.Second, 5*time.Millisecond)
}

func (ts *testServer) waitEnded(t *testing.T, id uuid.UUID) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := ts.manager.Get(id)
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}
