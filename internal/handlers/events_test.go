package handlers

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/talk-engine/internal/services/events"
)

type sseFrame struct {
	event string
	data  string
}

func readFrames(t *testing.T, scanner *bufio.Scanner, frames chan<- sseFrame) {
	t.Helper()
	var cur sseFrame
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "" && cur.event != "":
			frames <- cur
			cur = sseFrame{}
		}
	}
	close(frames)
}

func nextFrame(t *testing.T, frames <-chan sseFrame) sseFrame {
	t.Helper()
	select {
	case f, ok := <-frames:
		require.True(t, ok, "stream closed")
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SSE frame")
	}
	return sseFrame{}
}

func TestEventsHandler_StreamsSession(t *testing.T) {
	ts := setupTestServer(t)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	started := ts.startSession(t, map[string]any{"master": "towne", "npc": 1})
	ts.waitPrompt(t, started.ID)

	resp, err := http.Get(srv.URL + "/v1/sessions/" + started.ID.String() + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames := make(chan sseFrame, 32)
	go readFrames(t, bufio.NewScanner(resp.Body), frames)
	assert.Equal(t, "connected", nextFrame(t, frames).event)

	rr := ts.do(t, http.MethodPost, "/v1/sessions/"+started.ID.String()+"/responses", map[string]string{"text": "job"})
	require.Equal(t, http.StatusAccepted, rr.Code)

	f := nextFrame(t, frames)
	require.Equal(t, string(events.EventTypeSessionOutput), f.event)
	var ev events.Event
	require.NoError(t, json.Unmarshal([]byte(f.data), &ev))
	assert.Equal(t, started.ID.String(), ev.SessionID)
	require.NotNil(t, ev.Output)
	assert.Equal(t, "I keep the inn.", ev.Output.Text)

	rr = ts.do(t, http.MethodDelete, "/v1/sessions/"+started.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	for {
		f := nextFrame(t, frames)
		if f.event == string(events.EventTypeSessionEnded) {
			require.NoError(t, json.Unmarshal([]byte(f.data), &ev))
			assert.Equal(t, "aborted", ev.Data["status"])
			break
		}
	}
}

func TestEventsHandler_InvalidID(t *testing.T) {
	ts := setupTestServer(t)
	rr := ts.do(t, http.MethodGet, "/v1/sessions/xyz/stream", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
