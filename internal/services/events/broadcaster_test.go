package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/talk-engine/pkg/conversation"
	"github.com/jwebster45206/talk-engine/pkg/talk"
)

func setupBroadcaster(t *testing.T) (*Broadcaster, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewBroadcaster(client, logger), mr
}

func receive(t *testing.T, ps *redis.PubSub) Event {
	t.Helper()
	select {
	case msg := <-ps.Channel():
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestBroadcaster_SessionLifecycle(t *testing.T) {
	b, _ := setupBroadcaster(t)
	ctx := context.Background()
	sessionID, gameID := uuid.New(), uuid.New()

	ps := b.Subscribe(ctx, sessionID)
	defer ps.Close()
	_, err := ps.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	require.NoError(t, b.PublishSessionStarted(ctx, sessionID, gameID, "towne", 3, "Iolo"))
	require.NoError(t, b.PublishSessionOutput(ctx, sessionID, conversation.Event{Command: talk.PlainString, Text: "Hello"}))
	require.NoError(t, b.PublishSessionEnded(ctx, sessionID, ""))

	started := receive(t, ps)
	assert.Equal(t, EventTypeSessionStarted, started.Type)
	assert.Equal(t, gameID.String(), started.GameID)
	assert.Equal(t, "Iolo", started.Data["npc_name"])

	output := receive(t, ps)
	assert.Equal(t, EventTypeSessionOutput, output.Type)
	require.NotNil(t, output.Output)
	assert.Equal(t, "Hello", output.Output.Text)

	ended := receive(t, ps)
	assert.Equal(t, EventTypeSessionEnded, ended.Type)
	assert.Equal(t, "ended", ended.Data["status"])
}

func TestBroadcaster_AbortReason(t *testing.T) {
	b, _ := setupBroadcaster(t)
	ctx := context.Background()
	sessionID := uuid.New()

	ps := b.Subscribe(ctx, sessionID)
	defer ps.Close()
	_, err := ps.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, b.PublishSessionEnded(ctx, sessionID, "malformed script"))
	ended := receive(t, ps)
	assert.Equal(t, "aborted", ended.Data["status"])
	assert.Equal(t, "malformed script", ended.Data["reason"])
}

func TestBroadcaster_PublishError(t *testing.T) {
	b, mr := setupBroadcaster(t)
	mr.SetError("server down")
	err := b.PublishSessionEnded(context.Background(), uuid.New(), "")
	assert.Error(t, err)
}

func TestChannel(t *testing.T) {
	id := uuid.MustParse("7d1c6a2e-8d44-4b0e-9a53-18c1c15a0f01")
	assert.Equal(t, "session-events:7d1c6a2e-8d44-4b0e-9a53-18c1c15a0f01", Channel(id))
}
