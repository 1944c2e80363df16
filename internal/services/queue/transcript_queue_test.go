package queue

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/talk-engine/pkg/conversation"
	"github.com/jwebster45206/talk-engine/pkg/talk"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewClientFromRedis(rdb, testLogger()), mr
}

func sampleEvents() []conversation.Event {
	return []conversation.Event{
		{Command: talk.PlainString, Text: "You see a bard."},
		{Command: talk.Gold, Data: 5},
		{Command: talk.PlainString, Text: "Well met!", Runic: true},
		{Command: talk.PromptUserInterest},
	}
}

func TestTranscriptQueue_EnqueueAndDequeue(t *testing.T) {
	client, _ := setupTestRedis(t)
	q := NewTranscriptQueue(client, 0, testLogger())
	ctx := context.Background()
	sessionID := uuid.New()

	events := sampleEvents()
	if err := q.Enqueue(ctx, sessionID, events[:2]...); err != nil {
		t.Fatalf("Failed to enqueue events: %v", err)
	}
	if err := q.Enqueue(ctx, sessionID, events[2:]...); err != nil {
		t.Fatalf("Failed to enqueue events: %v", err)
	}

	depth, err := q.Depth(ctx, sessionID)
	if err != nil {
		t.Fatalf("Failed to get depth: %v", err)
	}
	if depth != len(events) {
		t.Errorf("Expected depth %d, got %d", len(events), depth)
	}

	dequeued, err := q.Dequeue(ctx, sessionID)
	if err != nil {
		t.Fatalf("Failed to dequeue events: %v", err)
	}
	if len(dequeued) != len(events) {
		t.Fatalf("Expected %d events, got %d", len(events), len(dequeued))
	}
	for i, ev := range events {
		if dequeued[i] != ev {
			t.Errorf("Event %d mismatch: expected %+v, got %+v", i, ev, dequeued[i])
		}
	}

	depth, err = q.Depth(ctx, sessionID)
	if err != nil {
		t.Fatalf("Failed to get depth after dequeue: %v", err)
	}
	if depth != 0 {
		t.Errorf("Expected empty queue after dequeue, got depth %d", depth)
	}
}

func TestTranscriptQueue_DequeueEmpty(t *testing.T) {
	client, _ := setupTestRedis(t)
	q := NewTranscriptQueue(client, 0, testLogger())

	events, err := q.Dequeue(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Failed to dequeue: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Expected no events, got %d", len(events))
	}
}

func TestTranscriptQueue_Peek(t *testing.T) {
	client, _ := setupTestRedis(t)
	q := NewTranscriptQueue(client, 0, testLogger())
	ctx := context.Background()
	sessionID := uuid.New()

	if err := q.Enqueue(ctx, sessionID, sampleEvents()...); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"limited", 2, 2},
		{"beyond length", 10, 4},
		{"all", 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.Peek(ctx, sessionID, tt.limit)
			if err != nil {
				t.Fatalf("Failed to peek: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Expected %d events, got %d", tt.want, len(got))
			}
		})
	}

	depth, _ := q.Depth(ctx, sessionID)
	if depth != 4 {
		t.Errorf("Peek must not consume events, depth is %d", depth)
	}
}

func TestTranscriptQueue_Clear(t *testing.T) {
	client, mr := setupTestRedis(t)
	q := NewTranscriptQueue(client, 0, testLogger())
	ctx := context.Background()
	sessionID := uuid.New()

	if err := q.Enqueue(ctx, sessionID, sampleEvents()...); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	if err := q.Clear(ctx, sessionID); err != nil {
		t.Fatalf("Failed to clear: %v", err)
	}
	if mr.Exists("talk-events:" + sessionID.String()) {
		t.Error("Expected key to be removed")
	}
}

func TestTranscriptQueue_SessionsAreIsolated(t *testing.T) {
	client, _ := setupTestRedis(t)
	q := NewTranscriptQueue(client, 0, testLogger())
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	if err := q.Enqueue(ctx, a, sampleEvents()...); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, b, conversation.Event{Command: talk.EndConversation}); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}

	got, err := q.Dequeue(ctx, b)
	if err != nil {
		t.Fatalf("Failed to dequeue: %v", err)
	}
	if len(got) != 1 || got[0].Command != talk.EndConversation {
		t.Errorf("Unexpected events for session b: %+v", got)
	}
	depth, _ := q.Depth(ctx, a)
	if depth != 4 {
		t.Errorf("Expected session a untouched, depth %d", depth)
	}
}

func TestTranscriptQueue_TTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	q := NewTranscriptQueue(client, time.Minute, testLogger())
	ctx := context.Background()
	sessionID := uuid.New()

	if err := q.Enqueue(ctx, sessionID, sampleEvents()...); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	key := "talk-events:" + sessionID.String()
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Errorf("Expected TTL of 1m, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if mr.Exists(key) {
		t.Error("Expected queue to expire")
	}
}
