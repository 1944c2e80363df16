package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/talk-engine/pkg/conversation"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeSessionStarted EventType = "session.started"
	EventTypeSessionOutput  EventType = "session.output"
	EventTypeSessionEnded   EventType = "session.ended"
)

// Event is the envelope published on a session channel.
type Event struct {
	Type      EventType           `json:"type"`
	SessionID string              `json:"session_id"`
	GameID    string              `json:"game_id,omitempty"`
	Output    *conversation.Event `json:"output,omitempty"`
	Data      map[string]any      `json:"data,omitempty"`
}

// Channel returns the pub/sub channel for a session.
func Channel(sessionID uuid.UUID) string {
	return fmt.Sprintf("session-events:%s", sessionID.String())
}

// Broadcaster publishes session events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishSessionStarted publishes a session.started event
func (b *Broadcaster) PublishSessionStarted(ctx context.Context, sessionID, gameID uuid.UUID, master string, npc int, npcName string) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeSessionStarted,
		SessionID: sessionID.String(),
		GameID:    gameID.String(),
		Data: map[string]any{
			"master":   master,
			"npc":      npc,
			"npc_name": npcName,
		},
	})
}

// PublishSessionOutput publishes one interpreter event.
func (b *Broadcaster) PublishSessionOutput(ctx context.Context, sessionID uuid.UUID, ev conversation.Event) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeSessionOutput,
		SessionID: sessionID.String(),
		Output:    &ev,
	})
}

// PublishSessionEnded publishes a session.ended event. reason is empty for a
// conversation that finished normally.
func (b *Broadcaster) PublishSessionEnded(ctx context.Context, sessionID uuid.UUID, reason string) error {
	ev := Event{
		Type:      EventTypeSessionEnded,
		SessionID: sessionID.String(),
		Data:      map[string]any{"status": "ended"},
	}
	if reason != "" {
		ev.Data["status"] = "aborted"
		ev.Data["reason"] = reason
	}
	return b.publish(ctx, sessionID, ev)
}

// Subscribe opens a pub/sub subscription to a session channel.
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID uuid.UUID) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(sessionID))
}

func (b *Broadcaster) publish(ctx context.Context, sessionID uuid.UUID, event Event) error {
	channel := Channel(sessionID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
	)
	return nil
}
