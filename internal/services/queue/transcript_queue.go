package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/talk-engine/pkg/conversation"
)

// TranscriptQueue keeps the undelivered output of each session in a Redis
// list so clients can poll for it.
type TranscriptQueue struct {
	client *Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewTranscriptQueue creates a transcript queue. Lists expire ttl after
// their last write; zero disables expiry.
func NewTranscriptQueue(client *Client, ttl time.Duration, logger *slog.Logger) *TranscriptQueue {
	return &TranscriptQueue{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

func (q *TranscriptQueue) queueKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("talk-events:%s", sessionID.String())
}

// Enqueue appends events to the end of the session's list.
func (q *TranscriptQueue) Enqueue(ctx context.Context, sessionID uuid.UUID, events ...conversation.Event) error {
	if len(events) == 0 {
		return nil
	}
	values := make([]any, 0, len(events))
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		values = append(values, data)
	}

	key := q.queueKey(sessionID)
	rdb := q.client.GetRedisClient()
	pipe := rdb.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if q.ttl > 0 {
		pipe.Expire(ctx, key, q.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.Error("Failed to enqueue transcript events", "error", err, "session_id", sessionID)
		return fmt.Errorf("failed to enqueue events: %w", err)
	}

	q.logger.Debug("Transcript events enqueued",
		"session_id", sessionID.String(),
		"count", len(events),
	)
	return nil
}

// Dequeue removes and returns every queued event in order.
func (q *TranscriptQueue) Dequeue(ctx context.Context, sessionID uuid.UUID) ([]conversation.Event, error) {
	key := q.queueKey(sessionID)
	rdb := q.client.GetRedisClient()

	var lrange *redis.StringSliceCmd
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		q.logger.Error("Failed to dequeue transcript events", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("failed to dequeue events: %w", err)
	}
	return decodeEvents(lrange.Val())
}

// Peek returns up to limit queued events without removing them. A limit of
// zero or less returns everything.
func (q *TranscriptQueue) Peek(ctx context.Context, sessionID uuid.UUID, limit int) ([]conversation.Event, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	raw, err := q.client.GetRedisClient().LRange(ctx, q.queueKey(sessionID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to peek events: %w", err)
	}
	return decodeEvents(raw)
}

// Depth returns the number of undelivered events.
func (q *TranscriptQueue) Depth(ctx context.Context, sessionID uuid.UUID) (int, error) {
	n, err := q.client.GetRedisClient().LLen(ctx, q.queueKey(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(n), nil
}

// Clear drops the session's list.
func (q *TranscriptQueue) Clear(ctx context.Context, sessionID uuid.UUID) error {
	if err := q.client.GetRedisClient().Del(ctx, q.queueKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	q.logger.Debug("Transcript queue cleared", "session_id", sessionID.String())
	return nil
}

func decodeEvents(raw []string) ([]conversation.Event, error) {
	events := make([]conversation.Event, 0, len(raw))
	for _, r := range raw {
		var ev conversation.Event
		if err := json.Unmarshal([]byte(r), &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}
