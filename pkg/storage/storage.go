package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/talk-engine/pkg/state"
)

// SessionRecord describes one conversation session.
type SessionRecord struct {
	ID        uuid.UUID  `json:"id"`
	GameID    uuid.UUID  `json:"game_id"`
	Master    string     `json:"master"`
	NPC       int        `json:"npc"`
	NPCName   string     `json:"npc_name,omitempty"`
	Ended     bool       `json:"ended"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Storage defines persistence for game state and session records.
// Not-found lookups return nil with no error.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// GameState operations
	SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error
	LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error)
	DeleteGameState(ctx context.Context, id uuid.UUID) error

	// Session operations
	SaveSession(ctx context.Context, rec *SessionRecord) error
	LoadSession(ctx context.Context, id uuid.UUID) (*SessionRecord, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}
