package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/talk-engine/internal/gamedata"
	"github.com/jwebster45206/talk-engine/pkg/conversation"
	"github.com/jwebster45206/talk-engine/pkg/state"
	"github.com/jwebster45206/talk-engine/pkg/storage"
)

// Outcome says how a session finished.
type Outcome string

const (
	OutcomeFinished  Outcome = "finished"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeAborted   Outcome = "aborted"
)

var ErrSessionEnded = errors.New("session has ended")

const subscriberBuffer = 64

// Session is one running conversation between the avatar and an NPC.
type Session struct {
	ID        uuid.UUID
	GameID    uuid.UUID
	Master    gamedata.MasterFile
	NPC       int
	NPCName   string
	StartedAt time.Time

	conv   *conversation.Conversation
	game   *state.GameState
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	outcome Outcome
	err     error
	subs    map[int]chan conversation.Event
	nextSub int
	closed  bool
}

// Submit answers the conversation's pending prompt.
func (s *Session) Submit(text string) error {
	select {
	case <-s.done:
		return ErrSessionEnded
	default:
	}
	s.conv.Submit(text)
	return nil
}

// Waiting reports whether the conversation is blocked on the player.
func (s *Session) Waiting() bool {
	return s.conv.Waiting()
}

// Done is closed once the conversation goroutine has exited and the game
// state has been saved.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Ended() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Outcome returns how the session finished, empty while it runs.
func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Err returns the error that stopped the conversation, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Game returns the game state the conversation plays against.
func (s *Session) Game() *state.GameState {
	return s.game
}

// Cancel stops the conversation.
func (s *Session) Cancel() {
	s.cancel()
}

// Subscribe returns a channel of live output events. The channel closes when
// the session ends or the returned func is called. Slow subscribers drop
// events rather than stall the conversation.
func (s *Session) Subscribe() (<-chan conversation.Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan conversation.Event, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Session) fanOut(ev conversation.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Session) finish(outcome Outcome, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcome = outcome
	s.err = err
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// Record returns the persisted form of the session.
func (s *Session) Record() *storage.SessionRecord {
	return &storage.SessionRecord{
		ID:        s.ID,
		GameID:    s.GameID,
		Master:    s.Master.String(),
		NPC:       s.NPC,
		NPCName:   s.NPCName,
		StartedAt: s.StartedAt,
	}
}
