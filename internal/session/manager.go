// Package session hosts running conversations: it binds a script to a
// game, mirrors output to Redis and saves the game when the talk ends.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/talk-engine/internal/gamedata"
	"github.com/jwebster45206/talk-engine/internal/metrics"
	"github.com/jwebster45206/talk-engine/pkg/conversation"
	"github.com/jwebster45206/talk-engine/pkg/state"
	"github.com/jwebster45206/talk-engine/pkg/storage"
	"github.com/jwebster45206/talk-engine/pkg/talk"
)

var (
	ErrGameNotFound    = errors.New("game not found")
	ErrGameBusy        = errors.New("game already has an active conversation")
	ErrSessionNotFound = errors.New("session not found")
)

const ioTimeout = 5 * time.Second

// Library supplies built scripts and the phrase set.
type Library interface {
	Script(master gamedata.MasterFile, npc int) (*talk.Script, error)
	Phrases() conversation.Phrases
}

// Transcript stores undelivered output for polling clients.
type Transcript interface {
	Enqueue(ctx context.Context, sessionID uuid.UUID, events ...conversation.Event) error
}

// Publisher announces session lifecycle and output.
type Publisher interface {
	PublishSessionStarted(ctx context.Context, sessionID, gameID uuid.UUID, master string, npc int, npcName string) error
	PublishSessionOutput(ctx context.Context, sessionID uuid.UUID, ev conversation.Event) error
	PublishSessionEnded(ctx context.Context, sessionID uuid.UUID, reason string) error
}

// StartRequest names the NPC to talk to. A nil GameID starts a new game.
type StartRequest struct {
	GameID     *uuid.UUID
	AvatarName string
	Master     gamedata.MasterFile
	NPC        int
}

// Option configures a Manager.
type Option func(*Manager)

// WithTranscript mirrors every output event into t.
func WithTranscript(t Transcript) Option {
	return func(m *Manager) { m.transcript = t }
}

// WithPublisher publishes lifecycle and output events to p.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// WithLocker enforces one conversation per game.
func WithLocker(l Locker) Option {
	return func(m *Manager) { m.locker = l }
}

// WithOdds fixes the interpreter's random source.
func WithOdds(fn func(n int) bool) Option {
	return func(m *Manager) { m.odds = fn }
}

// WithDefaultAvatar names the avatar of games started without one.
func WithDefaultAvatar(name string) Option {
	return func(m *Manager) { m.defaultAvatar = name }
}

// Manager owns every running session in this process.
type Manager struct {
	library       Library
	store         storage.Storage
	transcript    Transcript
	publisher     Publisher
	locker        Locker
	odds          func(n int) bool
	defaultAvatar string
	logger        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates a session manager.
func NewManager(library Library, store storage.Storage, logger *slog.Logger, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		library:       library,
		store:         store,
		defaultAvatar: "Avatar",
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		sessions:      make(map[uuid.UUID]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start loads or creates the game, binds the NPC's script to it and runs
// the conversation on its own goroutine.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Session, error) {
	script, err := m.library.Script(req.Master, req.NPC)
	if err != nil {
		return nil, err
	}

	game, err := m.loadOrCreateGame(ctx, req)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New()
	if m.locker != nil {
		ok, err := m.locker.Acquire(ctx, game.ID(), sessionID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrGameBusy, game.ID())
		}
	}

	runCtx, cancel := context.WithCancel(m.ctx)
	s := &Session{
		ID:        sessionID,
		GameID:    game.ID(),
		Master:    req.Master,
		NPC:       req.NPC,
		StartedAt: time.Now(),
		game:      game,
		cancel:    cancel,
		done:      make(chan struct{}),
		subs:      make(map[int]chan conversation.Event),
	}
	log := m.logger.With("session_id", s.ID.String(), "game_id", s.GameID.String())

	convOpts := []conversation.Option{
		conversation.WithPhrases(m.library.Phrases()),
		conversation.WithLogger(log),
		conversation.OnEnqueue(func(c *conversation.Conversation) { m.forward(runCtx, s, c) }),
	}
	if m.odds != nil {
		convOpts = append(convOpts, conversation.WithOdds(m.odds))
	}
	npc := conversation.NPC{Key: state.NPCKey(req.Master.String(), req.NPC)}
	s.conv = conversation.New(script, npc, game, convOpts...)
	s.NPCName = s.conv.NPC().Name

	if err := m.store.SaveSession(ctx, s.Record()); err != nil {
		cancel()
		m.releaseLock(s)
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	metrics.SessionsStarted.Inc()
	metrics.ActiveSessions.Inc()
	if m.publisher != nil {
		if err := m.publisher.PublishSessionStarted(ctx, s.ID, s.GameID, req.Master.String(), req.NPC, s.NPCName); err != nil {
			log.Warn("Failed to publish session start", "error", err)
		}
	}
	log.Info("Session started", "master", req.Master.String(), "npc", req.NPC, "npc_name", s.NPCName)

	m.wg.Add(1)
	go m.run(runCtx, s, log)
	return s, nil
}

func (m *Manager) loadOrCreateGame(ctx context.Context, req StartRequest) (*state.GameState, error) {
	if req.GameID == nil {
		name := req.AvatarName
		if name == "" {
			name = m.defaultAvatar
		}
		game := state.NewGameState(name)
		if err := m.store.SaveGameState(ctx, game.ID(), game); err != nil {
			return nil, err
		}
		return game, nil
	}
	game, err := m.store.LoadGameState(ctx, *req.GameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, req.GameID)
	}
	return game, nil
}

func (m *Manager) run(ctx context.Context, s *Session, log *slog.Logger) {
	defer m.wg.Done()
	defer close(s.done)

	err := s.conv.Run(ctx)
	// Anything queued after the last callback, e.g. on a contract violation.
	m.forward(ctx, s, s.conv)

	outcome := OutcomeFinished
	reason := ""
	switch {
	case errors.Is(err, conversation.ErrContractViolation):
		outcome = OutcomeAborted
		reason = err.Error()
		log.Error("Conversation aborted", "error", err)
	case err != nil:
		outcome = OutcomeCancelled
		reason = "cancelled"
	}

	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	// The run context may be gone; persist with a fresh one.
	saveCtx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()

	if err := m.store.SaveGameState(saveCtx, s.GameID, s.game); err != nil {
		log.Error("Failed to save game state", "error", err)
	}
	rec := s.Record()
	now := time.Now()
	rec.Ended = true
	rec.EndedAt = &now
	if err := m.store.SaveSession(saveCtx, rec); err != nil {
		log.Error("Failed to save session record", "error", err)
	}
	if m.publisher != nil {
		if err := m.publisher.PublishSessionEnded(saveCtx, s.ID, reason); err != nil {
			log.Warn("Failed to publish session end", "error", err)
		}
	}
	m.releaseLockCtx(saveCtx, s)

	s.finish(outcome, err)
	s.cancel()
	metrics.ActiveSessions.Dec()
	metrics.SessionsEnded.WithLabelValues(string(outcome)).Inc()
	log.Info("Session ended", "outcome", outcome)
}

// forward drains the conversation's output into the transcript, the
// publisher and live subscribers, and applies party changes.
func (m *Manager) forward(ctx context.Context, s *Session, c *conversation.Conversation) {
	events := c.Events()
	if len(events) == 0 {
		return
	}
	ioCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ioTimeout)
	defer cancel()

	for _, ev := range events {
		metrics.EventsEmitted.WithLabelValues(ev.Command.String()).Inc()
		if ev.Command == talk.JoinParty {
			m.recruit(s)
		}
		if ev.IsPrompt() && m.locker != nil {
			if err := m.locker.Refresh(ioCtx, s.GameID, s.ID); err != nil {
				m.logger.Warn("Failed to refresh game lock", "session_id", s.ID, "error", err)
			}
		}
		if m.publisher != nil {
			if err := m.publisher.PublishSessionOutput(ioCtx, s.ID, ev); err != nil {
				m.logger.Warn("Failed to publish output", "session_id", s.ID, "error", err)
			}
		}
		s.fanOut(ev)
	}
	if m.transcript != nil {
		if err := m.transcript.Enqueue(ioCtx, s.ID, events...); err != nil {
			m.logger.Error("Failed to store transcript", "session_id", s.ID, "error", err)
		}
	}
}

func (m *Manager) recruit(s *Session) {
	member, err := state.Recruit(state.NPCKey(s.Master.String(), s.NPC), s.NPCName, state.ClassFighter)
	if err == nil {
		err = s.game.Join(member)
	}
	if err != nil {
		m.logger.Warn("NPC could not join party", "session_id", s.ID, "npc", s.NPCName, "error", err)
		return
	}
	m.logger.Info("NPC joined party", "session_id", s.ID, "npc", s.NPCName, "party_size", s.game.PartySize())
}

func (m *Manager) releaseLock(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	m.releaseLockCtx(ctx, s)
}

func (m *Manager) releaseLockCtx(ctx context.Context, s *Session) {
	if m.locker == nil {
		return
	}
	if err := m.locker.Release(ctx, s.GameID, s.ID); err != nil {
		m.logger.Error("Failed to release game lock", "session_id", s.ID, "error", err)
	}
}

// Get returns a running session.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Submit answers a running session's prompt.
func (m *Manager) Submit(id uuid.UUID, text string) error {
	s, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s.Submit(text)
}

// Cancel stops a running session and waits for it to save.
func (m *Manager) Cancel(ctx context.Context, id uuid.UUID) error {
	s, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.Cancel()
	select {
	case <-s.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active returns the number of running sessions.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown cancels every session and waits for them to save.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
