package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// PartyCapacity is the most members a party may hold, avatar included.
	PartyCapacity = 6

	DefaultGold  = 100
	DefaultKarma = 50
	MaxKarma     = 99
	AvatarID     = "avatar"
)

var (
	ErrPartyFull      = errors.New("party is full")
	ErrAlreadyInParty = errors.New("already in party")
)

// NPCKey identifies an NPC across master files, e.g. "towne:12".
func NPCKey(master string, npc int) string {
	return fmt.Sprintf("%s:%d", strings.ToLower(master), npc)
}

// GameState is the avatar's side of the world that conversations read and
// change. It is safe for concurrent use.
type GameState struct {
	mu sync.RWMutex

	id        uuid.UUID
	avatar    string
	party     []*PartyMember
	gold      int
	karma     int
	met       MetSet
	createdAt time.Time
	updatedAt time.Time
}

// NewGameState starts a game with the avatar as the only party member.
func NewGameState(avatarName string) *GameState {
	now := time.Now()
	gs := &GameState{
		id:        uuid.New(),
		avatar:    avatarName,
		gold:      DefaultGold,
		karma:     DefaultKarma,
		met:       make(MetSet),
		createdAt: now,
		updatedAt: now,
	}
	if avatar, err := NewPartyMember(&MemberSpec{
		ID:           AvatarID,
		Name:         avatarName,
		Class:        ClassAvatar,
		Level:        1,
		Strength:     15,
		Dexterity:    15,
		Intelligence: 15,
	}); err == nil {
		gs.party = append(gs.party, avatar)
	}
	return gs
}

func (gs *GameState) touch() {
	gs.updatedAt = time.Now()
}

// ID returns the game id.
func (gs *GameState) ID() uuid.UUID {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.id
}

func (gs *GameState) AvatarName() string {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.avatar
}

func (gs *GameState) KnowsAvatar(npc string) bool {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.met[npc]
}

func (gs *GameState) MeetAvatar(npc string) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.met[npc] = true
	gs.touch()
}

func (gs *GameState) PartyFull() bool {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return len(gs.party) >= PartyCapacity
}

// SpendGold deducts gold. The purse never goes below zero.
func (gs *GameState) SpendGold(amount int) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.gold = max(gs.gold-amount, 0)
	gs.touch()
}

// AdjustKarma moves karma by delta, kept within 0..MaxKarma.
func (gs *GameState) AdjustKarma(delta int) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.karma = min(max(gs.karma+delta, 0), MaxKarma)
	gs.touch()
}

func (gs *GameState) Gold() int {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.gold
}

func (gs *GameState) Karma() int {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.karma
}

// Join adds a member to the party.
func (gs *GameState) Join(m *PartyMember) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if len(gs.party) >= PartyCapacity {
		return ErrPartyFull
	}
	for _, existing := range gs.party {
		if existing.Spec.ID == m.Spec.ID {
			return fmt.Errorf("%w: %s", ErrAlreadyInParty, m.Spec.ID)
		}
	}
	gs.party = append(gs.party, m)
	gs.touch()
	return nil
}

// Leave removes the member with the given id. The avatar never leaves.
func (gs *GameState) Leave(id string) bool {
	if id == AvatarID {
		return false
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	for i, m := range gs.party {
		if m.Spec.ID == id {
			gs.party = append(gs.party[:i], gs.party[i+1:]...)
			gs.touch()
			return true
		}
	}
	return false
}

// Party returns a copy of the roster.
func (gs *GameState) Party() []*PartyMember {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return append([]*PartyMember(nil), gs.party...)
}

func (gs *GameState) PartySize() int {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return len(gs.party)
}

func (gs *GameState) UpdatedAt() time.Time {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.updatedAt
}

type gameStateJSON struct {
	ID        uuid.UUID      `json:"id"`
	Avatar    string         `json:"avatar"`
	Party     []*PartyMember `json:"party"`
	Gold      int            `json:"gold"`
	Karma     int            `json:"karma"`
	Met       MetSet         `json:"met,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (gs *GameState) MarshalJSON() ([]byte, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return json.Marshal(gameStateJSON{
		ID:        gs.id,
		Avatar:    gs.avatar,
		Party:     gs.party,
		Gold:      gs.gold,
		Karma:     gs.karma,
		Met:       gs.met,
		CreatedAt: gs.createdAt,
		UpdatedAt: gs.updatedAt,
	})
}

func (gs *GameState) UnmarshalJSON(data []byte) error {
	var v gameStateJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to unmarshal game state: %w", err)
	}
	if v.Met == nil {
		v.Met = make(MetSet)
	}
	if len(v.Party) > PartyCapacity {
		return fmt.Errorf("%w: %d members", ErrPartyFull, len(v.Party))
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.id = v.ID
	gs.avatar = v.Avatar
	gs.party = v.Party
	gs.gold = v.Gold
	gs.karma = v.Karma
	gs.met = v.Met
	gs.createdAt = v.CreatedAt
	gs.updatedAt = v.UpdatedAt
	return nil
}
