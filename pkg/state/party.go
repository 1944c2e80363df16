package state

import (
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/d20"
)

// Class is a party member's profession.
type Class string

const (
	ClassAvatar  Class = "avatar"
	ClassFighter Class = "fighter"
	ClassBard    Class = "bard"
	ClassMage    Class = "mage"
)

// MemberSpec is the serializable form of a party member.
type MemberSpec struct {
	ID           string `json:"id"` // NPC key, or "avatar"
	Name         string `json:"name"`
	Class        Class  `json:"class,omitempty"`
	Level        int    `json:"level,omitempty"`
	Strength     int    `json:"strength,omitempty"`
	Dexterity    int    `json:"dexterity,omitempty"`
	Intelligence int    `json:"intelligence,omitempty"`
	HP           int    `json:"hp,omitempty"`
	MaxHP        int    `json:"max_hp,omitempty"`
	AC           int    `json:"ac,omitempty"`
}

func (s *MemberSpec) attributes() map[string]int {
	return map[string]int{
		"strength":     s.Strength,
		"dexterity":    s.Dexterity,
		"intelligence": s.Intelligence,
		"level":        s.Level,
	}
}

// PartyMember is a companion travelling with the avatar.
type PartyMember struct {
	Spec  *MemberSpec
	Actor *d20.Actor // built from Spec
}

// NewPartyMember builds a member and its actor from a spec.
func NewPartyMember(spec *MemberSpec) (*PartyMember, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec cannot be nil")
	}
	if spec.ID == "" {
		return nil, fmt.Errorf("party member id is required")
	}
	if spec.Level == 0 {
		spec.Level = 1
	}
	if spec.MaxHP == 0 {
		spec.MaxHP = 30 * spec.Level
	}
	if spec.AC == 0 {
		spec.AC = 10
	}

	actor, err := d20.NewActor(spec.ID).
		WithHP(spec.MaxHP).
		WithAC(spec.AC).
		WithAttributes(spec.attributes()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}
	if spec.HP > 0 && spec.HP != spec.MaxHP {
		if err := actor.SetHP(spec.HP); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}
	return &PartyMember{Spec: spec, Actor: actor}, nil
}

// Recruit builds a level one member from the NPC who joined.
func Recruit(npcKey, name string, class Class) (*PartyMember, error) {
	return NewPartyMember(&MemberSpec{
		ID:           npcKey,
		Name:         name,
		Class:        class,
		Level:        1,
		Strength:     15,
		Dexterity:    15,
		Intelligence: 15,
	})
}

// MarshalJSON writes the member as its spec with the actor's current HP.
func (m *PartyMember) MarshalJSON() ([]byte, error) {
	if m == nil || m.Spec == nil {
		return []byte("null"), nil
	}
	spec := *m.Spec
	if m.Actor != nil {
		spec.HP = m.Actor.HP()
		spec.MaxHP = m.Actor.MaxHP()
		spec.AC = m.Actor.AC()
	}
	return json.Marshal(spec)
}

// UnmarshalJSON reads a spec and rebuilds the actor.
func (m *PartyMember) UnmarshalJSON(data []byte) error {
	var spec MemberSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return fmt.Errorf("failed to unmarshal party member: %w", err)
	}
	built, err := NewPartyMember(&spec)
	if err != nil {
		return fmt.Errorf("failed to rebuild party member: %w", err)
	}
	*m = *built
	return nil
}
