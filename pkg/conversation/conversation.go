// Package conversation runs a structured talk script as an interactive,
// suspendable dialogue between the avatar and one NPC.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync/atomic"

	"github.com/jwebster45206/talk-engine/pkg/talk"
)

var (
	// ErrContractViolation reports script content the interpreter cannot run.
	ErrContractViolation = errors.New("conversation contract violation")
	ErrAlreadyStarted    = errors.New("conversation already started")
)

// World is the game state a conversation reads and changes.
type World interface {
	AvatarName() string
	KnowsAvatar(npc string) bool
	MeetAvatar(npc string)
	PartyFull() bool
	SpendGold(amount int)
	AdjustKarma(delta int)
}

// NPC identifies who the avatar is talking to. Key is what World uses for
// the "has met" flag.
type NPC struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type skip int

const (
	dontSkip skip = iota
	skipNext
	skipAfterNext
	skipToLabel
)

const byeKeyword = "bye"

// Option configures a Conversation.
type Option func(*Conversation)

// WithPhrases replaces the default English phrases.
func WithPhrases(p Phrases) Option {
	return func(c *Conversation) { c.phrases = p.Merge(DefaultPhrases()) }
}

// WithOdds replaces the random source for one-in-n chances.
func WithOdds(fn func(n int) bool) Option {
	return func(c *Conversation) { c.odds = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Conversation) { c.logger = l }
}

// OnEnqueue registers a callback fired after every output event is queued.
func OnEnqueue(fn func(*Conversation)) Option {
	return func(c *Conversation) { c.onEnqueue = fn }
}

// Conversation is one dialogue session. Run drives it on its own goroutine;
// the host reads output with Next or Events and answers with Submit.
type Conversation struct {
	script    *talk.Script
	npc       NPC
	world     World
	phrases   Phrases
	odds      func(n int) bool
	logger    *slog.Logger
	onEnqueue func(*Conversation)

	out *outputQueue
	in  *inputQueue

	// order is only touched by the Run goroutine.
	order []int

	started  atomic.Bool
	ended    atomic.Bool
	runeMode atomic.Bool
}

// New binds a script to an NPC and the shared world state.
func New(script *talk.Script, npc NPC, world World, opts ...Option) *Conversation {
	if npc.Name == "" {
		npc.Name = script.Name()
	}
	c := &Conversation{
		script:  script,
		npc:     npc,
		world:   world,
		phrases: DefaultPhrases(),
		odds:    func(n int) bool { return rand.IntN(n) == 0 },
		logger:  slog.Default(),
		out:     &outputQueue{},
		in:      newInputQueue(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NPC returns who the conversation is with.
func (c *Conversation) NPC() NPC {
	return c.npc
}

// Phrases returns the phrase set in use.
func (c *Conversation) Phrases() Phrases {
	return c.phrases
}

// Next dequeues the oldest output event without blocking.
func (c *Conversation) Next() (Event, bool) {
	return c.out.pop()
}

// Events dequeues every queued output event.
func (c *Conversation) Events() []Event {
	return c.out.drain()
}

// Pending returns the number of queued output events.
func (c *Conversation) Pending() int {
	return c.out.len()
}

// Submit queues one response from the player.
func (c *Conversation) Submit(text string) {
	c.in.push(text)
}

// Waiting reports whether Run is suspended on a response.
func (c *Conversation) Waiting() bool {
	return c.in.isWaiting()
}

// Ended reports whether the conversation is over.
func (c *Conversation) Ended() bool {
	return c.ended.Load()
}

// RuneMode reports whether text is currently rendered in runes.
func (c *Conversation) RuneMode() bool {
	return c.runeMode.Load()
}

// Run drives the conversation until it ends or ctx is cancelled. A
// conversation runs once. Cancellation leaves Ended false; a contract
// violation ends the conversation.
func (c *Conversation) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	log := c.logger.With("npc", c.npc.Key)
	log.Debug("Conversation started", "name", c.npc.Name)

	c.order = []int{int(talk.SlotDescription), int(talk.SlotGreeting)}
	if err := c.run(ctx); err != nil {
		if errors.Is(err, ErrContractViolation) {
			c.ended.Store(true)
		}
		log.Debug("Conversation stopped", "error", err)
		return err
	}
	log.Debug("Conversation ended")
	return nil
}

func (c *Conversation) run(ctx context.Context) error {
	next := 0
	for !c.ended.Load() {
		if next >= len(c.order) {
			if err := c.askInterest(ctx); err != nil {
				return err
			}
			continue
		}
		idx := c.order[next]
		next++
		if err := c.visit(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// askInterest prompts for free text and answers it from the global table.
func (c *Conversation) askInterest(ctx context.Context) error {
	c.emit(Event{Command: talk.PromptUserInterest})
	resp, err := c.in.pop(ctx)
	if err != nil {
		return err
	}
	resp = strings.TrimSpace(resp)

	switch {
	case resp == "":
		resp = byeKeyword
	case strings.EqualFold(resp, "name"):
		if err := c.processLine(ctx, talk.Line{talk.Text(c.phrases.MyNameIs + " ")}, -1); err != nil {
			return err
		}
	}

	if qa, ok := c.script.Questions().Match(resp); ok {
		return c.processLine(ctx, qa.Answer, -1)
	}
	return c.processLine(ctx, talk.Line{talk.Cmd(talk.UserInputNotRecognized)}, -1)
}

func (c *Conversation) visit(ctx context.Context, idx int) error {
	if idx < 0 || idx >= c.script.Len() {
		return fmt.Errorf("%w: line %d out of range", ErrContractViolation, idx)
	}
	line := c.script.Line(idx)
	if idx == int(talk.SlotGreeting) {
		c.interject(line)
	}
	if label, ok := c.script.LabelAt(idx); ok {
		return c.visitLabel(ctx, label)
	}
	return c.processLine(ctx, line, idx)
}

// interject lets an NPC who has not met the avatar introduce itself.
func (c *Conversation) interject(line talk.Line) {
	if c.knowsAvatar() {
		return
	}
	if !line.Contains(talk.AvatarsName) && !c.script.Slot(talk.SlotName).Contains(talk.IfElseKnowsName) {
		return
	}
	if c.odds(2) {
		c.emitText("\n" + c.phrases.IAmCalled + " " + c.npc.Name)
	}
}

func (c *Conversation) visitLabel(ctx context.Context, label *talk.Label) error {
	if label.Initial.Contains(talk.AvatarsName) && !c.knowsAvatar() {
		return nil
	}
	c.interject(label.Initial)

	if err := c.processLine(ctx, label.Initial, label.Line); err != nil {
		return err
	}
	if c.ended.Load() || !label.HasQuestions() {
		return nil
	}

	var resp string
	for n := 0; resp == ""; n++ {
		if n > 0 {
			c.emitText(c.phrases.WhatYouSay)
		}
		c.emit(Event{Command: talk.PromptNPCQuestion})
		r, err := c.in.pop(ctx)
		if err != nil {
			return err
		}
		resp = strings.TrimSpace(r)
	}

	if qa, ok := label.Questions.Match(resp); ok {
		return c.processLine(ctx, qa.Answer, label.Line)
	}
	for _, line := range label.Defaults {
		if err := c.processLine(ctx, line, label.Line); err != nil {
			return err
		}
		if c.ended.Load() {
			break
		}
	}
	return nil
}

func (c *Conversation) processLine(ctx context.Context, line talk.Line, lineIndex int) error {
	sections, err := talk.Split(line)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrContractViolation, err)
	}
	return c.processSections(ctx, sections, lineIndex)
}

// processSections runs each section of one line, honouring the skip
// instruction each returns. Sections naming an unknown avatar and empty
// sections are passed over without counting toward a pending skip.
func (c *Conversation) processSections(ctx context.Context, sections []talk.Section, lineIndex int) error {
	counter := -1
	for i := 0; i < len(sections); i++ {
		if counter == 0 {
			counter--
			continue
		}
		section := sections[i]
		if section.MentionsAvatar() && !c.knowsAvatar() {
			continue
		}
		if len(section) == 0 {
			continue
		}

		instr, err := c.processSection(ctx, section, lineIndex, i)
		if err != nil {
			return err
		}
		if c.ended.Load() {
			return nil
		}
		if counter != -1 {
			counter--
		}

		switch instr {
		case skipToLabel:
			return nil
		case skipAfterNext:
			counter = 1
		case skipNext:
			i++
		}
	}
	return nil
}

func (c *Conversation) processSection(ctx context.Context, section talk.Section, lineIndex, sectionIndex int) (skip, error) {
	if section.AsksName() && c.knowsAvatar() {
		return dontSkip, nil
	}

	for n, op := range section {
		if lineIndex == int(talk.SlotDescription) && sectionIndex == 0 && n == 0 {
			c.emitText(c.phrases.YouSee + " ")
		}

		switch op := op.(type) {
		case talk.OpIfKnowsName:
			if c.knowsAvatar() {
				return skipAfterNext, nil
			}
			return skipNext, nil

		case talk.OpGoto:
			idx, err := c.script.LabelLine(op.Label)
			if err != nil {
				return dontSkip, fmt.Errorf("%w: %w", ErrContractViolation, err)
			}
			c.order = append(c.order, idx)
			return skipToLabel, nil

		case talk.OpText:
			c.emitText(op.Text)

		case talk.OpAvatarName:
			c.emitText(c.world.AvatarName())

		case talk.OpNewLine:
			c.emitText("\n")

		case talk.OpRune:
			on := !c.runeMode.Load()
			c.runeMode.Store(on)
			if on {
				c.emitText(" ")
			}

		case talk.OpAskName:
			if err := c.askName(ctx); err != nil {
				return dontSkip, err
			}

		case talk.OpGold:
			c.emit(Event{Command: talk.Gold, Data: op.Amount})
			c.world.SpendGold(op.Amount)

		case talk.OpChange:
			c.emit(Event{Command: talk.Change, Data: op.Item})

		case talk.OpJoinParty:
			if c.world.PartyFull() {
				c.emitText(c.phrases.CantJoin1 + c.phrases.CantJoin2)
				continue
			}
			c.emit(Event{Command: talk.JoinParty})
			c.ended.Store(true)
			return dontSkip, nil

		case talk.OpEnd:
			c.emit(Event{Command: talk.EndConversation})
			c.ended.Store(true)
			return dontSkip, nil

		case talk.OpNotRecognized:
			c.emitText(c.phrases.CannotHelp + "\n")

		case talk.OpForward:
			c.emit(Event{Command: op.Command})
			switch op.Command {
			case talk.KarmaPlusOne:
				c.world.AdjustKarma(1)
			case talk.KarmaMinusOne:
				c.world.AdjustKarma(-1)
			}

		case talk.OpLabelStart, talk.OpNoop:

		default:
			return dontSkip, fmt.Errorf("%w: unexpected op %T", ErrContractViolation, op)
		}
	}
	return dontSkip, nil
}

func (c *Conversation) askName(ctx context.Context) error {
	c.emitText(c.phrases.WhatsYourName)
	c.emit(Event{Command: talk.AskName})
	resp, err := c.in.pop(ctx)
	if err != nil {
		return err
	}
	if strings.EqualFold(strings.TrimSpace(resp), c.world.AvatarName()) {
		c.world.MeetAvatar(c.npc.Key)
		c.emitText(c.phrases.Pleasure)
		return nil
	}
	c.emitText(c.phrases.IfSaySo)
	return nil
}

func (c *Conversation) knowsAvatar() bool {
	return c.world.KnowsAvatar(c.npc.Key)
}

func (c *Conversation) emitText(s string) {
	c.emit(Event{Command: talk.PlainString, Text: s, Runic: c.runeMode.Load()})
}

func (c *Conversation) emit(ev Event) {
	c.out.push(ev)
	if c.onEnqueue != nil {
		c.onEnqueue(c)
	}
}
