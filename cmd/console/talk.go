package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/talk-engine/internal/gamedata"
	"github.com/jwebster45206/talk-engine/pkg/conversation"
	"github.com/jwebster45206/talk-engine/pkg/state"
	"github.com/jwebster45206/talk-engine/pkg/talk"
)

// ScriptSource is the part of the game library the console needs.
type ScriptSource interface {
	Script(master gamedata.MasterFile, npc int) (*talk.Script, error)
	NPCs(master gamedata.MasterFile) []int
	Phrases() conversation.Phrases
}

// eventBuffer is how many events a session holds for the UI.
var eventBuffer = 256

// talkSession runs one conversation in process and streams its output.
type talkSession struct {
	master gamedata.MasterFile
	npc    int
	conv   *conversation.Conversation
	game   *state.GameState
	events chan conversation.Event
	done   chan error
	ctx    context.Context
	cancel context.CancelFunc
}

func startTalk(lib ScriptSource, game *state.GameState, master gamedata.MasterFile, npc int, logger *slog.Logger) (*talkSession, error) {
	script, err := lib.Script(master, npc)
	if err != nil {
		return nil, fmt.Errorf("failed to load script: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ts := &talkSession{
		master: master,
		npc:    npc,
		game:   game,
		events: make(chan conversation.Event, eventBuffer),
		done:   make(chan error, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	ts.conv = conversation.New(script,
		conversation.NPC{Key: state.NPCKey(master.String(), npc)},
		game,
		conversation.WithPhrases(lib.Phrases()),
		conversation.WithLogger(logger),
		conversation.OnEnqueue(ts.forward),
	)

	go func() {
		err := ts.conv.Run(ctx)
		ts.forward(ts.conv)
		ts.done <- err
		close(ts.events)
	}()
	return ts, nil
}

func (ts *talkSession) forward(c *conversation.Conversation) {
	for _, ev := range c.Events() {
		if ev.Command == talk.JoinParty {
			ts.recruit()
		}
		select {
		case ts.events <- ev:
		case <-ts.ctx.Done():
			return
		}
	}
}

func (ts *talkSession) recruit() {
	npc := ts.conv.NPC()
	member, err := state.Recruit(npc.Key, npc.Name, state.ClassFighter)
	if err != nil {
		return
	}
	// ErrAlreadyInParty leaves the roster as it is.
	_ = ts.game.Join(member)
}

func (ts *talkSession) submit(text string) {
	ts.conv.Submit(text)
}

func (ts *talkSession) stop() {
	ts.cancel()
}
