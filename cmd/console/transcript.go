package main

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/talk-engine/pkg/conversation"
	"github.com/jwebster45206/talk-engine/pkg/talk"
	"github.com/jwebster45206/talk-engine/pkg/textfilter"
)

// transcript accumulates a conversation as display text. Plain text keeps
// the NPC's own spacing; prompts and game effects go on lines of their own.
type transcript struct {
	phrases conversation.Phrases
	runes   bool // show runic text as runes rather than Latin
	b       strings.Builder
	prompt  string
}

func newTranscript(phrases conversation.Phrases, runes bool) *transcript {
	return &transcript{phrases: phrases, runes: runes}
}

func (t *transcript) newLine() {
	s := t.b.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		t.b.WriteString("\n")
	}
}

// apply renders one event. It returns the prompt to show the player, empty
// when the event does not wait on input.
func (t *transcript) apply(ev conversation.Event) string {
	switch ev.Command {
	case talk.PlainString:
		text := ev.Text
		if ev.Runic && t.runes && !textfilter.IsRunic(text) {
			text = textfilter.ToRunes(text)
		}
		t.b.WriteString(text)
	case talk.Pause, talk.KeyWait:
		t.b.WriteString("...")
	case talk.PromptUserInterest:
		t.prompt = t.phrases.YourInterest
	case talk.PromptNPCQuestion:
		t.prompt = t.phrases.YouRespond
	case talk.AskName:
		t.prompt = t.phrases.YouRespond
	case talk.Gold:
		t.newLine()
		t.b.WriteString(fmt.Sprintf("[You pay %d gold]\n", ev.Data))
	case talk.Change:
		t.newLine()
		t.b.WriteString(fmt.Sprintf("[You receive item %d]\n", ev.Data))
	case talk.KarmaPlusOne, talk.KarmaMinusOne, talk.CallGuards:
		t.newLine()
		t.b.WriteString("[" + ev.Command.String() + "]\n")
	case talk.JoinParty:
		t.newLine()
		t.b.WriteString("[Joins your party]\n")
	case talk.EndConversation:
		t.newLine()
	}
	if ev.IsPrompt() {
		return t.prompt
	}
	return ""
}

// answer records what the player typed at the current prompt.
func (t *transcript) answer(text string) {
	t.newLine()
	t.b.WriteString("\n" + t.prompt + " " + text + "\n\n")
	t.prompt = ""
}

func (t *transcript) String() string {
	return t.b.String()
}
