package conversation

import (
	"context"
	"sync"

	"github.com/jwebster45206/talk-engine/pkg/talk"
)

// Event is one unit of conversation output for the host.
type Event struct {
	Command talk.Command `json:"command"`
	Text    string       `json:"text,omitempty"`
	Data    int          `json:"data,omitempty"`
	Runic   bool         `json:"runic,omitempty"`
}

// IsText reports whether the event carries literal text.
func (e Event) IsText() bool {
	return e.Command == talk.PlainString
}

// IsPrompt reports whether the conversation is waiting on the host after
// this event.
func (e Event) IsPrompt() bool {
	switch e.Command {
	case talk.PromptUserInterest, talk.PromptNPCQuestion, talk.AskName:
		return true
	}
	return false
}

type outputQueue struct {
	mu     sync.Mutex
	events []Event
}

func (q *outputQueue) push(ev Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

func (q *outputQueue) pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return Event{}, false
	}
	ev := q.events[0]
	q.events = q.events[1:]
	return ev, true
}

func (q *outputQueue) drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

func (q *outputQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// inputQueue holds host responses. notify has room for one signal so a
// push between an empty check and the wait is never lost.
type inputQueue struct {
	mu      sync.Mutex
	items   []string
	notify  chan struct{}
	waiting bool
}

func newInputQueue() *inputQueue {
	return &inputQueue{notify: make(chan struct{}, 1)}
}

func (q *inputQueue) push(s string) {
	q.mu.Lock()
	q.items = append(q.items, s)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pop takes the oldest response, blocking until one arrives or ctx is done.
func (q *inputQueue) pop(ctx context.Context) (string, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			s := q.items[0]
			q.items = q.items[1:]
			q.waiting = false
			q.mu.Unlock()
			return s, nil
		}
		q.waiting = true
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			q.mu.Lock()
			q.waiting = false
			q.mu.Unlock()
			return "", ctx.Err()
		}
	}
}

func (q *inputQueue) isWaiting() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiting
}
