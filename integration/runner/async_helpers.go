package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/talk-engine/pkg/conversation"
	"github.com/jwebster45206/talk-engine/pkg/state"
)

const (
	// PollInterval is how often to drain the session transcript
	PollInterval = 100 * time.Millisecond
	// OutputTimeout is max time to wait for the NPC to reach a prompt
	OutputTimeout = 10 * time.Second
)

// SessionResponse mirrors the session status body.
type SessionResponse struct {
	ID      uuid.UUID `json:"id"`
	GameID  uuid.UUID `json:"game_id"`
	NPCName string    `json:"npc_name"`
	Active  bool      `json:"active"`
	Waiting bool      `json:"waiting"`
	Outcome string     `json:"outcome"`
	Error   string     `json:"error"`
	EndedAt *time.Time `json:"ended_at"`
}

// StatusError is an unexpected HTTP status from the API.
type StatusError struct {
	Method string
	URL    string
	Status int
	Want   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned %d (expected %d): %s", e.Method, e.URL, e.Status, e.Want, e.Body)
}

// EventsResponse mirrors the transcript drain body.
type EventsResponse struct {
	SessionID uuid.UUID            `json:"session_id"`
	Events    []conversation.Event `json:"events"`
	Active    bool                 `json:"active"`
}

func doJSON(ctx context.Context, client *http.Client, method, url string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		raw, _ := io.ReadAll(resp.Body)
		return &StatusError{Method: method, URL: url, Status: resp.StatusCode, Want: want, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// CreateGame starts a new game for the named avatar.
func CreateGame(ctx context.Context, client *http.Client, baseURL, avatar string) (*state.GameState, error) {
	var body any
	if avatar != "" {
		body = map[string]string{"avatar_name": avatar}
	}
	var gs state.GameState
	if err := doJSON(ctx, client, http.MethodPost, baseURL+"/v1/games", body, http.StatusCreated, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

// GetGame retrieves the current game state
func GetGame(ctx context.Context, client *http.Client, baseURL string, gameID uuid.UUID) (*state.GameState, error) {
	var gs state.GameState
	if err := doJSON(ctx, client, http.MethodGet, fmt.Sprintf("%s/v1/games/%s", baseURL, gameID), nil, http.StatusOK, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

// StartSession opens a conversation with an NPC in an existing game.
func StartSession(ctx context.Context, client *http.Client, baseURL string, gameID uuid.UUID, master string, npc int) (*SessionResponse, error) {
	req := map[string]any{
		"game_id": gameID.String(),
		"master":  master,
		"npc":     npc,
	}
	var s SessionResponse
	if err := doJSON(ctx, client, http.MethodPost, baseURL+"/v1/sessions", req, http.StatusCreated, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Respond answers the session's pending prompt.
func Respond(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID, text string) error {
	url := fmt.Sprintf("%s/v1/sessions/%s/responses", baseURL, sessionID)
	return doJSON(ctx, client, http.MethodPost, url, map[string]string{"text": text}, http.StatusAccepted, nil)
}

// EndSession cancels the session.
func EndSession(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID) error {
	url := fmt.Sprintf("%s/v1/sessions/%s", baseURL, sessionID)
	return doJSON(ctx, client, http.MethodDelete, url, nil, http.StatusNoContent, nil)
}

// DrainEvents removes and returns the session's undelivered output.
func DrainEvents(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID) (*EventsResponse, error) {
	var er EventsResponse
	url := fmt.Sprintf("%s/v1/sessions/%s/events", baseURL, sessionID)
	if err := doJSON(ctx, client, http.MethodGet, url, nil, http.StatusOK, &er); err != nil {
		return nil, err
	}
	return &er, nil
}

// PollUntilPrompt drains output until the conversation prompts the player
// or the session ends. It returns everything collected.
func PollUntilPrompt(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID) ([]conversation.Event, bool, error) {
	timeout := time.After(OutputTimeout)
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	var events []conversation.Event
	for {
		select {
		case <-ctx.Done():
			return events, false, ctx.Err()
		case <-timeout:
			return events, false, fmt.Errorf("timeout waiting for a prompt (waited %v)", OutputTimeout)
		case <-ticker.C:
			er, err := DrainEvents(ctx, client, baseURL, sessionID)
			if err != nil {
				// Keep polling; the session may be mid-save
				continue
			}
			events = append(events, er.Events...)
			if n := len(events); n > 0 && events[n-1].IsPrompt() {
				return events, false, nil
			}
			if !er.Active {
				// Output queued between the drain and the end of the session
				if last, err := DrainEvents(ctx, client, baseURL, sessionID); err == nil {
					events = append(events, last.Events...)
				}
				return events, true, nil
			}
		}
	}
}
