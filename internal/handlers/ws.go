package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jwebster45206/talk-engine/internal/session"
	"github.com/jwebster45206/talk-engine/pkg/conversation"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Socket message types.
const (
	wsConnected = "connected"
	wsOutput    = "output"
	wsEnded     = "ended"
	wsError     = "error"
)

// WSMessage is sent from server to client.
type WSMessage struct {
	Type    string              `json:"type"`
	Event   *conversation.Event `json:"event,omitempty"`
	Outcome string              `json:"outcome,omitempty"`
	Error   string              `json:"error,omitempty"`
	Waiting bool                `json:"waiting,omitempty"`
}

// WSInput is a player answer sent from client to server.
type WSInput struct {
	Text string `json:"text"`
}

// WebSocketHandler plays a live session over a websocket: output is pushed
// as it is produced and text frames answer prompts.
type WebSocketHandler struct {
	manager *session.Manager
	logger  *slog.Logger
}

func NewWebSocketHandler(manager *session.Manager, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{manager: manager, logger: logger}
}

// ServeHTTP handles GET /v1/sessions/{id}/ws.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, h.logger, "id")
	if !ok {
		return
	}
	s, ok := h.manager.Get(id)
	if !ok {
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the response.
		h.logger.Error("Failed to upgrade connection", "error", err, "session_id", id.String())
		return
	}
	log := h.logger.With("session_id", id.String(), "remote_addr", r.RemoteAddr)
	log.Info("WebSocket connection established")

	events, unsubscribe := s.Subscribe()
	quit := make(chan struct{})
	go h.readPump(conn, s, quit, unsubscribe, log)
	h.writePump(conn, s, events, quit, log)
}

// readPump submits each text frame as an answer. It returns when the
// client goes away.
func (h *WebSocketHandler) readPump(conn *websocket.Conn, s *session.Session, quit chan<- struct{}, unsubscribe func(), log *slog.Logger) {
	defer func() {
		close(quit)
		unsubscribe()
		_ = conn.Close()
		log.Debug("readPump finished")
	}()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("WebSocket read error", "error", err)
			} else {
				log.Info("WebSocket connection closed")
			}
			return
		}
		var in WSInput
		if err := json.Unmarshal(message, &in); err != nil {
			// Bare text frames are accepted as the answer.
			in.Text = string(message)
		}
		if err := s.Submit(in.Text); err != nil {
			log.Debug("Dropped answer for ended session", "error", err)
		}
	}
}

func (h *WebSocketHandler) writePump(conn *websocket.Conn, s *session.Session, events <-chan conversation.Event, quit <-chan struct{}, log *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		log.Debug("writePump finished")
	}()

	if !h.write(conn, WSMessage{Type: wsConnected, Waiting: s.Waiting()}, log) {
		return
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Subscription closes when the session ends or the reader quits.
				select {
				case <-s.Done():
				case <-quit:
					return
				}
				msg := WSMessage{Type: wsEnded, Outcome: string(s.Outcome())}
				if err := s.Err(); err != nil {
					msg.Error = err.Error()
				}
				h.write(conn, msg, log)
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(s.Outcome())))
				return
			}
			if !h.write(conn, WSMessage{Type: wsOutput, Event: &ev}, log) {
				return
			}

		case <-quit:
			return

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("Ping failed", "error", err)
				return
			}
		}
	}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, msg WSMessage, log *slog.Logger) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		log.Warn("Failed to write websocket message", "type", msg.Type, "error", err)
		return false
	}
	return true
}
