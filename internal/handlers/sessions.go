package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jwebster45206/talk-engine/internal/gamedata"
	"github.com/jwebster45206/talk-engine/internal/session"
	"github.com/jwebster45206/talk-engine/pkg/conversation"
	"github.com/jwebster45206/talk-engine/pkg/storage"
	"github.com/jwebster45206/talk-engine/pkg/talk"
)

const cancelTimeout = 5 * time.Second

// TranscriptReader reads undelivered session output.
type TranscriptReader interface {
	Dequeue(ctx context.Context, sessionID uuid.UUID) ([]conversation.Event, error)
	Peek(ctx context.Context, sessionID uuid.UUID, limit int) ([]conversation.Event, error)
}

type SessionHandler struct {
	manager    *session.Manager
	storage    storage.Storage
	transcript TranscriptReader
	logger     *slog.Logger
}

func NewSessionHandler(manager *session.Manager, storage storage.Storage, transcript TranscriptReader, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		manager:    manager,
		storage:    storage,
		transcript: transcript,
		logger:     logger,
	}
}

// Routes:
// POST   /v1/sessions                 - Start talking to an NPC
// GET    /v1/sessions/{id}            - Session status
// POST   /v1/sessions/{id}/responses  - Answer the pending prompt
// GET    /v1/sessions/{id}/events     - Drain undelivered output (?peek=N to read without removing)
// DELETE /v1/sessions/{id}            - End the conversation
func (h *SessionHandler) Routes(r chi.Router) {
	r.Post("/", h.handleStart)
	r.Get("/{id}", h.handleStatus)
	r.Post("/{id}/responses", h.handleRespond)
	r.Get("/{id}/events", h.handleEvents)
	r.Delete("/{id}", h.handleCancel)
}

// StartSessionRequest defines the request body for starting a conversation
type StartSessionRequest struct {
	GameID     *uuid.UUID `json:"game_id,omitempty"`
	AvatarName string     `json:"avatar_name,omitempty" validate:"max=32"`
	Master     string     `json:"master" validate:"required,master"`
	NPC        *int       `json:"npc" validate:"required,gte=0"`
}

type RespondRequest struct {
	Text string `json:"text" validate:"max=256"`
}

type SessionResponse struct {
	ID        uuid.UUID  `json:"id"`
	GameID    uuid.UUID  `json:"game_id"`
	Master    string     `json:"master"`
	NPC       int        `json:"npc"`
	NPCName   string     `json:"npc_name,omitempty"`
	Active    bool       `json:"active"`
	Waiting   bool       `json:"waiting"`
	Outcome   string     `json:"outcome,omitempty"`
	Error     string     `json:"error,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

type EventsResponse struct {
	SessionID uuid.UUID            `json:"session_id"`
	Events    []conversation.Event `json:"events"`
	Active    bool                 `json:"active"`
}

func liveResponse(s *session.Session) SessionResponse {
	resp := SessionResponse{
		ID:        s.ID,
		GameID:    s.GameID,
		Master:    s.Master.String(),
		NPC:       s.NPC,
		NPCName:   s.NPCName,
		Active:    !s.Ended(),
		Outcome:   string(s.Outcome()),
		StartedAt: s.StartedAt,
	}
	if resp.Active {
		resp.Waiting = s.Waiting()
	}
	if err := s.Err(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func recordResponse(rec *storage.SessionRecord) SessionResponse {
	return SessionResponse{
		ID:        rec.ID,
		GameID:    rec.GameID,
		Master:    rec.Master,
		NPC:       rec.NPC,
		NPCName:   rec.NPCName,
		Active:    !rec.Ended,
		StartedAt: rec.StartedAt,
		EndedAt:   rec.EndedAt,
	}
}

func startStatus(err error) (int, string) {
	switch {
	case errors.Is(err, gamedata.ErrNPCNotFound):
		return http.StatusNotFound, "NPC not found"
	case errors.Is(err, session.ErrGameNotFound):
		return http.StatusNotFound, "Game not found"
	case errors.Is(err, session.ErrGameBusy):
		return http.StatusConflict, "Game already has an active conversation"
	case isScriptError(err):
		return http.StatusUnprocessableEntity, err.Error()
	}
	return http.StatusInternalServerError, "Failed to start session"
}

// isScriptError reports whether err came from decoding or building a script.
func isScriptError(err error) bool {
	for _, target := range []error{
		talk.ErrUnknownCode,
		talk.ErrLabelOutOfRange,
		talk.ErrTooShort,
		talk.ErrMalformed,
		talk.ErrDuplicateLabel,
		talk.ErrLabelNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (h *SessionHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	details, err := decodeAndValidate(r, &req)
	if err != nil {
		h.logger.Warn("Invalid start session request", "error", err)
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Details: details})
		return
	}
	master, _ := gamedata.ParseMasterFile(req.Master)

	s, err := h.manager.Start(r.Context(), session.StartRequest{
		GameID:     req.GameID,
		AvatarName: req.AvatarName,
		Master:     master,
		NPC:        *req.NPC,
	})
	if err != nil {
		status, msg := startStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Failed to start session", "error", err, "master", req.Master, "npc", *req.NPC)
		} else {
			h.logger.Warn("Session not started", "error", err, "master", req.Master, "npc", *req.NPC)
		}
		writeError(w, h.logger, status, msg)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, liveResponse(s))
}

func (h *SessionHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, h.logger, "id")
	if !ok {
		return
	}

	if s, ok := h.manager.Get(id); ok {
		writeJSON(w, h.logger, http.StatusOK, liveResponse(s))
		return
	}

	rec, err := h.storage.LoadSession(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load session", "error", err, "id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if rec == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, recordResponse(rec))
}

func (h *SessionHandler) handleRespond(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, h.logger, "id")
	if !ok {
		return
	}
	var req RespondRequest
	details, err := decodeAndValidate(r, &req)
	if err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Details: details})
		return
	}

	err = h.manager.Submit(id, req.Text)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return
	case errors.Is(err, session.ErrSessionEnded):
		writeError(w, h.logger, http.StatusConflict, "Session has ended")
		return
	case err != nil:
		h.logger.Error("Failed to submit response", "error", err, "id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to submit response")
		return
	}

	h.logger.Debug("Response submitted", "id", id.String(), "text", req.Text)
	w.WriteHeader(http.StatusAccepted)
}

func (h *SessionHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, h.logger, "id")
	if !ok {
		return
	}

	var (
		evs []conversation.Event
		err error
	)
	if raw := r.URL.Query().Get("peek"); raw != "" {
		limit, convErr := strconv.Atoi(raw)
		if convErr != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid peek value: "+raw)
			return
		}
		evs, err = h.transcript.Peek(r.Context(), id, limit)
	} else {
		evs, err = h.transcript.Dequeue(r.Context(), id)
	}
	if err != nil {
		h.logger.Error("Failed to read transcript", "error", err, "id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to read session events")
		return
	}
	if evs == nil {
		evs = []conversation.Event{}
	}

	s, live := h.manager.Get(id)
	writeJSON(w, h.logger, http.StatusOK, EventsResponse{
		SessionID: id,
		Events:    evs,
		Active:    live && !s.Ended(),
	})
}

func (h *SessionHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, h.logger, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cancelTimeout)
	defer cancel()
	err := h.manager.Cancel(ctx, id)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return
	case err != nil:
		h.logger.Error("Failed to cancel session", "error", err, "id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to cancel session")
		return
	}
	h.logger.Info("Session cancelled", "id", id.String())
	w.WriteHeader(http.StatusNoContent)
}
