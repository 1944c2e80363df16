package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jwebster45206/talk-engine/pkg/state"
	"github.com/jwebster45206/talk-engine/pkg/storage"
)

type GameStateHandler struct {
	storage       storage.Storage
	defaultAvatar string
	logger        *slog.Logger
}

func NewGameStateHandler(storage storage.Storage, defaultAvatar string, logger *slog.Logger) *GameStateHandler {
	return &GameStateHandler{
		storage:       storage,
		defaultAvatar: defaultAvatar,
		logger:        logger,
	}
}

// Routes:
// POST   /v1/games       - Create a new game
// GET    /v1/games/{id}  - Read a game by ID
// DELETE /v1/games/{id}  - Delete a game by ID
func (h *GameStateHandler) Routes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleRead)
	r.Delete("/{id}", h.handleDelete)
}

// CreateGameRequest defines the request body for creating a new game
type CreateGameRequest struct {
	AvatarName string `json:"avatar_name,omitempty" validate:"max=32"`
}

func (h *GameStateHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if r.ContentLength != 0 {
		details, err := decodeAndValidate(r, &req)
		if err != nil {
			h.logger.Warn("Invalid create game request", "error", err)
			writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Details: details})
			return
		}
	}

	name := strings.TrimSpace(req.AvatarName)
	if name == "" {
		name = h.defaultAvatar
	}
	gs := state.NewGameState(name)

	if err := h.storage.SaveGameState(r.Context(), gs.ID(), gs); err != nil {
		h.logger.Error("Failed to save new game state", "error", err, "id", gs.ID().String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create game")
		return
	}

	h.logger.Debug("Game created successfully", "id", gs.ID().String(), "avatar", name)
	writeJSON(w, h.logger, http.StatusCreated, gs)
}

func (h *GameStateHandler) handleRead(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, h.logger, "id")
	if !ok {
		return
	}

	gs, err := h.storage.LoadGameState(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load game state", "error", err, "id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load game")
		return
	}
	if gs == nil {
		h.logger.Warn("Game state not found", "id", id.String())
		writeError(w, h.logger, http.StatusNotFound, "Game not found")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, gs)
}

func (h *GameStateHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, h.logger, "id")
	if !ok {
		return
	}

	if err := h.storage.DeleteGameState(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete game state", "error", err, "id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete game")
		return
	}
	h.logger.Debug("Game deleted successfully", "id", id.String())
	w.WriteHeader(http.StatusNoContent)
}
