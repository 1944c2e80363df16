package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jwebster45206/talk-engine/internal/gamedata"
	"github.com/jwebster45206/talk-engine/pkg/talk"
)

// ScriptLibrary lists and builds NPC scripts.
type ScriptLibrary interface {
	NPCs(master gamedata.MasterFile) []int
	Script(master gamedata.MasterFile, npc int) (*talk.Script, error)
}

type NPCHandler struct {
	library ScriptLibrary
	logger  *slog.Logger
}

func NewNPCHandler(library ScriptLibrary, logger *slog.Logger) *NPCHandler {
	return &NPCHandler{library: library, logger: logger}
}

// Routes:
// GET /v1/npcs/{master}        - List the NPCs in a master file
// GET /v1/npcs/{master}/{npc}  - Describe one NPC's script
func (h *NPCHandler) Routes(r chi.Router) {
	r.Get("/{master}", h.handleList)
	r.Get("/{master}/{npc}", h.handleScript)
}

type NPCSummary struct {
	NPC   int    `json:"npc"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error,omitempty"`
}

type NPCListResponse struct {
	Master string       `json:"master"`
	NPCs   []NPCSummary `json:"npcs"`
}

type LabelSummary struct {
	ID       int      `json:"id"`
	Initial  string   `json:"initial"`
	Keywords []string `json:"keywords,omitempty"`
}

type ScriptResponse struct {
	Master      string         `json:"master"`
	NPC         int            `json:"npc"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Greeting    string         `json:"greeting"`
	Job         string         `json:"job"`
	Bye         string         `json:"bye"`
	Keywords    []string       `json:"keywords"`
	Labels      []LabelSummary `json:"labels,omitempty"`
	Lines       int            `json:"lines"`
}

func (h *NPCHandler) masterParam(w http.ResponseWriter, r *http.Request) (gamedata.MasterFile, bool) {
	raw := chi.URLParam(r, "master")
	master, err := gamedata.ParseMasterFile(raw)
	if err != nil {
		h.logger.Warn("Unknown master file", "master", raw)
		writeError(w, h.logger, http.StatusNotFound, "Unknown master file: "+raw)
		return 0, false
	}
	return master, true
}

func (h *NPCHandler) handleList(w http.ResponseWriter, r *http.Request) {
	master, ok := h.masterParam(w, r)
	if !ok {
		return
	}

	resp := NPCListResponse{Master: master.String(), NPCs: []NPCSummary{}}
	for _, npc := range h.library.NPCs(master) {
		summary := NPCSummary{NPC: npc}
		script, err := h.library.Script(master, npc)
		if err != nil {
			summary.Error = err.Error()
		} else {
			summary.Name = script.Name()
		}
		resp.NPCs = append(resp.NPCs, summary)
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *NPCHandler) handleScript(w http.ResponseWriter, r *http.Request) {
	master, ok := h.masterParam(w, r)
	if !ok {
		return
	}
	npc, ok := intParam(w, r, h.logger, "npc")
	if !ok {
		return
	}

	script, err := h.library.Script(master, npc)
	switch {
	case errors.Is(err, gamedata.ErrNPCNotFound):
		writeError(w, h.logger, http.StatusNotFound, "NPC not found")
		return
	case err != nil:
		h.logger.Warn("Script failed to build", "master", master.String(), "npc", npc, "error", err)
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, h.logger, http.StatusOK, describeScript(master, npc, script))
}

func describeScript(master gamedata.MasterFile, npc int, s *talk.Script) ScriptResponse {
	resp := ScriptResponse{
		Master:      master.String(),
		NPC:         npc,
		Name:        s.Name(),
		Description: s.Slot(talk.SlotDescription).String(),
		Greeting:    s.Slot(talk.SlotGreeting).String(),
		Job:         s.Slot(talk.SlotJob).String(),
		Bye:         s.Slot(talk.SlotBye).String(),
		Keywords:    s.Questions().Keywords(),
		Lines:       s.Len(),
	}
	for _, l := range s.Labels() {
		summary := LabelSummary{ID: l.ID, Initial: l.Initial.String()}
		if l.Questions != nil {
			summary.Keywords = l.Questions.Keywords()
		}
		resp.Labels = append(resp.Labels, summary)
	}
	return resp
}
