package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/storage"
)

type FighterHandler struct {
	log     *slog.Logger
	storage storage.FighterSource
}

func NewFighterHandler(log *slog.Logger, storage storage.FighterSource) *FighterHandler {
	return &FighterHandler{
		log:     log,
		storage: storage,
	}
}

func (h *FighterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if r.URL.Path == "/v1/fighters" || r.URL.Path == "/v1/fighters/" {
		h.listFighters(w, r)
		return
	}
	h.getFighter(w, r)
}

// listFighters lists all available fighter files with a short summary
func (h *FighterHandler) listFighters(w http.ResponseWriter, r *http.Request) {
	ids, err := h.storage.ListFighters(r.Context())
	if err != nil {
		h.log.Error("Failed to list fighters", "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to list fighters")
		return
	}

	// Initialize as empty slice instead of nil
	list := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		spec, err := h.storage.GetFighterSpec(r.Context(), id)
		if err != nil {
			h.log.Warn("Failed to load fighter spec", "error", err, "id", id)
			continue
		}
		list = append(list, map[string]any{
			"id":     spec.ID,
			"name":   spec.Name,
			"side":   spec.Side,
			"max_hp": spec.MaxHP,
			"mode":   spec.Mode.String(),
		})
	}
	writeJSON(w, h.log, http.StatusOK, list)
}

func (h *FighterHandler) getFighter(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/v1/fighters/"))
	if id == "" || strings.Contains(id, "/") || strings.Contains(id, "..") {
		writeError(w, h.log, http.StatusBadRequest, "Invalid fighter ID")
		return
	}

	spec, err := h.storage.GetFighterSpec(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.log, http.StatusNotFound, "Fighter not found")
			return
		}
		h.log.Error("Failed to load fighter spec", "error", err, "id", id)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to load fighter")
		return
	}

	// Build the fighter so the response carries the computed moves and HP
	f, err := actor.NewFighterFromSpec(spec)
	if err != nil {
		h.log.Error("Failed to build fighter from spec", "error", err, "id", id)
		writeError(w, h.log, http.StatusUnprocessableEntity, "Failed to build fighter")
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]any{
		"fighter": f,
		"moves":   f.Moves(),
	})
}
