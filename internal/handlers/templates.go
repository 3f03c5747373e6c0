package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/pkg/storage"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
)

// TemplateHandler serves strategy template CRUD.
//
//	GET    /v1/templates          list
//	POST   /v1/templates          create
//	GET    /v1/templates/{id}     read by ID or name
//	PUT    /v1/templates/{id}     replace
//	DELETE /v1/templates/{id}     delete
type TemplateHandler struct {
	store storage.TemplateStore
	log   *slog.Logger
}

func NewTemplateHandler(store storage.TemplateStore, log *slog.Logger) *TemplateHandler {
	return &TemplateHandler{store: store, log: log}
}

func (h *TemplateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ref := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/templates"), "/")

	switch {
	case ref == "" && r.Method == http.MethodGet:
		h.list(w, r)
	case ref == "" && r.Method == http.MethodPost:
		h.create(w, r)
	case ref != "" && r.Method == http.MethodGet:
		h.get(w, r, ref)
	case ref != "" && r.Method == http.MethodPut:
		h.update(w, r, ref)
	case ref != "" && r.Method == http.MethodDelete:
		h.delete(w, r, ref)
	default:
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *TemplateHandler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListTemplates(r.Context())
	if err != nil {
		h.storeError(w, err, "list")
		return
	}
	if list == nil {
		list = []*strategy.Template{}
	}
	writeJSON(w, h.log, http.StatusOK, list)
}

func (h *TemplateHandler) create(w http.ResponseWriter, r *http.Request) {
	tmpl, ok := h.decode(w, r)
	if !ok {
		return
	}
	tmpl.ID = uuid.Nil
	if err := h.store.CreateTemplate(r.Context(), tmpl); err != nil {
		h.storeError(w, err, "create")
		return
	}
	h.log.Info("Template created", "template_id", tmpl.ID, "name", tmpl.Name)
	writeJSON(w, h.log, http.StatusCreated, tmpl)
}

// get accepts a UUID or a case-insensitive name.
func (h *TemplateHandler) get(w http.ResponseWriter, r *http.Request, ref string) {
	var (
		tmpl *strategy.Template
		err  error
	)
	if id, perr := uuid.Parse(ref); perr == nil {
		tmpl, err = h.store.GetTemplate(r.Context(), id)
	} else {
		tmpl, err = h.store.GetTemplateByName(r.Context(), ref)
	}
	if err != nil {
		h.storeError(w, err, "get")
		return
	}
	writeJSON(w, h.log, http.StatusOK, tmpl)
}

func (h *TemplateHandler) update(w http.ResponseWriter, r *http.Request, ref string) {
	id, err := uuid.Parse(ref)
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, "Invalid template ID format.")
		return
	}
	tmpl, ok := h.decode(w, r)
	if !ok {
		return
	}
	tmpl.ID = id
	if err := h.store.UpdateTemplate(r.Context(), tmpl); err != nil {
		h.storeError(w, err, "update")
		return
	}
	writeJSON(w, h.log, http.StatusOK, tmpl)
}

func (h *TemplateHandler) delete(w http.ResponseWriter, r *http.Request, ref string) {
	id, err := uuid.Parse(ref)
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, "Invalid template ID format.")
		return
	}
	if err := h.store.DeleteTemplate(r.Context(), id); err != nil {
		h.storeError(w, err, "delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TemplateHandler) decode(w http.ResponseWriter, r *http.Request) (*strategy.Template, bool) {
	var tmpl strategy.Template
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&tmpl); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "Invalid template body: "+err.Error())
		return nil, false
	}
	if strings.TrimSpace(tmpl.Name) == "" {
		writeError(w, h.log, http.StatusBadRequest, "Template name is required.")
		return nil, false
	}
	if err := tmpl.Validate(); err != nil {
		writeError(w, h.log, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	}
	return &tmpl, true
}

func (h *TemplateHandler) storeError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, h.log, http.StatusNotFound, "Template not found")
	case errors.Is(err, storage.ErrDuplicateName):
		writeError(w, h.log, http.StatusConflict, "A template with that name already exists")
	default:
		h.log.Error("Template store failed", "op", op, "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Template store failed")
	}
}
