package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/combat-engine/pkg/queue"
	"github.com/redis/go-redis/v9"
)

// RequestQueue accepts requests for the pulse worker.
type RequestQueue interface {
	Enqueue(ctx context.Context, req *queue.IntentRequest) error
}

// QueuedPublisher announces accepted requests. Optional.
type QueuedPublisher interface {
	PublishRequestQueued(ctx context.Context, combatant, requestID, requestType string) error
}

type RequestResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// RequestHandler enqueues combat requests.
// POST /v1/requests
type RequestHandler struct {
	queue     RequestQueue
	publisher QueuedPublisher
	log       *slog.Logger
}

func NewRequestHandler(q RequestQueue, publisher QueuedPublisher, log *slog.Logger) *RequestHandler {
	return &RequestHandler{queue: q, publisher: publisher, log: log}
}

func (h *RequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	var req queue.IntentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(&req); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.log, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.queue.Enqueue(r.Context(), &req); err != nil {
		h.log.Error("Failed to enqueue request", "error", err, "combatant", req.Combatant)
		writeError(w, h.log, http.StatusServiceUnavailable, "Failed to enqueue request")
		return
	}
	h.log.Info("Request queued", "request_id", req.RequestID, "type", req.Type, "combatant", req.Combatant)

	if h.publisher != nil {
		if err := h.publisher.PublishRequestQueued(r.Context(), req.Combatant, req.RequestID, string(req.Type)); err != nil {
			h.log.Warn("Failed to publish queued event", "error", err)
		}
	}
	writeJSON(w, h.log, http.StatusAccepted, RequestResponse{RequestID: req.RequestID, Status: "queued"})
}

// StateHandler serves the latest engine snapshot written by the worker.
// GET /v1/state
type StateHandler struct {
	redisClient *redis.Client
	key         string
	log         *slog.Logger
}

func NewStateHandler(redisClient *redis.Client, key string, log *slog.Logger) *StateHandler {
	return &StateHandler{redisClient: redisClient, key: key, log: log}
}

func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	data, err := h.redisClient.Get(r.Context(), h.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			writeError(w, h.log, http.StatusNotFound, "No engine state published yet")
			return
		}
		h.log.Error("Failed to read engine state", "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to read engine state")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Error("Failed to write engine state", "error", err)
	}
}
