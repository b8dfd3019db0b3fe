package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/engine"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/store"
)

// Emitter is the engine surface the handler needs; tests stub it.
type Emitter interface {
	Emit(ctx context.Context, orgID, eventName string, payload json.RawMessage, sourceType, sourceID string) (*engine.EmitResult, error)
}

type EventHandler struct {
	store   *store.PostgresStore
	emitter Emitter
	limiter *engine.EmitLimiter
	limit   int
}

func NewEventHandler(s *store.PostgresStore, emitter Emitter, limiter *engine.EmitLimiter, limit int) *EventHandler {
	return &EventHandler{store: s, emitter: emitter, limiter: limiter, limit: limit}
}

type createEventRequest struct {
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	SourceType string          `json:"source_type,omitempty"`
	SourceID   string          `json:"source_id,omitempty"`
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID := organizationID(r.Context())

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if h.limiter != nil && !h.limiter.Allow(r.Context(), orgID, h.limit) {
		respondError(w, http.StatusTooManyRequests, "event emission rate limit exceeded")
		return
	}

	result, err := h.emitter.Emit(r.Context(), orgID, req.Name, req.Payload, req.SourceType, req.SourceID)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidEventName), errors.Is(err, engine.ErrInvalidPayload):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "failed to emit event")
		}
		return
	}

	// Per-rule failures are partial success: the event is durably logged
	// and the surviving rules were queued, so this is still a 201.
	respondJSON(w, http.StatusCreated, result)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := organizationID(r.Context())
	eventName := r.URL.Query().Get("name")

	events, err := h.store.ListEvents(r.Context(), orgID, eventName, queryLimit(r, 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	respondJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID := organizationID(r.Context())
	id := chi.URLParam(r, "id")

	event, err := h.store.GetEvent(r.Context(), orgID, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if event == nil {
		respondError(w, http.StatusNotFound, "event not found")
		return
	}

	respondJSON(w, http.StatusOK, event)
}
