package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/audit"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/condition"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/engine"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/store"
)

type RuleHandler struct {
	store    *store.PostgresStore
	cache    *store.CachedRuleSource
	recorder *audit.Recorder
}

func NewRuleHandler(s *store.PostgresStore, cache *store.CachedRuleSource, recorder *audit.Recorder) *RuleHandler {
	return &RuleHandler{store: s, cache: cache, recorder: recorder}
}

func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID := organizationID(r.Context())

	var req domain.CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	for _, eventName := range req.TriggerEvents {
		if !engine.ValidEventName(eventName) {
			respondError(w, http.StatusBadRequest, "invalid trigger event name: "+eventName)
			return
		}
	}
	// Reject unparseable filters at write time so the matcher never has to.
	if _, err := condition.Parse(req.Filters); err != nil {
		respondError(w, http.StatusBadRequest, "invalid filters: "+err.Error())
		return
	}

	rule, err := h.store.CreateRule(r.Context(), orgID, req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create rule")
		return
	}

	h.cache.Invalidate(r.Context(), orgID)
	h.recorder.Record(r.Context(), domain.AuditEntry{
		OrganizationID: orgID,
		Actor:          r.Header.Get("X-Actor-ID"),
		Action:         "rule.created",
		EntityType:     "automation_rule",
		EntityID:       rule.ID,
		Metadata:       map[string]any{"name": rule.Name, "trigger_events": rule.TriggerEvents},
	})

	respondJSON(w, http.StatusCreated, rule)
}

func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := organizationID(r.Context())

	rules, err := h.store.ListRules(r.Context(), orgID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}

	respondJSON(w, http.StatusOK, rules)
}

func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID := organizationID(r.Context())
	id := chi.URLParam(r, "id")

	rule, err := h.store.GetRule(r.Context(), orgID, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get rule")
		return
	}
	if rule == nil {
		respondError(w, http.StatusNotFound, "rule not found")
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	orgID := organizationID(r.Context())
	id := chi.URLParam(r, "id")

	var req domain.UpdateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TriggerEvents != nil {
		for _, eventName := range *req.TriggerEvents {
			if !engine.ValidEventName(eventName) {
				respondError(w, http.StatusBadRequest, "invalid trigger event name: "+eventName)
				return
			}
		}
	}
	if len(req.Filters) > 0 {
		if _, err := condition.Parse(req.Filters); err != nil {
			respondError(w, http.StatusBadRequest, "invalid filters: "+err.Error())
			return
		}
	}

	rule, err := h.store.UpdateRule(r.Context(), orgID, id, req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update rule")
		return
	}
	if rule == nil {
		respondError(w, http.StatusNotFound, "rule not found")
		return
	}

	h.cache.Invalidate(r.Context(), orgID)
	h.recorder.Record(r.Context(), domain.AuditEntry{
		OrganizationID: orgID,
		Actor:          r.Header.Get("X-Actor-ID"),
		Action:         "rule.updated",
		EntityType:     "automation_rule",
		EntityID:       rule.ID,
	})

	respondJSON(w, http.StatusOK, rule)
}
