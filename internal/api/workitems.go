package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/audit"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/store"
)

type WorkItemHandler struct {
	store    *store.PostgresStore
	recorder *audit.Recorder
}

func NewWorkItemHandler(s *store.PostgresStore, recorder *audit.Recorder) *WorkItemHandler {
	return &WorkItemHandler{store: s, recorder: recorder}
}

func (h *WorkItemHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := organizationID(r.Context())
	status := r.URL.Query().Get("status")

	items, err := h.store.ListWorkItems(r.Context(), orgID, status, queryLimit(r, 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list work items")
		return
	}

	respondJSON(w, http.StatusOK, items)
}

func (h *WorkItemHandler) Snooze(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, domain.WorkItemStatusSnoozed, "work_item.snoozed")
}

func (h *WorkItemHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, domain.WorkItemStatusDone, "work_item.completed")
}

func (h *WorkItemHandler) setStatus(w http.ResponseWriter, r *http.Request, status, auditAction string) {
	orgID := organizationID(r.Context())
	id := chi.URLParam(r, "id")

	item, err := h.store.SetWorkItemStatus(r.Context(), orgID, id, status)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update work item")
		return
	}
	if item == nil {
		respondError(w, http.StatusNotFound, "work item not found")
		return
	}

	h.recorder.Record(r.Context(), domain.AuditEntry{
		OrganizationID: orgID,
		Actor:          r.Header.Get("X-Actor-ID"),
		Action:         auditAction,
		EntityType:     "work_item",
		EntityID:       item.ID,
		Metadata:       map[string]any{"dedupe_key": item.DedupeKey},
	})

	respondJSON(w, http.StatusOK, item)
}
