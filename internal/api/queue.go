package api

import (
	"net/http"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/store"
)

type QueueHandler struct {
	store *store.PostgresStore
}

func NewQueueHandler(s *store.PostgresStore) *QueueHandler {
	return &QueueHandler{store: s}
}

func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := organizationID(r.Context())
	status := r.URL.Query().Get("status")

	entries, err := h.store.ListQueueEntries(r.Context(), orgID, status, queryLimit(r, 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list queue entries")
		return
	}

	respondJSON(w, http.StatusOK, entries)
}
