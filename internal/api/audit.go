package api

import (
	"net/http"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/store"
)

type AuditHandler struct {
	store *store.PostgresStore
}

func NewAuditHandler(s *store.PostgresStore) *AuditHandler {
	return &AuditHandler{store: s}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := organizationID(r.Context())

	entries, err := h.store.ListAuditEntries(r.Context(), orgID, queryLimit(r, 100))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}

	respondJSON(w, http.StatusOK, entries)
}
