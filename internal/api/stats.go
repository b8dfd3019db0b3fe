package api

import (
	"net/http"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/store"
)

type StatsHandler struct {
	store *store.PostgresStore
}

func NewStatsHandler(s *store.PostgresStore) *StatsHandler {
	return &StatsHandler{store: s}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID := organizationID(r.Context())

	stats, err := h.store.GetAutomationStats(r.Context(), orgID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
