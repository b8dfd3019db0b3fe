package api

import (
	"net/http"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/scanner"
)

// ScanHandler exposes the periodic scanners to the external scheduler.
// Scans are idempotent, so a retried or overlapping trigger is harmless.
type ScanHandler struct {
	scanner *scanner.Scanner
}

func NewScanHandler(s *scanner.Scanner) *ScanHandler {
	return &ScanHandler{scanner: s}
}

func (h *ScanHandler) MembershipRenewals(w http.ResponseWriter, r *http.Request) {
	orgID := organizationID(r.Context())

	result, err := h.scanner.ScanMembershipRenewals(r.Context(), orgID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "membership renewal scan failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *ScanHandler) GrantReports(w http.ResponseWriter, r *http.Request) {
	orgID := organizationID(r.Context())

	result, err := h.scanner.ScanGrantReports(r.Context(), orgID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "grant report scan failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
