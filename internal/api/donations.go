package api

import (
	"encoding/json"
	"net/http"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/audit"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/engine"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/store"
)

// DonationHandler is a concrete business producer: recording a donation
// emits "donation.created" so automation rules can react to it.
type DonationHandler struct {
	store    *store.PostgresStore
	emitter  Emitter
	recorder *audit.Recorder
}

func NewDonationHandler(s *store.PostgresStore, emitter Emitter, recorder *audit.Recorder) *DonationHandler {
	return &DonationHandler{store: s, emitter: emitter, recorder: recorder}
}

type createDonationResponse struct {
	Donation *domain.Donation   `json:"donation"`
	Emit     *engine.EmitResult `json:"emit,omitempty"`
	EmitErr  string             `json:"emit_error,omitempty"`
}

func (h *DonationHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID := organizationID(r.Context())

	var req domain.CreateDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DonorName == "" {
		respondError(w, http.StatusBadRequest, "donor_name is required")
		return
	}
	if req.AmountCents <= 0 {
		respondError(w, http.StatusBadRequest, "amount_cents must be positive")
		return
	}

	donation, err := h.store.InsertDonation(r.Context(), orgID, req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to record donation")
		return
	}

	h.recorder.Record(r.Context(), domain.AuditEntry{
		OrganizationID: orgID,
		Actor:          r.Header.Get("X-Actor-ID"),
		Action:         "donation.recorded",
		EntityType:     "donation",
		EntityID:       donation.ID,
		Metadata:       map[string]any{"amount_cents": donation.AmountCents},
	})

	payload, err := json.Marshal(map[string]any{
		"donation_id":  donation.ID,
		"donor_name":   donation.DonorName,
		"email":        donation.Email,
		"amount_cents": donation.AmountCents,
		"currency":     donation.Currency,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode event payload")
		return
	}

	// The donation row is committed; an emit failure must not pretend the
	// gift was not recorded. It is reported alongside the donation so the
	// caller can re-emit rather than lose the automation silently.
	result, emitErr := h.emitter.Emit(r.Context(), orgID, "donation.created", payload, "donation", donation.ID)
	resp := createDonationResponse{Donation: donation, Emit: result}
	if emitErr != nil {
		resp.EmitErr = emitErr.Error()
	}

	respondJSON(w, http.StatusCreated, resp)
}
