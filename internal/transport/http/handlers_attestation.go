package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mr-tron/base58"

	"certis/internal/attestation"
	"certis/internal/platform/middleware"
	"certis/pkg/httputil"
)

type attestRequest struct {
	ClaimID string `json:"claim_id"`
}

type attestationResponse struct {
	ID               string     `json:"id"`
	ClaimID          string     `json:"claim_id"`
	Attester         string     `json:"attester"`
	CredentialTypeID string     `json:"credential_type_id"`
	Signature        string     `json:"signature"`
	Revoked          bool       `json:"revoked"`
	CreatedAt        time.Time  `json:"created_at"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
}

type verificationResponse struct {
	AttestationID string `json:"attestation_id"`
	ClaimID       string `json:"claim_id"`
	Attester      string `json:"attester"`
	Revoked       bool   `json:"revoked"`
	Valid         bool   `json:"valid"`
}

// HandleAttest records the authenticated principal attesting a claim.
func (h *Handler) HandleAttest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[attestRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	a, err := h.attestations.Attest(ctx, middleware.GetPrincipal(ctx), req.ClaimID)
	if err != nil {
		h.logger.WarnContext(ctx, "attest failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toAttestationResponse(a))
}

// HandleRevokeAttestation revokes an attestation.
func (h *Handler) HandleRevokeAttestation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	a, err := h.attestations.Revoke(ctx, middleware.GetPrincipal(ctx), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.WarnContext(ctx, "revoke attestation failed", "error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAttestationResponse(a))
}

// HandleVerifyAttestation returns the verification report for an attestation.
func (h *Handler) HandleVerifyAttestation(w http.ResponseWriter, r *http.Request) {
	report, err := h.attestations.Verify(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &verificationResponse{
		AttestationID: report.AttestationID,
		ClaimID:       report.ClaimID,
		Attester:      report.Attester,
		Revoked:       report.Revoked,
		Valid:         report.Valid,
	})
}

func toAttestationResponse(a *attestation.Attestation) *attestationResponse {
	return &attestationResponse{
		ID:               a.ID,
		ClaimID:          a.ClaimID,
		Attester:         a.Attester,
		CredentialTypeID: a.CredentialTypeID,
		Signature:        base58.Encode(a.Signature),
		Revoked:          a.Revoked,
		CreatedAt:        a.CreatedAt,
		RevokedAt:        a.RevokedAt,
	}
}
