package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certis/internal/claim"
	"certis/internal/platform/middleware"
	"certis/pkg/httputil"
)

type submitClaimRequest struct {
	CredentialTypeID string         `json:"credential_type_id"`
	Payload          map[string]any `json:"payload"`
}

type claimResponse struct {
	ID               string         `json:"id"`
	CredentialTypeID string         `json:"credential_type_id"`
	Owner            string         `json:"owner"`
	Payload          map[string]any `json:"payload"`
	CreatedAt        time.Time      `json:"created_at"`
}

// HandleSubmitClaim validates and stores a claim for the authenticated principal.
func (h *Handler) HandleSubmitClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[submitClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.claims.Submit(ctx, middleware.GetPrincipal(ctx), req.CredentialTypeID, req.Payload)
	if err != nil {
		h.logger.WarnContext(ctx, "submit claim failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toClaimResponse(c))
}

// HandleGetClaim returns a claim by ID.
func (h *Handler) HandleGetClaim(w http.ResponseWriter, r *http.Request) {
	c, err := h.claims.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toClaimResponse(c))
}

func toClaimResponse(c *claim.Claim) *claimResponse {
	return &claimResponse{
		ID:               c.ID,
		CredentialTypeID: c.CredentialTypeID,
		Owner:            c.Owner,
		Payload:          c.Payload,
		CreatedAt:        c.CreatedAt,
	}
}
