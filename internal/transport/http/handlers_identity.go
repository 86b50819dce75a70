package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"certis/internal/platform/middleware"
	"certis/internal/roles"
	dErrors "certis/pkg/domain-errors"
	"certis/pkg/httputil"
)

type assignRoleRequest struct {
	Role string `json:"role"`
}

// HandleAssignRole grants a role to an identity. Gated on identity management.
func (h *Handler) HandleAssignRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if err := roles.Authorize(middleware.GetPrincipal(ctx), roles.PermManageIdentities); err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeJSON[assignRoleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	did := chi.URLParam(r, "did")
	role := roles.Role(req.Role)
	if !role.Valid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown role"))
		return
	}

	if err := h.identities.AssignRole(ctx, did, role); err != nil {
		h.logger.WarnContext(ctx, "assign role failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "identity not found"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"did":  did,
		"role": string(role),
	})
}

// HandleDeactivateIdentity marks an identity inactive. Gated on identity management.
func (h *Handler) HandleDeactivateIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := roles.Authorize(middleware.GetPrincipal(ctx), roles.PermManageIdentities); err != nil {
		httputil.WriteError(w, err)
		return
	}

	did := chi.URLParam(r, "did")
	if err := h.identities.Deactivate(ctx, did); err != nil {
		h.logger.WarnContext(ctx, "deactivate identity failed", "error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "identity not found"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
