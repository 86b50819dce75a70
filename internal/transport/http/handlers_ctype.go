package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certis/internal/ctype"
	"certis/internal/platform/middleware"
	"certis/pkg/httputil"
)

type registerCTypeRequest struct {
	Title   string            `json:"title"`
	Schema  map[string]string `json:"schema"`
	Network string            `json:"network"`
}

type ctypeResponse struct {
	ID          string            `json:"id"`
	ContentHash string            `json:"content_hash"`
	Title       string            `json:"title"`
	Schema      map[string]string `json:"schema"`
	Network     string            `json:"network,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// HandleRegisterCType registers a credential type. Registration is idempotent
// by schema content, so resubmitting an existing schema returns the original
// record.
func (h *Handler) HandleRegisterCType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[registerCTypeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	schema := make(ctype.Schema, len(req.Schema))
	for name, fieldType := range req.Schema {
		schema[name] = ctype.FieldType(fieldType)
	}

	ct, err := h.ctypes.Register(ctx, middleware.GetPrincipal(ctx), req.Title, schema, req.Network)
	if err != nil {
		h.logger.WarnContext(ctx, "register credential type failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toCTypeResponse(ct))
}

// HandleGetCType returns a credential type by ID.
func (h *Handler) HandleGetCType(w http.ResponseWriter, r *http.Request) {
	ct, err := h.ctypes.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCTypeResponse(ct))
}

func toCTypeResponse(ct *ctype.CredentialType) *ctypeResponse {
	schema := make(map[string]string, len(ct.Schema))
	for name, fieldType := range ct.Schema {
		schema[name] = string(fieldType)
	}
	return &ctypeResponse{
		ID:          ct.ID,
		ContentHash: ct.ContentHash,
		Title:       ct.Title,
		Schema:      schema,
		Network:     ct.Network,
		CreatedAt:   ct.CreatedAt,
	}
}
