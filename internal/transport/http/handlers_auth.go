package httptransport

import (
	"net/http"
	"time"

	"github.com/mr-tron/base58"

	"certis/internal/platform/middleware"
	dErrors "certis/pkg/domain-errors"
	"certis/pkg/httputil"
)

type challengeRequest struct {
	Identity string `json:"identity"`
}

type challengeResponse struct {
	Identity  string    `json:"identity"`
	Nonce     string    `json:"nonce"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type verifyRequest struct {
	Identity  string `json:"identity"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

type verifyResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	Identity  string    `json:"identity"`
	Roles     []string  `json:"roles"`
	Device    string    `json:"device,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleIssueChallenge issues a one-time challenge for the identity.
func (h *Handler) HandleIssueChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[challengeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ch, err := h.authn.IssueChallenge(ctx, req.Identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, &challengeResponse{
		Identity:  ch.Identity,
		Nonce:     ch.Nonce,
		IssuedAt:  ch.IssuedAt,
		ExpiresAt: ch.ExpiresAt,
	})
}

// HandleVerifyResponse verifies a signed challenge and establishes a session.
// The signature is base58, matching the encoding of published public keys.
func (h *Handler) HandleVerifyResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[verifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	signature, err := base58.Decode(req.Signature)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "signature must be base58"))
		return
	}

	session, bearer, err := h.authn.VerifyResponse(ctx, req.Identity, req.Nonce, signature, r.UserAgent())
	if err != nil {
		h.logger.WarnContext(ctx, "verify response failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	sessionRoles := make([]string, len(session.Roles))
	for i, role := range session.Roles {
		sessionRoles[i] = string(role)
	}
	httputil.WriteJSON(w, http.StatusOK, &verifyResponse{
		Token:     bearer,
		SessionID: session.ID,
		Identity:  session.Identity,
		Roles:     sessionRoles,
		Device:    session.Device,
		ExpiresAt: session.ExpiresAt,
	})
}
