package http

import (
	"encoding/json"
	"net/http"

	"github.com/kindergrid/kindergrid/internal/auth/service"
	"github.com/kindergrid/kindergrid/pkg/authsdk"
	"github.com/kindergrid/kindergrid/pkg/httpx"
)

// ValidateHandler serves POST /v1/validate, the introspection endpoint for
// out-of-band collaborators. It always answers 200: the verdict lives in the
// body, and an inactive token is a result, not an HTTP failure.
type ValidateHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Validate a token
//	@Description	Runs the full verification pipeline on the supplied token and reports the verdict.
//	@Description	Inactive tokens carry a stable denial code; claims are only returned for active tokens.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ValidateRequest	true	"token to introspect"
//	@Success		200		{object}	authsdk.ValidateResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/v1/validate [post].
func (h *ValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	httpx.NoCache(w)

	verdict := h.TokenService.Validate(ctx, req.Token)
	if !verdict.Active {
		httpx.WriteJSON(w, http.StatusOK, authsdk.ValidateResponse{
			Active: false,
			Code:   verdict.Code,
		})
		return
	}

	out := authsdk.ValidateResponse{
		Active:              true,
		Subject:             verdict.Claims.Subject,
		Kind:                verdict.Claims.Kind,
		GuardianID:          verdict.Claims.GuardianID,
		DisplayName:         verdict.Claims.DisplayName,
		SessionLimitMinutes: verdict.Claims.SessionLimit,
	}
	if verdict.Claims.ExpiresAt != nil {
		exp := verdict.Claims.ExpiresAt.Time
		out.ExpiresAt = &exp
	}

	httpx.WriteJSON(w, http.StatusOK, out)
}
