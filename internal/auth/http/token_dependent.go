package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kindergrid/kindergrid/internal/auth/service"
	"github.com/kindergrid/kindergrid/pkg/authsdk"
	"github.com/kindergrid/kindergrid/pkg/httpx"
	"github.com/kindergrid/kindergrid/pkg/slogx"
)

// IssueDependentTokenHandler serves POST /v1/tokens/dependent. The raw
// bearer token goes to the service, which runs the full verification
// pipeline on it; the route carries no AuthnMiddleware so the revocation
// store is consulted exactly once per issuance.
type IssueDependentTokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Issue a dependent token
//	@Description	Mints a short-lived dependent token on behalf of the calling guardian.
//	@Description	The requested session limit is clamped to the dependent's age-band ceiling and never rejected;
//	@Description	the granted limit and matching expiry come back in the response.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.IssueDependentTokenRequest	true	"issuance request"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"token denial code"
//	@Failure		403		{object}	authsdk.ErrorResponse	"invalid_principal_chain, guardian_not_authorized"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Security		BearerAuth
//	@Router			/v1/tokens/dependent [post].
func (h *IssueDependentTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	guardianToken := bearerToken(r)
	if guardianToken == "" {
		authsdk.DenialError(authsdk.ErrorCodeMalformedToken).WriteError(w)
		return
	}

	var req authsdk.IssueDependentTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DependentID == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.TokenService.IssueDependentToken(ctx, guardianToken, req.DependentID, req.RequestedMinutes)
	if err != nil {
		writeIssueError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		Token:               res.Token,
		TokenID:             res.TokenID,
		ExpiresAt:           res.ExpiresAt,
		SessionLimitMinutes: res.SessionLimit,
	})
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
}
