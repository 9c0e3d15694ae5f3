package http

import (
	"net/http"

	"github.com/kindergrid/kindergrid/internal/auth/service"
	"github.com/kindergrid/kindergrid/pkg/authsdk"
	"github.com/kindergrid/kindergrid/pkg/httpx"
	"github.com/kindergrid/kindergrid/pkg/slogx"
)

// LogoutHandler serves POST /v1/logout. Revocation is keyed by the token's
// own identifier, so the bearer token IS the request body. The operation is
// idempotent and succeeds quietly for revoked and expired tokens.
type LogoutHandler struct {
	SessionService *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		Log out
//	@Description	Revokes the presented token before its natural expiry. Idempotent:
//	@Description	a second logout, or logout of an expired token, succeeds without effect.
//	@Tags			Sessions
//	@Produce		json
//	@Success		204	"token revoked (or already dead)"
//	@Failure		401	{object}	authsdk.ErrorResponse	"malformed_token"
//	@Security		BearerAuth
//	@Router			/v1/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token := bearerToken(r)
	if token == "" {
		authsdk.DenialError(authsdk.ErrorCodeMalformedToken).WriteError(w)
		return
	}

	if err := h.SessionService.Logout(ctx, token); err != nil {
		if isVerifyError(err) {
			authsdk.DenialError(service.DenialCode(err)).WriteError(w)
			return
		}
		log.Error("logout failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
