package http

import (
	"net/http"

	"github.com/kindergrid/kindergrid/internal/auth/service"
	"github.com/kindergrid/kindergrid/pkg/authsdk"
	"github.com/kindergrid/kindergrid/pkg/httpx"
	"github.com/kindergrid/kindergrid/pkg/slogx"
)

// ForceEndHandler serves POST /v1/sessions/force-end: a guardian revokes
// every live dependent token issued under them. The guardian's own token is
// never touched.
type ForceEndHandler struct {
	SessionService *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		Force-end dependent sessions
//	@Description	Revokes every live dependent token issued under the calling guardian,
//	@Description	with reason guardian_forced. Best-effort: sessions missing from the index
//	@Description	run out their limit naturally. Returns the number revoked.
//	@Tags			Sessions
//	@Produce		json
//	@Success		200	{object}	authsdk.ForceEndResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"token denial code"
//	@Failure		403	{object}	authsdk.ErrorResponse	"invalid_principal_chain"
//	@Security		BearerAuth
//	@Router			/v1/sessions/force-end [post].
func (h *ForceEndHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token := bearerToken(r)
	if token == "" {
		authsdk.DenialError(authsdk.ErrorCodeMalformedToken).WriteError(w)
		return
	}

	revoked, err := h.SessionService.ForceEndDependentSessions(ctx, token)
	if err != nil {
		writeIssueError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.ForceEndResponse{Revoked: revoked})
}
