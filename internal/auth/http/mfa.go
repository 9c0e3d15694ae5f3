package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kindergrid/kindergrid/internal/auth/service"
	"github.com/kindergrid/kindergrid/pkg/authsdk"
	"github.com/kindergrid/kindergrid/pkg/httpx"
	"github.com/kindergrid/kindergrid/pkg/slogx"
)

// MFAHandler drives guardian TOTP enrolment. Sits behind AuthnMiddleware +
// RequireGuardian.
type MFAHandler struct {
	MFAService *service.MFAService
}

// HandleEnroll godoc
//
//	@Summary		Enrol TOTP
//	@Description	Two-step enrolment: the first call (no pending_secret) returns a fresh secret
//	@Description	and provisioning URL; the second call carries the secret back with a code from
//	@Description	the authenticator app, and persists it on success. Once enrolled, every login
//	@Description	requires a code.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.MFAEnrollRequest	true	"enrolment step"
//	@Success		200		{object}	authsdk.MFAEnrollResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"token denial code"
//	@Failure		403		{object}	authsdk.ErrorResponse	"invalid_principal_chain"
//	@Security		BearerAuth
//	@Router			/v1/mfa/totp/enroll [post].
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.MFAEnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	guardianID := httpx.SubjectFromContext(ctx)

	enrol, err := h.MFAService.EnrollTOTP(ctx, guardianID, req.Code, req.PendingSecret)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTOTPCode),
			errors.Is(err, service.ErrMFAAlreadyEnabled):
			authsdk.ErrInvalidRequest.WriteError(w)
		default:
			log.Error("TOTP enrolment failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MFAEnrollResponse{
		Secret:  enrol.Secret,
		URL:     enrol.URL,
		Issuer:  enrol.Issuer,
		Account: enrol.Account,
	})
}
