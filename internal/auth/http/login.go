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

// LoginHandler serves POST /v1/login. A successful login mints a guardian
// token with the fixed long TTL. Failed logins never reveal whether the
// username or the password was at fault.
type LoginHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Guardian login
//	@Description	Authenticates a guardian by username and password and issues a guardian token.
//	@Description	When the guardian has TOTP enrolled, otp_code is required and the request fails with mfa_required without it.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"credentials"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials, mfa_required"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/v1/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.TokenService.Login(ctx, req.Username, req.Password, req.OTPCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			authsdk.ErrInvalidCredentials.WriteError(w)
		case errors.Is(err, service.ErrMFARequired):
			authsdk.ErrMFARequired.WriteError(w)
		default:
			log.Error("login failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		Token:     res.Token,
		TokenID:   res.TokenID,
		ExpiresAt: res.ExpiresAt,
	})
}
