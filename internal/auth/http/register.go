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

// RegisterHandler serves POST /v1/register, creating a guardian account.
type RegisterHandler struct {
	AccountService *service.AccountService
}

// ServeHTTP godoc
//
//	@Summary		Register a guardian account
//	@Description	Creates a guardian account with a username, display name, and password.
//	@Description	Guardians create dependent profiles and mint dependent tokens.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"registration details"
//	@Success		201		{object}	authsdk.RegisterResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		409		{object}	authsdk.ErrorResponse	"username_taken"
//	@Router			/v1/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	g, err := h.AccountService.RegisterGuardian(ctx, req.Username, req.DisplayName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			authsdk.ErrInvalidRequest.WriteError(w)
		case errors.Is(err, service.ErrUsernameTaken):
			authsdk.ErrUsernameTaken.WriteError(w)
		default:
			log.Error("guardian registration failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		GuardianID:  g.ID,
		Username:    g.Username,
		DisplayName: g.DisplayName,
	})
}
