package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kindergrid/kindergrid/internal/auth/domain"
	"github.com/kindergrid/kindergrid/internal/auth/service"
	"github.com/kindergrid/kindergrid/pkg/authsdk"
	"github.com/kindergrid/kindergrid/pkg/httpx"
	"github.com/kindergrid/kindergrid/pkg/slogx"
)

// DependentsHandler manages dependent profiles. Both routes sit behind
// AuthnMiddleware + RequireGuardian, so the context always carries verified
// guardian claims here.
type DependentsHandler struct {
	AccountService *service.AccountService
}

// HandleCreate godoc
//
//	@Summary		Create a dependent profile
//	@Description	Creates a dependent under the calling guardian with a declared age band.
//	@Description	The age band decides the session ceiling on every token later issued to this dependent.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateDependentRequest	true	"dependent profile"
//	@Success		201		{object}	authsdk.DependentResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"token denial code"
//	@Failure		403		{object}	authsdk.ErrorResponse	"invalid_principal_chain"
//	@Security		BearerAuth
//	@Router			/v1/dependents [post].
func (h *DependentsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.CreateDependentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	guardianID := httpx.SubjectFromContext(ctx)

	d, err := h.AccountService.CreateDependent(ctx, guardianID, req.Name, domain.AgeBand(req.AgeBand))
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			authsdk.ErrInvalidRequest.WriteError(w)
			return
		}
		log.Error("dependent creation failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.DependentResponse{
		ID:      d.ID,
		Name:    d.Name,
		AgeBand: string(d.AgeBand),
	})
}

// HandleList godoc
//
//	@Summary		List dependent profiles
//	@Description	Returns the calling guardian's dependent profiles.
//	@Tags			Accounts
//	@Produce		json
//	@Success		200	{object}	authsdk.ListDependentsResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"token denial code"
//	@Failure		403	{object}	authsdk.ErrorResponse	"invalid_principal_chain"
//	@Security		BearerAuth
//	@Router			/v1/dependents [get].
func (h *DependentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	guardianID := httpx.SubjectFromContext(ctx)

	deps, err := h.AccountService.ListDependents(ctx, guardianID)
	if err != nil {
		log.Error("dependent listing failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	out := authsdk.ListDependentsResponse{
		Dependents: make([]authsdk.DependentResponse, 0, len(deps)),
	}
	for _, d := range deps {
		out.Dependents = append(out.Dependents, authsdk.DependentResponse{
			ID:      d.ID,
			Name:    d.Name,
			AgeBand: string(d.AgeBand),
		})
	}

	httpx.WriteJSON(w, http.StatusOK, out)
}
