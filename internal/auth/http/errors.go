package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kindergrid/kindergrid/internal/auth/service"
	"github.com/kindergrid/kindergrid/pkg/authsdk"
	"github.com/kindergrid/kindergrid/pkg/jwtx"
	"github.com/kindergrid/kindergrid/pkg/verify"
)

// writeIssueError maps issuance and verification failures to their stable
// external errors. Whether the dependent exists at all is not leaked: an
// unknown dependent answers exactly like someone else's dependent.
func writeIssueError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPrincipalChain):
		authsdk.ErrInvalidPrincipalChain.WriteError(w)
	case errors.Is(err, service.ErrGuardianNotAuthorized),
		errors.Is(err, service.ErrUnknownDependent):
		authsdk.ErrGuardianNotAuthorized.WriteError(w)
	case isVerifyError(err):
		authsdk.DenialError(service.DenialCode(err)).WriteError(w)
	default:
		log.Error("token operation failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

func isVerifyError(err error) bool {
	return errors.Is(err, jwtx.ErrMalformed) ||
		errors.Is(err, jwtx.ErrBadSignature) ||
		errors.Is(err, jwtx.ErrExpired) ||
		errors.Is(err, jwtx.ErrNotYetValid) ||
		errors.Is(err, jwtx.ErrIssuer) ||
		errors.Is(err, jwtx.ErrInvalidClaim) ||
		errors.Is(err, verify.ErrRevoked)
}
