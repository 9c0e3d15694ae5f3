package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kindergrid/kindergrid/pkg/jwtx"
	"github.com/kindergrid/kindergrid/pkg/slogx"
	"github.com/kindergrid/kindergrid/pkg/verify"
)

// HeaderCallerToken carries the original caller token across the gateway
// hop, separate from the service identity in Authorization. Downstream
// services re-verify this token themselves; the gateway's verdict is never
// trusted blindly.
const HeaderCallerToken = "X-Kindergrid-Caller-Token"

// VerifyErrorCode maps a verification failure to its stable external error
// code. These codes are part of the API contract; internal detail stays in
// the logs.
func VerifyErrorCode(err error) string {
	switch {
	case errors.Is(err, verify.ErrRevoked):
		return "revoked"
	case errors.Is(err, jwtx.ErrExpired):
		return "expired"
	case errors.Is(err, jwtx.ErrNotYetValid):
		return "clock_skew_exceeded"
	case errors.Is(err, jwtx.ErrBadSignature):
		return "bad_signature"
	default:
		return "malformed_token"
	}
}

// AuthnMiddleware verifies the bearer token in Authorization and injects the
// verified claims into the request context. Verification always runs the
// full pipeline, revocation lookup included.
func AuthnMiddleware(v *verify.Verifier) Middleware {
	return bearerMiddleware(v, func(r *http.Request) string {
		authz := r.Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
	})
}

// CallerTokenMiddleware verifies the forwarded caller token in
// X-Kindergrid-Caller-Token. Internal services sit behind the gateway and
// use this instead of AuthnMiddleware, since their Authorization header
// carries the gateway's service identity.
func CallerTokenMiddleware(v *verify.Verifier) Middleware {
	return bearerMiddleware(v, func(r *http.Request) string {
		return strings.TrimSpace(r.Header.Get(HeaderCallerToken))
	})
}

func bearerMiddleware(v *verify.Verifier, extract func(*http.Request) string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := extract(r)
			if raw == "" {
				writeBearerError(w, "malformed_token")
				return
			}

			claims, err := v.Verify(ctx, raw)
			if err != nil {
				code := VerifyErrorCode(err)
				log.Warn("token verification failed", "code", code, "err", err)
				writeBearerError(w, code)
				return
			}

			ctx = ContextWithClaims(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireGuardian rejects requests whose verified token is not a guardian
// token. Dependent tokens can never reach guardian-only operations.
func RequireGuardian() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || claims.Kind != jwtx.KindGuardian {
				WriteJSON(w, http.StatusForbidden, map[string]string{
					"error":             "invalid_principal_chain",
					"error_description": "a guardian token is required",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-style error response for bearer auth, with the stable error code.
func writeBearerError(w http.ResponseWriter, code string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+code+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error": code,
	})
}
