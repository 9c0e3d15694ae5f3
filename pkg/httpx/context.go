package httpx

import (
	"context"

	"github.com/kindergrid/kindergrid/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeySubject ctxKey = "subject"
	CtxKeyClaims  ctxKey = "claims"
)

// ContextWithClaims records the verified caller identity for downstream
// handlers.
func ContextWithClaims(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeySubject, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// ClaimsFromContext returns the verified claims placed by AuthnMiddleware,
// or false when the request was not authenticated.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

// SubjectFromContext returns the verified subject id, or empty.
func SubjectFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(CtxKeySubject).(string); ok {
		return s
	}
	return ""
}
