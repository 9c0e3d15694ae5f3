package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kindergrid/kindergrid/internal/auth/domain"
	"github.com/kindergrid/kindergrid/internal/auth/store"
	"github.com/kindergrid/kindergrid/pkg/cryptox"
	"github.com/kindergrid/kindergrid/pkg/jwtx"
	"github.com/kindergrid/kindergrid/pkg/slogx"
	"github.com/kindergrid/kindergrid/pkg/verify"
	"github.com/pquerna/otp/totp"
)

var (
	ErrInvalidCredentials    = errors.New("invalid_credentials")
	ErrMFARequired           = errors.New("mfa_required")
	ErrInvalidPrincipalChain = errors.New("invalid_principal_chain")
	ErrGuardianNotAuthorized = errors.New("guardian_not_authorized")
	ErrUnknownDependent      = errors.New("unknown_dependent")
)

// TokenService is the issuance half of the auth boundary: it authenticates
// guardians and mints guardian and dependent tokens. All verification of
// presented tokens goes through the shared Verifier so issuance can never
// accept a token the rest of the platform would reject.
type TokenService struct {
	Signer   *jwtx.HS256Signer
	Verifier *verify.Verifier
	Store    store.Store
	Issuer   string

	// GuardianTTL is the fixed lifetime of guardian tokens.
	GuardianTTL time.Duration

	// SessionCeilings maps age bands to the maximum session minutes a
	// dependent token may carry. Requested limits are clamped, never
	// rejected.
	SessionCeilings map[domain.AgeBand]int
}

// TokenResult is what issuance hands back to the HTTP layer.
type TokenResult struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time

	// SessionLimit is the granted session ceiling in minutes. Zero for
	// guardian tokens.
	SessionLimit int
}

// Login authenticates a guardian by username/password (plus TOTP when the
// guardian has enrolled) and issues a guardian token.
func (s *TokenService) Login(ctx context.Context, username, password, otpCode string) (*TokenResult, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	g, err := s.Store.Guardians().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash comparison anyway so missing and present
			// usernames take the same time.
			_ = cryptox.VerifyPassword(password, cryptox.DummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(password, g.PasswordHash); err != nil {
		l.Info("login password verification failed", slog.String("guardian_id", g.ID))
		return nil, ErrInvalidCredentials
	}

	if g.MFAEnrolled() {
		if otpCode == "" {
			return nil, ErrMFARequired
		}
		if !totp.Validate(otpCode, *g.MFASecret) {
			l.Info("login TOTP verification failed", slog.String("guardian_id", g.ID))
			return nil, ErrInvalidCredentials
		}
	}

	claims := jwtx.NewGuardianClaims(g.ID, s.Issuer, g.DisplayName, s.GuardianTTL, now)
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	l.Info("guardian token issued",
		slog.String("guardian_id", g.ID),
		slog.String("token_id", claims.TokenID()),
	)

	return &TokenResult{
		Token:     token,
		TokenID:   claims.TokenID(),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// IssueDependentToken mints a dependent token on behalf of a verified
// guardian. The guardian token runs the full verification pipeline first, so
// a revoked or expired guardian cannot issue. Only guardians may issue:
// dependent callers are rejected outright, keeping the principal chain one
// level deep.
//
// The requested session limit is clamped to the dependent's age-band ceiling.
// An out-of-range request is not an error; the caller gets the granted limit
// back and the token's expiry tells the truth.
func (s *TokenService) IssueDependentToken(
	ctx context.Context,
	guardianToken string,
	dependentID string,
	requestedMinutes int,
) (*TokenResult, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	claims, err := s.Verifier.Verify(ctx, guardianToken)
	if err != nil {
		return nil, err
	}

	if claims.Kind != jwtx.KindGuardian {
		return nil, ErrInvalidPrincipalChain
	}

	dep, err := s.Store.Dependents().GetByID(ctx, dependentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownDependent
		}
		return nil, err
	}

	if dep.GuardianID != claims.Subject {
		l.Info("dependent token refused: dependent belongs to another guardian",
			slog.String("guardian_id", claims.Subject),
			slog.String("dependent_id", dependentID),
		)
		return nil, ErrGuardianNotAuthorized
	}

	granted := s.clampSessionLimit(dep.AgeBand, requestedMinutes)

	depClaims := jwtx.NewDependentClaims(dep.ID, dep.GuardianID, s.Issuer, dep.Name, granted, now)
	token, err := s.Signer.Sign(depClaims)
	if err != nil {
		return nil, err
	}

	// Record the session in the advisory index so forced mass-logout can
	// find it later. Index failures must not fail issuance.
	idxErr := s.Store.DependentSessions().Create(ctx, domain.DependentSession{
		TokenID:     depClaims.TokenID(),
		GuardianID:  dep.GuardianID,
		DependentID: dep.ID,
		ExpiresAt:   depClaims.ExpiresAt.Time,
		CreatedAt:   now,
	})
	if idxErr != nil {
		l.Warn("failed to index dependent session",
			slog.Any("error", idxErr),
			slog.String("token_id", depClaims.TokenID()),
		)
	}

	l.Info("dependent token issued",
		slog.String("guardian_id", dep.GuardianID),
		slog.String("dependent_id", dep.ID),
		slog.String("token_id", depClaims.TokenID()),
		slog.Int("granted_minutes", granted),
	)

	return &TokenResult{
		Token:        token,
		TokenID:      depClaims.TokenID(),
		ExpiresAt:    depClaims.ExpiresAt.Time,
		SessionLimit: granted,
	}, nil
}

// Verdict is the introspection result for out-of-band collaborators.
type Verdict struct {
	Active bool
	Claims jwtx.Claims

	// Code is the stable denial code when Active is false.
	Code string
}

// Validate runs the verification pipeline on a token and reports the verdict
// without side effects. Inactive tokens carry the denial code, never the
// internal error.
func (s *TokenService) Validate(ctx context.Context, token string) Verdict {
	claims, err := s.Verifier.Verify(ctx, token)
	if err != nil {
		return Verdict{Active: false, Code: DenialCode(err)}
	}
	return Verdict{Active: true, Claims: claims}
}

func (s *TokenService) clampSessionLimit(band domain.AgeBand, requested int) int {
	ceiling, ok := s.SessionCeilings[band]
	if !ok {
		// Unknown band defaults to the most conservative ceiling.
		ceiling = s.minCeiling()
	}
	if requested <= 0 || requested > ceiling {
		return ceiling
	}
	return requested
}

func (s *TokenService) minCeiling() int {
	min := 0
	for _, c := range s.SessionCeilings {
		if min == 0 || c < min {
			min = c
		}
	}
	if min == 0 {
		min = domain.DefaultSessionCeilings[domain.AgeBand3to4]
	}
	return min
}

// DenialCode maps a verification or issuance error to its stable external
// code. Unknown errors map to server_error so internals never leak.
func DenialCode(err error) string {
	switch {
	case errors.Is(err, jwtx.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, jwtx.ErrExpired):
		return "expired"
	case errors.Is(err, jwtx.ErrNotYetValid):
		return "clock_skew_exceeded"
	case errors.Is(err, jwtx.ErrMalformed), errors.Is(err, jwtx.ErrInvalidClaim), errors.Is(err, jwtx.ErrIssuer):
		return "malformed_token"
	case errors.Is(err, verify.ErrRevoked):
		return "revoked"
	case errors.Is(err, ErrInvalidPrincipalChain):
		return "invalid_principal_chain"
	case errors.Is(err, ErrGuardianNotAuthorized):
		return "guardian_not_authorized"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "server_error"
	}
}
