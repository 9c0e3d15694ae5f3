package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/kindergrid/kindergrid/internal/auth/domain"
	"github.com/kindergrid/kindergrid/internal/auth/store"
	"github.com/kindergrid/kindergrid/pkg/jwtx"
	"github.com/kindergrid/kindergrid/pkg/slogx"
	"github.com/kindergrid/kindergrid/pkg/verify"
)

// SessionService is the lifecycle half of the auth boundary: voluntary
// logout and guardian-forced session ending. Both converge on the same
// revocation write path.
type SessionService struct {
	Parser   *jwtx.HS256Parser
	Verifier *verify.Verifier
	Store    store.Store

	// Leeway mirrors the clock-skew allowance verifiers apply to expiry.
	// A token stays verifiable until exp+leeway, so lifecycle decisions
	// use the same boundary. Zero means jwtx.DefaultLeeway.
	Leeway time.Duration
}

func (s *SessionService) leeway() time.Duration {
	if s.Leeway > 0 {
		return s.Leeway
	}
	return jwtx.DefaultLeeway
}

// Logout revokes the presented token. Idempotent: logging out twice, or
// logging out an already-revoked token, succeeds quietly. An expired token
// is a no-op too, since expiry already rejects it everywhere without a
// revocation entry.
//
// Deliberately parses rather than verifies: a caller holding a revoked token
// must still be able to log out without the revocation check bouncing them.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	l := slogx.FromContext(ctx)

	claims, err := s.Parser.Parse(token)
	if err != nil {
		return err
	}
	if err := claims.ValidateShape(); err != nil {
		return err
	}

	now := time.Now()
	expiresAt := claims.ExpiresAt.Time
	if !now.Before(expiresAt.Add(s.leeway())) {
		// Verifiers reject the token past exp+leeway everywhere, so the
		// entry would carry no information. Inside the leeway window the
		// token still verifies and must be revoked like any live one.
		return nil
	}

	if err := s.Store.Revocations().Revoke(ctx, domain.RevocationEntry{
		TokenID:        claims.TokenID(),
		Reason:         domain.ReasonLogout,
		RevokedAt:      now,
		TokenExpiresAt: expiresAt,
	}); err != nil {
		return err
	}

	l.Info("token revoked",
		slog.String("token_id", claims.TokenID()),
		slog.String("reason", domain.ReasonLogout),
	)
	return nil
}

// ForceEndDependentSessions revokes every live dependent token issued under
// the calling guardian. The session index is advisory, so this is
// best-effort by construction: entries that already expired or were never
// indexed are skipped without complaint, and token expiry remains the
// backstop. Returns the number of tokens revoked.
//
// Revoking the guardian's own token never happens here; guardian revocation
// does not cascade.
func (s *SessionService) ForceEndDependentSessions(ctx context.Context, guardianToken string) (int, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	claims, err := s.Verifier.Verify(ctx, guardianToken)
	if err != nil {
		return 0, err
	}
	if claims.Kind != jwtx.KindGuardian {
		return 0, ErrInvalidPrincipalChain
	}

	// Tokens inside the leeway window still verify, so they are still live
	// for sweeping purposes.
	sessions, err := s.Store.DependentSessions().ListActiveByGuardian(ctx, claims.Subject, now.Add(-s.leeway()))
	if err != nil {
		return 0, err
	}

	revoked := 0
	var firstErr error
	for _, sess := range sessions {
		err := s.Store.Revocations().Revoke(ctx, domain.RevocationEntry{
			TokenID:        sess.TokenID,
			Reason:         domain.ReasonGuardianForced,
			RevokedAt:      now,
			TokenExpiresAt: sess.ExpiresAt,
		})
		if err != nil {
			l.Error("failed to revoke dependent session",
				slog.Any("error", err),
				slog.String("token_id", sess.TokenID),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		revoked++
	}

	l.Info("forced end of dependent sessions",
		slog.String("guardian_id", claims.Subject),
		slog.Int("revoked", revoked),
		slog.Int("candidates", len(sessions)),
	)
	return revoked, firstErr
}
