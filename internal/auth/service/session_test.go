package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kindergrid/kindergrid/internal/auth/domain"
	"github.com/kindergrid/kindergrid/pkg/jwtx"
	"github.com/kindergrid/kindergrid/pkg/verify"
)

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.registerGuardian(t, "alice")
	res := env.loginGuardian(t, "alice")

	_, err := env.verifier.Verify(ctx, res.Token)
	require.NoError(t, err)

	require.NoError(t, env.sessions.Logout(ctx, res.Token))

	_, err = env.verifier.Verify(ctx, res.Token)
	require.ErrorIs(t, err, verify.ErrRevoked)

	// Logging out again is a quiet success.
	require.NoError(t, env.sessions.Logout(ctx, res.Token))
}

func TestLogoutExpiredTokenIsNoOp(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	claims := jwtx.NewGuardianClaims("some-guardian", testIssuer, "Alice", -time.Hour, time.Now())
	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	require.NoError(t, env.sessions.Logout(ctx, token))

	// No revocation entry was written for the dead token.
	revoked, err := env.store.Revocations().IsRevoked(ctx, claims.TokenID())
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestLogoutInsideLeewayWindowRevokes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// exp one second in the past: verifiers still honour the token thanks
	// to the clock-skew leeway, so logout must still write an entry.
	claims := jwtx.NewGuardianClaims("some-guardian", testIssuer, "Alice", -time.Second, time.Now())
	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = env.verifier.Verify(ctx, token)
	require.NoError(t, err, "token inside the leeway window should still verify")

	require.NoError(t, env.sessions.Logout(ctx, token))

	_, err = env.verifier.Verify(ctx, token)
	require.ErrorIs(t, err, verify.ErrRevoked)
}

func TestLogoutRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	err := env.sessions.Logout(context.Background(), "garbage")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}

func TestForceEndDependentSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	g := env.registerGuardian(t, "alice")
	guardianTok := env.loginGuardian(t, "alice")
	bobby := env.createDependent(t, g.ID, "Bobby", domain.AgeBand5to8)
	cleo := env.createDependent(t, g.ID, "Cleo", domain.AgeBand9to12)

	tok1, err := env.tokens.IssueDependentToken(ctx, guardianTok.Token, bobby.ID, 0)
	require.NoError(t, err)
	tok2, err := env.tokens.IssueDependentToken(ctx, guardianTok.Token, cleo.ID, 0)
	require.NoError(t, err)

	revoked, err := env.sessions.ForceEndDependentSessions(ctx, guardianTok.Token)
	require.NoError(t, err)
	require.Equal(t, 2, revoked)

	_, err = env.verifier.Verify(ctx, tok1.Token)
	require.ErrorIs(t, err, verify.ErrRevoked)
	_, err = env.verifier.Verify(ctx, tok2.Token)
	require.ErrorIs(t, err, verify.ErrRevoked)

	// The guardian's own token is untouched.
	_, err = env.verifier.Verify(ctx, guardianTok.Token)
	require.NoError(t, err)

	// Running it again finds nothing live.
	revoked, err = env.sessions.ForceEndDependentSessions(ctx, guardianTok.Token)
	require.NoError(t, err)
	require.Zero(t, revoked)
}

func TestForceEndRejectsDependentCaller(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	g := env.registerGuardian(t, "alice")
	guardianTok := env.loginGuardian(t, "alice")
	dep := env.createDependent(t, g.ID, "Bobby", domain.AgeBand5to8)

	depTok, err := env.tokens.IssueDependentToken(ctx, guardianTok.Token, dep.ID, 0)
	require.NoError(t, err)

	_, err = env.sessions.ForceEndDependentSessions(ctx, depTok.Token)
	require.ErrorIs(t, err, ErrInvalidPrincipalChain)
}

func TestGuardianLogoutDoesNotCascadeToDependents(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	g := env.registerGuardian(t, "alice")
	guardianTok := env.loginGuardian(t, "alice")
	dep := env.createDependent(t, g.ID, "Bobby", domain.AgeBand5to8)

	depTok, err := env.tokens.IssueDependentToken(ctx, guardianTok.Token, dep.ID, 0)
	require.NoError(t, err)

	require.NoError(t, env.sessions.Logout(ctx, guardianTok.Token))

	// Dependent sessions ride out their limit unless explicitly ended.
	_, err = env.verifier.Verify(ctx, depTok.Token)
	require.NoError(t, err)
}

func TestForceEndSweepsLeewayWindowSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	g := env.registerGuardian(t, "alice")
	guardianTok := env.loginGuardian(t, "alice")

	// Index row whose token expired a second ago. Verifiers still honour
	// that token, so the sweep must still revoke it.
	require.NoError(t, env.store.DependentSessions().Create(ctx, domain.DependentSession{
		TokenID:     "leeway-session",
		GuardianID:  g.ID,
		DependentID: "dep-1",
		ExpiresAt:   time.Now().Add(-time.Second),
		CreatedAt:   time.Now().Add(-time.Minute),
	}))

	revoked, err := env.sessions.ForceEndDependentSessions(ctx, guardianTok.Token)
	require.NoError(t, err)
	require.Equal(t, 1, revoked)

	ok, err := env.store.Revocations().IsRevoked(ctx, "leeway-session")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHousekeepingKeepsLeewayWindowRevocations(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	claims := jwtx.NewGuardianClaims("some-guardian", testIssuer, "Robin", -time.Second, time.Now())
	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	require.NoError(t, env.sessions.Logout(ctx, token))
	_, err = env.verifier.Verify(ctx, token)
	require.ErrorIs(t, err, verify.ErrRevoked)

	hk := NewHousekeepingService(env.store, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute, 0)
	hk.prune()

	// The token stays verifiable until exp+leeway, so pruning its entry
	// now would let it verify again. Revoked it stays.
	_, err = env.verifier.Verify(ctx, token)
	require.ErrorIs(t, err, verify.ErrRevoked)
}

func TestHousekeepingPrunesExpiredRows(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	now := time.Now()

	// One revocation for a token that expired an hour ago, one still live.
	require.NoError(t, env.store.Revocations().Revoke(ctx, domain.RevocationEntry{
		TokenID:        "dead-token",
		Reason:         domain.ReasonLogout,
		RevokedAt:      now.Add(-2 * time.Hour),
		TokenExpiresAt: now.Add(-time.Hour),
	}))
	require.NoError(t, env.store.Revocations().Revoke(ctx, domain.RevocationEntry{
		TokenID:        "live-token",
		Reason:         domain.ReasonLogout,
		RevokedAt:      now,
		TokenExpiresAt: now.Add(time.Hour),
	}))

	deleted, err := env.store.Revocations().DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	revoked, err := env.store.Revocations().IsRevoked(ctx, "live-token")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = env.store.Revocations().IsRevoked(ctx, "dead-token")
	require.NoError(t, err)
	require.False(t, revoked)
}
