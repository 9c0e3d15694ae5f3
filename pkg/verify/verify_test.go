package verify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kindergrid/kindergrid/pkg/jwtx"
	"github.com/kindergrid/kindergrid/pkg/verify"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// fakeChecker is an in-memory RevocationChecker for pipeline tests.
type fakeChecker struct {
	mu      sync.Mutex
	revoked map[string]bool
	err     error
	calls   int
}

func (f *fakeChecker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.revoked[tokenID], nil
}

func (f *fakeChecker) revoke(tokenID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revoked == nil {
		f.revoked = map[string]bool{}
	}
	f.revoked[tokenID] = true
}

func newTestVerifier(t *testing.T, checker verify.RevocationChecker) (*jwtx.HS256Signer, *verify.Verifier) {
	t.Helper()

	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)
	parser, err := jwtx.NewHS256Parser(testSecret)
	require.NoError(t, err)

	v, err := verify.New(parser, checker, verify.Options{Issuer: "kindergrid-auth"})
	require.NoError(t, err)
	return signer, v
}

func TestVerifyHappyPath(t *testing.T) {
	checker := &fakeChecker{}
	signer, v := newTestVerifier(t, checker)

	claims := jwtx.NewGuardianClaims("guardian-1", "kindergrid-auth", "Robin", time.Hour, time.Now().UTC())
	tokenStr, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := v.Verify(context.Background(), tokenStr)
	require.NoError(t, err)
	require.Equal(t, "guardian-1", got.Subject)
	require.Equal(t, claims.TokenID(), got.TokenID())
	require.Equal(t, 1, checker.calls, "every verification performs a revocation lookup")
}

func TestVerifyRevoked(t *testing.T) {
	checker := &fakeChecker{}
	signer, v := newTestVerifier(t, checker)

	claims := jwtx.NewGuardianClaims("guardian-1", "kindergrid-auth", "Robin", time.Hour, time.Now().UTC())
	tokenStr, err := signer.Sign(claims)
	require.NoError(t, err)

	checker.revoke(claims.TokenID())

	_, err = v.Verify(context.Background(), tokenStr)
	require.ErrorIs(t, err, verify.ErrRevoked)
}

func TestVerifyFailsClosedOnStoreError(t *testing.T) {
	checker := &fakeChecker{err: errors.New("connection refused")}
	signer, v := newTestVerifier(t, checker)

	claims := jwtx.NewGuardianClaims("guardian-1", "kindergrid-auth", "Robin", time.Hour, time.Now().UTC())
	tokenStr, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), tokenStr)
	require.ErrorIs(t, err, verify.ErrRevoked)
}

func TestVerifyExpiredBeatsRevocation(t *testing.T) {
	// An expired token must fail with Expired before the revocation store is
	// ever consulted.
	checker := &fakeChecker{}
	signer, v := newTestVerifier(t, checker)

	past := time.Now().UTC().Add(-2 * time.Hour)
	claims := jwtx.NewGuardianClaims("guardian-1", "kindergrid-auth", "Robin", time.Hour, past)
	tokenStr, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), tokenStr)
	require.ErrorIs(t, err, jwtx.ErrExpired)
	require.Zero(t, checker.calls)
}

func TestVerifyBadSignatureNeverExpired(t *testing.T) {
	checker := &fakeChecker{}
	_, v := newTestVerifier(t, checker)

	otherSigner, err := jwtx.NewHS256Signer([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	claims := jwtx.NewGuardianClaims("guardian-1", "kindergrid-auth", "Robin", time.Hour, time.Now().UTC())
	tokenStr, err := otherSigner.Sign(claims)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), tokenStr)
	require.ErrorIs(t, err, jwtx.ErrBadSignature)
}

func TestVerifyWrongIssuer(t *testing.T) {
	checker := &fakeChecker{}
	signer, v := newTestVerifier(t, checker)

	claims := jwtx.NewGuardianClaims("guardian-1", "someone-else", "Robin", time.Hour, time.Now().UTC())
	tokenStr, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), tokenStr)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestCachedChecker(t *testing.T) {
	t.Run("not revoked result is reused within ttl", func(t *testing.T) {
		inner := &fakeChecker{}
		cached := verify.NewCachedChecker(inner, time.Second)

		for range 5 {
			revoked, err := cached.IsRevoked(context.Background(), "tok-1")
			require.NoError(t, err)
			require.False(t, revoked)
		}
		require.Equal(t, 1, inner.calls)
	})

	t.Run("revoked result sticks", func(t *testing.T) {
		inner := &fakeChecker{}
		inner.revoke("tok-2")
		cached := verify.NewCachedChecker(inner, time.Second)

		for range 5 {
			revoked, err := cached.IsRevoked(context.Background(), "tok-2")
			require.NoError(t, err)
			require.True(t, revoked)
		}
		require.Equal(t, 1, inner.calls)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		inner := &fakeChecker{err: errors.New("down")}
		cached := verify.NewCachedChecker(inner, time.Second)

		_, err := cached.IsRevoked(context.Background(), "tok-3")
		require.Error(t, err)
		_, err = cached.IsRevoked(context.Background(), "tok-3")
		require.Error(t, err)
		require.Equal(t, 2, inner.calls)
	})

	t.Run("ttl is clamped to the bound", func(t *testing.T) {
		inner := &fakeChecker{}
		cached := verify.NewCachedChecker(inner, time.Minute)

		_, err := cached.IsRevoked(context.Background(), "tok-4")
		require.NoError(t, err)
		// The clamp is internal; observable behavior is that a later
		// revocation becomes visible after MaxNotRevokedTTL, not a minute.
		// Here we just assert construction accepts the oversized ttl.
	})
}
