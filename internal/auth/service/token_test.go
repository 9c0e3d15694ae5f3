package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/kindergrid/kindergrid/internal/auth/domain"
	"github.com/kindergrid/kindergrid/internal/auth/store/drivers/sqlite"
	"github.com/kindergrid/kindergrid/pkg/jwtx"
	"github.com/kindergrid/kindergrid/pkg/verify"
)

const testIssuer = "kindergrid-test"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testEnv struct {
	store    *sqlite.Store
	accounts *AccountService
	tokens   *TokenService
	sessions *SessionService
	verifier *verify.Verifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)
	parser, err := jwtx.NewHS256Parser(testSecret)
	require.NoError(t, err)

	v, err := verify.New(parser, st.Revocations(), verify.Options{Issuer: testIssuer})
	require.NoError(t, err)

	return &testEnv{
		store:    st,
		accounts: &AccountService{Store: st},
		tokens: &TokenService{
			Signer:          signer,
			Verifier:        v,
			Store:           st,
			Issuer:          testIssuer,
			GuardianTTL:     jwtx.DefaultGuardianTTL,
			SessionCeilings: domain.DefaultSessionCeilings,
		},
		sessions: &SessionService{Parser: parser, Verifier: v, Store: st},
		verifier: v,
	}
}

func (e *testEnv) registerGuardian(t *testing.T, username string) domain.Guardian {
	t.Helper()
	g, err := e.accounts.RegisterGuardian(context.Background(), username, "Guardian "+username, "correct-horse-battery")
	require.NoError(t, err)
	return g
}

func (e *testEnv) loginGuardian(t *testing.T, username string) *TokenResult {
	t.Helper()
	res, err := e.tokens.Login(context.Background(), username, "correct-horse-battery", "")
	require.NoError(t, err)
	return res
}

func (e *testEnv) createDependent(t *testing.T, guardianID, name string, band domain.AgeBand) domain.Dependent {
	t.Helper()
	d, err := e.accounts.CreateDependent(context.Background(), guardianID, name, band)
	require.NoError(t, err)
	return d
}

func TestLoginIssuesVerifiableGuardianToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	g := env.registerGuardian(t, "alice")
	res := env.loginGuardian(t, "alice")
	require.NotEmpty(t, res.Token)
	require.NotEmpty(t, res.TokenID)

	claims, err := env.verifier.Verify(ctx, res.Token)
	require.NoError(t, err)
	require.Equal(t, g.ID, claims.Subject)
	require.Equal(t, jwtx.KindGuardian, claims.Kind)
	require.Empty(t, claims.GuardianID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.registerGuardian(t, "alice")

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.tokens.Login(ctx, "alice", "wrong-password", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown username", func(t *testing.T) {
		_, err := env.tokens.Login(ctx, "nobody", "correct-horse-battery", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLoginRequiresTOTPWhenEnrolled(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	g := env.registerGuardian(t, "alice")

	key, err := totp.Generate(totp.GenerateOpts{Issuer: testIssuer, AccountName: "alice"})
	require.NoError(t, err)
	require.NoError(t, env.store.Guardians().UpdateMFASecret(ctx, g.ID, key.Secret()))

	t.Run("missing code", func(t *testing.T) {
		_, err := env.tokens.Login(ctx, "alice", "correct-horse-battery", "")
		require.ErrorIs(t, err, ErrMFARequired)
	})

	t.Run("bad code", func(t *testing.T) {
		_, err := env.tokens.Login(ctx, "alice", "correct-horse-battery", "000000")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("valid code", func(t *testing.T) {
		code, err := totp.GenerateCode(key.Secret(), time.Now())
		require.NoError(t, err)
		res, err := env.tokens.Login(ctx, "alice", "correct-horse-battery", code)
		require.NoError(t, err)
		require.NotEmpty(t, res.Token)
	})
}

func TestIssueDependentTokenClampsSessionLimit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	g := env.registerGuardian(t, "alice")
	guardianTok := env.loginGuardian(t, "alice")
	dep := env.createDependent(t, g.ID, "Bobby", domain.AgeBand5to8)

	t.Run("over-ceiling request clamps to ceiling", func(t *testing.T) {
		res, err := env.tokens.IssueDependentToken(ctx, guardianTok.Token, dep.ID, 240)
		require.NoError(t, err)
		require.Equal(t, 30, res.SessionLimit)

		claims, err := env.verifier.Verify(ctx, res.Token)
		require.NoError(t, err)
		require.Equal(t, jwtx.KindDependent, claims.Kind)
		require.Equal(t, g.ID, claims.GuardianID)
		require.Equal(t, 30, claims.SessionLimit)
		require.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
	})

	t.Run("in-range request honoured", func(t *testing.T) {
		res, err := env.tokens.IssueDependentToken(ctx, guardianTok.Token, dep.ID, 15)
		require.NoError(t, err)
		require.Equal(t, 15, res.SessionLimit)
	})

	t.Run("zero request defaults to ceiling", func(t *testing.T) {
		res, err := env.tokens.IssueDependentToken(ctx, guardianTok.Token, dep.ID, 0)
		require.NoError(t, err)
		require.Equal(t, 30, res.SessionLimit)
	})
}

func TestIssueDependentTokenRejectsDependentCaller(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	g := env.registerGuardian(t, "alice")
	guardianTok := env.loginGuardian(t, "alice")
	dep := env.createDependent(t, g.ID, "Bobby", domain.AgeBand9to12)

	depTok, err := env.tokens.IssueDependentToken(ctx, guardianTok.Token, dep.ID, 10)
	require.NoError(t, err)

	// A dependent token can never mint another token; chains stay one deep.
	_, err = env.tokens.IssueDependentToken(ctx, depTok.Token, dep.ID, 10)
	require.ErrorIs(t, err, ErrInvalidPrincipalChain)
}

func TestIssueDependentTokenRejectsForeignDependent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	alice := env.registerGuardian(t, "alice")
	env.registerGuardian(t, "mallory")
	malloryTok := env.loginGuardian(t, "mallory")
	dep := env.createDependent(t, alice.ID, "Bobby", domain.AgeBand13to17)

	_, err := env.tokens.IssueDependentToken(ctx, malloryTok.Token, dep.ID, 10)
	require.ErrorIs(t, err, ErrGuardianNotAuthorized)
}

func TestIssueDependentTokenRequiresLiveGuardianToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	g := env.registerGuardian(t, "alice")
	guardianTok := env.loginGuardian(t, "alice")
	dep := env.createDependent(t, g.ID, "Bobby", domain.AgeBand5to8)

	require.NoError(t, env.sessions.Logout(ctx, guardianTok.Token))

	_, err := env.tokens.IssueDependentToken(ctx, guardianTok.Token, dep.ID, 10)
	require.ErrorIs(t, err, verify.ErrRevoked)
}

func TestValidateReportsVerdicts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.registerGuardian(t, "alice")
	res := env.loginGuardian(t, "alice")

	t.Run("active token", func(t *testing.T) {
		v := env.tokens.Validate(ctx, res.Token)
		require.True(t, v.Active)
		require.Equal(t, jwtx.KindGuardian, v.Claims.Kind)
	})

	t.Run("revoked token", func(t *testing.T) {
		require.NoError(t, env.sessions.Logout(ctx, res.Token))
		v := env.tokens.Validate(ctx, res.Token)
		require.False(t, v.Active)
		require.Equal(t, "revoked", v.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		v := env.tokens.Validate(ctx, "not-a-token")
		require.False(t, v.Active)
		require.Equal(t, "malformed_token", v.Code)
	})
}
