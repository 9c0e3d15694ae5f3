package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kindergrid/kindergrid/pkg/jwtx"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestNewHS256SignerRejectsShortSecret(t *testing.T) {
	_, err := jwtx.NewHS256Signer([]byte("too-short"))
	require.Error(t, err)

	_, err = jwtx.NewHS256Parser([]byte("too-short"))
	require.Error(t, err)
}

func TestSignAndParseRoundTrip(t *testing.T) {
	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)
	parser, err := jwtx.NewHS256Parser(testSecret)
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := jwtx.NewDependentClaims("dep-1", "guardian-1", "kindergrid-auth", "Alice", 30, now)

	tokenStr, err := signer.Sign(claims)
	require.NoError(t, err)

	parsed, err := parser.Parse(tokenStr)
	require.NoError(t, err)
	require.Equal(t, claims.TokenID(), parsed.TokenID())
	require.Equal(t, "dep-1", parsed.Subject)
	require.Equal(t, "guardian-1", parsed.GuardianID)
	require.Equal(t, 30, parsed.SessionLimit)
}

func TestParseRejectsMalformed(t *testing.T) {
	parser, err := jwtx.NewHS256Parser(testSecret)
	require.NoError(t, err)

	for _, tokenStr := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := parser.Parse(tokenStr)
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	}
}

func TestParseRejectsBadSignature(t *testing.T) {
	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)

	claims := jwtx.NewGuardianClaims("guardian-1", "kindergrid-auth", "Robin", time.Hour, time.Now().UTC())
	tokenStr, err := signer.Sign(claims)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := jwtx.NewHS256Parser([]byte("ffffffffffffffffffffffffffffffff"))
		require.NoError(t, err)

		_, err = other.Parse(tokenStr)
		require.ErrorIs(t, err, jwtx.ErrBadSignature)
	})

	t.Run("tampered payload", func(t *testing.T) {
		parser, err := jwtx.NewHS256Parser(testSecret)
		require.NoError(t, err)

		parts := strings.Split(tokenStr, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + ".eyJzdWIiOiJzb21lb25lLWVsc2UifQ." + parts[2]

		_, err = parser.Parse(tampered)
		require.ErrorIs(t, err, jwtx.ErrBadSignature)
	})
}

func TestParseDoesNotValidateExpiry(t *testing.T) {
	// Signature parsing and expiry checking are separate steps: an expired
	// token must still parse cleanly so the pipeline can report Expired
	// rather than a signature failure.
	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)
	parser, err := jwtx.NewHS256Parser(testSecret)
	require.NoError(t, err)

	past := time.Now().UTC().Add(-2 * time.Hour)
	claims := jwtx.NewGuardianClaims("guardian-1", "kindergrid-auth", "Robin", time.Hour, past)

	tokenStr, err := signer.Sign(claims)
	require.NoError(t, err)

	parsed, err := parser.Parse(tokenStr)
	require.NoError(t, err)
	require.ErrorIs(t, parsed.ValidateExpiry(jwtx.DefaultLeeway, time.Now().UTC()), jwtx.ErrExpired)
}
