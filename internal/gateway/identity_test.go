package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIdentityRoundTrip(t *testing.T) {
	minter, err := NewIdentityMinter(identitySecret, 10*time.Second)
	require.NoError(t, err)

	token, err := minter.Mint("lessons")
	require.NoError(t, err)

	verifier, err := NewIdentityVerifier(identitySecret, "lessons", 0)
	require.NoError(t, err)
	require.NoError(t, verifier.Verify(token))
}

func TestIdentityAudienceIsScoped(t *testing.T) {
	minter, err := NewIdentityMinter(identitySecret, 10*time.Second)
	require.NoError(t, err)

	token, err := minter.Mint("lessons")
	require.NoError(t, err)

	// An identity for one service is useless at another.
	verifier, err := NewIdentityVerifier(identitySecret, "progress", 0)
	require.NoError(t, err)
	require.ErrorIs(t, verifier.Verify(token), ErrIdentityInvalid)
}

func TestIdentityExpires(t *testing.T) {
	minter, err := NewIdentityMinter(identitySecret, time.Second)
	require.NoError(t, err)
	minter.now = func() time.Time { return time.Now().Add(-time.Minute) }

	token, err := minter.Mint("lessons")
	require.NoError(t, err)

	verifier, err := NewIdentityVerifier(identitySecret, "lessons", 0)
	require.NoError(t, err)
	require.ErrorIs(t, verifier.Verify(token), ErrIdentityExpired)
}

func TestIdentityRejectsWrongSecret(t *testing.T) {
	minter, err := NewIdentityMinter(identitySecret, 10*time.Second)
	require.NoError(t, err)

	token, err := minter.Mint("lessons")
	require.NoError(t, err)

	verifier, err := NewIdentityVerifier(callerSecret, "lessons", 0)
	require.NoError(t, err)
	require.ErrorIs(t, verifier.Verify(token), ErrIdentityInvalid)
}

func TestIdentityMinterRejectsShortSecret(t *testing.T) {
	_, err := NewIdentityMinter([]byte("too short"), 10*time.Second)
	require.Error(t, err)
}

func TestParseRoutes(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		routes, err := ParseRoutes("lessons=http://lessons:8080, progress=http://progress:8080")
		require.NoError(t, err)
		require.Len(t, routes, 2)
		require.Equal(t, "lessons", routes[0].Name)
		require.Equal(t, "http://lessons:8080", routes[0].Upstream.String())
	})

	t.Run("empty", func(t *testing.T) {
		routes, err := ParseRoutes("")
		require.NoError(t, err)
		require.Nil(t, routes)
	})

	t.Run("missing upstream", func(t *testing.T) {
		_, err := ParseRoutes("lessons")
		require.Error(t, err)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := ParseRoutes("a=http://x:1,a=http://y:2")
		require.Error(t, err)
	})

	t.Run("bad URL", func(t *testing.T) {
		_, err := ParseRoutes("a=not-a-url")
		require.Error(t, err)
	})
}
