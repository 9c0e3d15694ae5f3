package gateway

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kindergrid/kindergrid/pkg/idx"
	"github.com/kindergrid/kindergrid/pkg/jwtx"
)

// IdentityIssuer is the issuer claim on every service identity.
const IdentityIssuer = "kindergrid-gateway"

var (
	ErrIdentityInvalid = errors.New("gateway: invalid service identity")
	ErrIdentityExpired = errors.New("gateway: service identity expired")
)

// IdentityClaims are the contents of a service identity: the gateway's proof
// to an upstream that the request passed through it. Identities live for
// seconds, are scoped to one target service via the audience, and are never
// persisted or revoked; expiry is the whole lifecycle.
type IdentityClaims struct {
	jwt.RegisteredClaims
}

// IdentityMinter mints service identities with the gateway's own secret,
// deliberately distinct from the caller-token secret so neither token class
// can impersonate the other.
type IdentityMinter struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIdentityMinter validates the secret and returns a minter.
func NewIdentityMinter(secret []byte, ttl time.Duration) (*IdentityMinter, error) {
	if len(secret) < jwtx.MinSecretLen {
		return nil, fmt.Errorf("gateway: identity secret must be at least %d bytes", jwtx.MinSecretLen)
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &IdentityMinter{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Mint creates a service identity addressed to the named upstream.
func (m *IdentityMinter) Mint(audience string) (string, error) {
	now := m.now()
	claims := IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    IdentityIssuer,
			Subject:   "gateway",
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        idx.New().String(),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secret)
}

// IdentityVerifier checks service identities on the upstream side. Services
// behind the gateway verify the identity to know the hop is genuine, then
// re-verify the forwarded caller token for the actual authorization.
type IdentityVerifier struct {
	secret   []byte
	audience string
	leeway   time.Duration
}

// NewIdentityVerifier builds a verifier for the named service.
func NewIdentityVerifier(secret []byte, audience string, leeway time.Duration) (*IdentityVerifier, error) {
	if len(secret) < jwtx.MinSecretLen {
		return nil, fmt.Errorf("gateway: identity secret must be at least %d bytes", jwtx.MinSecretLen)
	}
	if leeway <= 0 {
		leeway = jwtx.DefaultLeeway
	}
	return &IdentityVerifier{secret: secret, audience: audience, leeway: leeway}, nil
}

// Verify checks the identity's signature, lifetime, issuer, and audience.
func (v *IdentityVerifier) Verify(tokenStr string) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithIssuer(IdentityIssuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(tokenStr, &IdentityClaims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrIdentityExpired
		}
		return fmt.Errorf("%w: %v", ErrIdentityInvalid, err)
	}

	return nil
}
