package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kindergrid/kindergrid/pkg/idx"
)

// Principal kinds carried in the "knd" claim. A dependent token always
// references the guardian that created it; the reference never changes after
// issuance.
const (
	KindGuardian  = "guardian"
	KindDependent = "dependent"
)

// Default token lifetime constants.
const (
	// DefaultGuardianTTL is the fixed lifetime for guardian tokens.
	DefaultGuardianTTL = 24 * time.Hour

	// DefaultLeeway is the clock-skew tolerance applied when validating
	// exp/nbf. Because time sync is never perfect.
	DefaultLeeway = 5 * time.Second
)

// Claims are the signed contents of a kindergrid token. The jti registered
// claim is the token identifier used as the revocation key, so it is always
// set at issuance.
type Claims struct {
	jwt.RegisteredClaims

	// Kind is the principal kind: "guardian" or "dependent".
	Kind string `json:"knd"`

	// GuardianID references the guardian that issued this token. Present
	// only on dependent tokens, immutable after issuance.
	GuardianID string `json:"gdn,omitempty"`

	// SessionLimit is the dependent's session ceiling in minutes, derived
	// from the declared age band. Zero on guardian tokens.
	SessionLimit int `json:"slm,omitempty"`

	// DisplayName is the principal's display name, for downstream UIs.
	DisplayName string `json:"name,omitempty"`
}

// NewGuardianClaims builds claims for a guardian token with a fixed TTL.
func NewGuardianClaims(subject, issuer, displayName string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        idx.New().String(),
		},
		Kind:        KindGuardian,
		DisplayName: displayName,
	}
}

// NewDependentClaims builds claims for a dependent token. The token expires
// when its session limit runs out: the session ceiling is the lifetime.
func NewDependentClaims(
	subject, guardianID, issuer, displayName string,
	sessionLimitMinutes int,
	now time.Time,
) Claims {
	ttl := time.Duration(sessionLimitMinutes) * time.Minute
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        idx.New().String(),
		},
		Kind:         KindDependent,
		GuardianID:   guardianID,
		SessionLimit: sessionLimitMinutes,
		DisplayName:  displayName,
	}
}

// TokenID returns the jti claim, the key under which revocations are stored.
func (c *Claims) TokenID() string { return c.ID }

// ValidateIssuer checks the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf), allowing leeway for clock skew between hosts.
func (c *Claims) ValidateExpiry(leeway time.Duration, now time.Time) error {
	now = now.UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateShape checks the structural invariants of the claim set: a token
// identifier and an expiry are present, the kind is known, and dependent
// tokens carry their guardian reference while guardian tokens do not. A
// token without exp would never expire, so it is malformed by definition.
func (c *Claims) ValidateShape() error {
	if c.ID == "" || c.Subject == "" || c.ExpiresAt == nil {
		return ErrInvalidClaim
	}

	switch c.Kind {
	case KindGuardian:
		if c.GuardianID != "" {
			return ErrInvalidClaim
		}
	case KindDependent:
		if c.GuardianID == "" {
			return ErrInvalidClaim
		}
	default:
		return ErrInvalidClaim
	}

	return nil
}
