package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors for the parse/verify surface.
var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrBadSignature = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// MinSecretLen is the smallest signing secret we accept. 32 bytes matches
// the HS256 hash width; anything shorter weakens the MAC.
const MinSecretLen = 32

// HS256Signer signs kindergrid tokens with a process-wide shared secret.
type HS256Signer struct {
	secret []byte
}

// NewHS256Signer validates the secret and returns a signer.
func NewHS256Signer(secret []byte) (*HS256Signer, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("jwtx: signing secret must be at least %d bytes", MinSecretLen)
	}
	return &HS256Signer{secret: secret}, nil
}

// Alg returns the JOSE algorithm name.
func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign turns claims into a signed compact JWT string.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// HS256Parser checks the signature of a token and returns its claims. It
// deliberately performs NO claim validation: expiry and revocation checks
// belong to the verification pipeline so their ordering is fixed in exactly
// one place.
type HS256Parser struct {
	secret []byte
}

// NewHS256Parser validates the secret and returns a parser.
func NewHS256Parser(secret []byte) (*HS256Parser, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("jwtx: signing secret must be at least %d bytes", MinSecretLen)
	}
	return &HS256Parser{secret: secret}, nil
}

// Parse checks the compact serialization and HS256 signature of tokenStr.
// Fails with ErrMalformed for anything that isn't a well-formed JWT and
// ErrBadSignature when the MAC doesn't verify.
func (p *HS256Parser) Parse(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrBadSignature
		default:
			return Claims{}, ErrMalformed
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return Claims{}, ErrMalformed
	}

	return *claims, nil
}
