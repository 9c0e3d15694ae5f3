package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kindergrid/kindergrid/internal/auth/store"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	ErrInvalidTOTPCode   = errors.New("invalid TOTP code")
	ErrMFAAlreadyEnabled = errors.New("MFA already enabled for this guardian")
)

// MFAEnrollment is handed back from EnrollTOTP so the guardian can load the
// secret into an authenticator app.
type MFAEnrollment struct {
	Secret  string
	URL     string
	Issuer  string
	Account string
}

// MFAService handles TOTP enrolment for guardians. Once a secret is stored
// the login path requires a code on every authentication.
type MFAService struct {
	Store  store.Store
	Issuer string
}

// EnrollTOTP generates a TOTP secret for the guardian, verifies they can
// produce a valid code, and stores the secret. Verification happens before
// the write so a guardian can never lock themselves out with a secret their
// app never saw.
func (s *MFAService) EnrollTOTP(ctx context.Context, guardianID, code string, pending string) (MFAEnrollment, error) {
	g, err := s.Store.Guardians().GetByID(ctx, guardianID)
	if err != nil {
		return MFAEnrollment{}, err
	}
	if g.MFAEnrolled() {
		return MFAEnrollment{}, ErrMFAAlreadyEnabled
	}

	// First call: no pending secret yet, generate one and return it.
	if pending == "" {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      s.Issuer,
			AccountName: g.Username,
			Period:      30,
			Digits:      otp.DigitsSix,
			Algorithm:   otp.AlgorithmSHA1,
		})
		if err != nil {
			return MFAEnrollment{}, fmt.Errorf("failed to generate TOTP key: %w", err)
		}
		return MFAEnrollment{
			Secret:  key.Secret(),
			URL:     key.URL(),
			Issuer:  s.Issuer,
			Account: g.Username,
		}, nil
	}

	// Second call: confirm the guardian's app produces valid codes, then
	// persist.
	if !totp.Validate(code, pending) {
		return MFAEnrollment{}, ErrInvalidTOTPCode
	}
	if err := s.Store.Guardians().UpdateMFASecret(ctx, guardianID, pending); err != nil {
		return MFAEnrollment{}, fmt.Errorf("failed to store MFA secret: %w", err)
	}

	return MFAEnrollment{Secret: pending, Issuer: s.Issuer, Account: g.Username}, nil
}
