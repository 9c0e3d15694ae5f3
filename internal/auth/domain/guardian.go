package domain

import "time"

// Guardian is the principal with full account rights. Guardians create and
// scope dependents and hold the credentials used at login.
type Guardian struct {
	ID           string
	Username     string
	DisplayName  string
	PasswordHash string

	// MFASecret is the TOTP secret, nil until the guardian enrols.
	MFASecret *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MFAEnrolled reports whether TOTP step-up is required at login.
func (g Guardian) MFAEnrolled() bool {
	return g.MFASecret != nil && *g.MFASecret != ""
}
