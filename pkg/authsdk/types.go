package authsdk

import "time"

// ErrorResponse is the wire shape of every error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// RegisterRequest creates a guardian account.
type RegisterRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Password    string `json:"password"`
}

// RegisterResponse echoes the created guardian.
type RegisterResponse struct {
	GuardianID  string `json:"guardian_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// LoginRequest authenticates a guardian. OTPCode is required once the
// guardian has enrolled TOTP.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	OTPCode  string `json:"otp_code,omitempty"`
}

// TokenResponse carries a freshly minted token. SessionLimitMinutes is only
// set on dependent tokens.
type TokenResponse struct {
	Token               string    `json:"token"`
	TokenID             string    `json:"token_id"`
	ExpiresAt           time.Time `json:"expires_at"`
	SessionLimitMinutes int       `json:"session_limit_minutes,omitempty"`
}

// CreateDependentRequest creates a dependent profile under the calling
// guardian.
type CreateDependentRequest struct {
	Name    string `json:"name"`
	AgeBand string `json:"age_band"`
}

// DependentResponse is a dependent profile.
type DependentResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	AgeBand string `json:"age_band"`
}

// ListDependentsResponse wraps the guardian's dependent profiles.
type ListDependentsResponse struct {
	Dependents []DependentResponse `json:"dependents"`
}

// IssueDependentTokenRequest mints a dependent token. RequestedMinutes may
// exceed the age-band ceiling; the granted limit comes back clamped.
type IssueDependentTokenRequest struct {
	DependentID      string `json:"dependent_id"`
	RequestedMinutes int    `json:"requested_minutes,omitempty"`
}

// ValidateRequest asks for an introspection verdict on a token.
type ValidateRequest struct {
	Token string `json:"token"`
}

// ValidateResponse is the introspection verdict. When Active is false, Code
// carries the stable denial code and the claim fields are empty.
type ValidateResponse struct {
	Active bool   `json:"active"`
	Code   string `json:"code,omitempty"`

	Subject             string     `json:"subject,omitempty"`
	Kind                string     `json:"kind,omitempty"`
	GuardianID          string     `json:"guardian_id,omitempty"`
	DisplayName         string     `json:"display_name,omitempty"`
	SessionLimitMinutes int        `json:"session_limit_minutes,omitempty"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
}

// ForceEndResponse reports how many dependent sessions were revoked.
type ForceEndResponse struct {
	Revoked int `json:"revoked"`
}

// MFAEnrollRequest drives the two-step TOTP enrolment: first call with an
// empty PendingSecret to receive one, second call with the secret and a code
// from the authenticator app to confirm.
type MFAEnrollRequest struct {
	PendingSecret string `json:"pending_secret,omitempty"`
	Code          string `json:"code,omitempty"`
}

// HealthChecks reports the state of critical dependencies.
type HealthChecks struct {
	Database string `json:"database,omitempty"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// MFAEnrollResponse carries the TOTP provisioning material.
type MFAEnrollResponse struct {
	Secret  string `json:"secret"`
	URL     string `json:"url,omitempty"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}
