package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Stable external error codes. These are part of the API contract and never
// change between releases; clients branch on them.
const (
	ErrorCodeMalformedToken        = "malformed_token"
	ErrorCodeBadSignature          = "bad_signature"
	ErrorCodeExpired               = "expired"
	ErrorCodeRevoked               = "revoked"
	ErrorCodeClockSkewExceeded     = "clock_skew_exceeded"
	ErrorCodeInvalidPrincipalChain = "invalid_principal_chain"
	ErrorCodeGuardianNotAuthorized = "guardian_not_authorized"
	ErrorCodeInvalidCredentials    = "invalid_credentials"
	ErrorCodeMFARequired           = "mfa_required"
	ErrorCodeRateLimited           = "rate_limited"
	ErrorCodeUpstreamTimeout       = "upstream_timeout"
	ErrorCodeInvalidRequest        = "invalid_request"
	ErrorCodeUsernameTaken         = "username_taken"
	ErrorCodeServerError           = "server_error"
)

// AuthError is the error shape every kindergrid service speaks: a stable
// code plus a human-readable description. It implements the error interface
// and is used both by the server (to write HTTP responses) and by the SDK
// client (to represent errors).
type AuthError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the stable error code (e.g. "revoked", "rate_limited")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this AuthError to an HTTP response writer. The headers
// are set inline rather than through a helper so the SDK stays importable
// without dragging in the rest of the module.
func (e *AuthError) WriteError(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

var (
	// ErrInvalidRequest is returned when the request is missing a required
	// parameter or is otherwise malformed.
	ErrInvalidRequest = &AuthError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidCredentials is returned when login fails. Deliberately does
	// not say whether the username or the password was wrong.
	ErrInvalidCredentials = &AuthError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid credentials",
	}

	// ErrMFARequired is returned when the guardian has TOTP enrolled and no
	// code accompanied the login.
	ErrMFARequired = &AuthError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeMFARequired,
		Description: "a one-time code is required to complete this login",
	}

	// ErrInvalidPrincipalChain is returned when a dependent token attempts a
	// guardian-only operation. Principal chains are one level deep.
	ErrInvalidPrincipalChain = &AuthError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInvalidPrincipalChain,
		Description: "a guardian token is required",
	}

	// ErrGuardianNotAuthorized is returned when a guardian acts on a
	// dependent that belongs to another guardian.
	ErrGuardianNotAuthorized = &AuthError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeGuardianNotAuthorized,
		Description: "the dependent does not belong to this guardian",
	}

	// ErrUsernameTaken is returned when registration hits an existing
	// username.
	ErrUsernameTaken = &AuthError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeUsernameTaken,
		Description: "that username is already registered",
	}

	// ErrServerError is returned for unexpected failures. Internal detail
	// stays in the logs.
	ErrServerError = &AuthError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	// ErrUpstreamTimeout is returned by the gateway when an upstream service
	// missed its deadline. Retryable, unlike a denial.
	ErrUpstreamTimeout = &AuthError{
		StatusCode:  http.StatusGatewayTimeout,
		Code:        ErrorCodeUpstreamTimeout,
		Description: "the upstream service did not answer in time",
	}
)

// NewAuthError creates an AuthError with the given status code, error code,
// and description.
func NewAuthError(statusCode int, code, description string) *AuthError {
	return &AuthError{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// DenialError builds the 401 AuthError for a verification denial code.
func DenialError(code string) *AuthError {
	return &AuthError{
		StatusCode:  http.StatusUnauthorized,
		Code:        code,
		Description: "token verification failed",
	}
}

// parseErrorResponse turns a non-2xx HTTP response into a typed error.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &AuthError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &AuthError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
