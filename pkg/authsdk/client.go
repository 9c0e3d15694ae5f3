// Package authsdk is the Go client for the kindergrid auth service. Internal
// collaborators and the e2e suite use it instead of hand-rolling HTTP calls.
package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the kindergrid auth service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates an auth service client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates a guardian account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.postJSON(ctx, "/v1/register", "", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates a guardian and returns a guardian token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.postJSON(ctx, "/v1/login", "", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDependent creates a dependent profile under the guardian holding the
// token.
func (c *Client) CreateDependent(ctx context.Context, guardianToken string, req CreateDependentRequest) (*DependentResponse, error) {
	var out DependentResponse
	if err := c.postJSON(ctx, "/v1/dependents", guardianToken, req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDependents returns the guardian's dependent profiles.
func (c *Client) ListDependents(ctx context.Context, guardianToken string) (*ListDependentsResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/dependents", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+guardianToken)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var out ListDependentsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// IssueDependentToken mints a dependent token on behalf of the guardian. The
// granted session limit comes back clamped to the dependent's age-band
// ceiling.
func (c *Client) IssueDependentToken(ctx context.Context, guardianToken string, req IssueDependentTokenRequest) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.postJSON(ctx, "/v1/tokens/dependent", guardianToken, req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the presented token. Idempotent; succeeds quietly for
// already-revoked and expired tokens.
func (c *Client) Logout(ctx context.Context, token string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return checkStatusNoContent(resp)
}

// ForceEndDependentSessions revokes every live dependent token issued under
// the guardian holding the token.
func (c *Client) ForceEndDependentSessions(ctx context.Context, guardianToken string) (*ForceEndResponse, error) {
	var out ForceEndResponse
	if err := c.postJSON(ctx, "/v1/sessions/force-end", guardianToken, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate asks the auth service for an introspection verdict on a token.
func (c *Client) Validate(ctx context.Context, token string) (*ValidateResponse, error) {
	var out ValidateResponse
	if err := c.postJSON(ctx, "/v1/validate", "", ValidateRequest{Token: token}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnrollTOTP drives TOTP enrolment for the guardian holding the token. See
// MFAEnrollRequest for the two-step protocol.
func (c *Client) EnrollTOTP(ctx context.Context, guardianToken string, req MFAEnrollRequest) (*MFAEnrollResponse, error) {
	var out MFAEnrollResponse
	if err := c.postJSON(ctx, "/v1/mfa/totp/enroll", guardianToken, req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLiveness checks the liveness probe.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.getJSON(ctx, "/livez", &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReadiness checks the readiness probe.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.getJSON(ctx, "/readyz", &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any, expectedStatus int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	return decodeJSON(resp, target, expectedStatus)
}

func (c *Client) postJSON(ctx context.Context, path, token string, body, target any, expectedStatus int) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	return decodeJSON(resp, target, expectedStatus)
}

// decodeJSON decodes a JSON response into target, turning non-expected
// statuses into typed AuthErrors.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func checkStatusNoContent(resp *http.Response) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return parseErrorResponse(resp, bodyBytes)
	}

	return nil
}
