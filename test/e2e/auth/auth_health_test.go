package auth_test

import (
	"testing"

	"github.com/kindergrid/kindergrid/pkg/authsdk"
)

// TestLivezEndpoint verifies the liveness check endpoint works on a fresh
// container.
func TestLivezEndpoint(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewClient(baseURL)

	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)

	t.Logf("Livez endpoint is healthy")
}

// TestReadyzEndpoint verifies the readiness check endpoint reports the
// database as reachable.
func TestReadyzEndpoint(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewClient(baseURL)

	health, err := client.GetReadiness(t.Context())
	assertHealthy(t, health, err)

	t.Logf("Readyz endpoint is healthy")
}
