package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/kindergrid/kindergrid/pkg/authsdk"
)

// TestTOTPEnrollmentAndLogin drives the two-step enrollment protocol and
// verifies logins demand a code afterwards.
func TestTOTPEnrollmentAndLogin(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewClient(baseURL)
	ctx := context.Background()

	guardian := registerAndLogin(t, client)

	// Step one: ask for a pending secret.
	enroll, err := client.EnrollTOTP(ctx, guardian.Token, authsdk.MFAEnrollRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, enroll.Secret)
	require.NotEmpty(t, enroll.URL, "Provisioning URL should be present for authenticator apps")

	// Step two: confirm with a code generated from the pending secret.
	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)

	_, err = client.EnrollTOTP(ctx, guardian.Token, authsdk.MFAEnrollRequest{
		PendingSecret: enroll.Secret,
		Code:          code,
	})
	require.NoError(t, err, "Enrollment confirmation should succeed")

	// Password alone is no longer enough.
	_, err = client.Login(ctx, authsdk.LoginRequest{
		Username: guardianUsername,
		Password: guardianPassword,
	})
	require.Error(t, err)

	var authErr *authsdk.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, authsdk.ErrorCodeMFARequired, authErr.Code)

	// Password plus a fresh code works.
	code, err = totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)

	token, err := client.Login(ctx, authsdk.LoginRequest{
		Username: guardianUsername,
		Password: guardianPassword,
		OTPCode:  code,
	})
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)

	t.Logf("TOTP enrollment and MFA login completed")
}

// TestTOTPEnrollmentRejectsBadCode verifies a wrong confirmation code leaves
// enrollment incomplete.
func TestTOTPEnrollmentRejectsBadCode(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewClient(baseURL)
	ctx := context.Background()

	guardian := registerAndLogin(t, client)

	enroll, err := client.EnrollTOTP(ctx, guardian.Token, authsdk.MFAEnrollRequest{})
	require.NoError(t, err)

	_, err = client.EnrollTOTP(ctx, guardian.Token, authsdk.MFAEnrollRequest{
		PendingSecret: enroll.Secret,
		Code:          "000000",
	})
	require.Error(t, err, "Wrong code should not complete enrollment")

	// Login still works without a code; enrollment never completed.
	_, err = client.Login(ctx, authsdk.LoginRequest{
		Username: guardianUsername,
		Password: guardianPassword,
	})
	require.NoError(t, err)
}
