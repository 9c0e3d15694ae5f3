package authsdk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrInvalidCredentials.WriteError(rec)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Equal(t, "no-cache", rec.Header().Get("Pragma"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, ErrorCodeInvalidCredentials, body.Error)
	require.Equal(t, "invalid credentials", body.ErrorDescription)
}

func TestAuthErrorMessage(t *testing.T) {
	err := NewAuthError(http.StatusTeapot, "teapot", "short and stout")
	require.EqualError(t, err, "teapot: short and stout")
}
