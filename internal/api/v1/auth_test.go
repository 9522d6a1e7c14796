package v1_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/metisguard/metis/internal/api/v1"
	"github.com/metisguard/metis/internal/auth"
)

func newAuthTestAPI(t *testing.T) (humatest.TestAPI, *mockIssuer) {
	t.Helper()

	_, api := humatest.New(t)
	issuer := &mockIssuer{}

	v1.RegisterAuthRoutes(api, issuer)

	return api, issuer
}

func TestIssueToken(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		api, issuer := newAuthTestAPI(t)

		issuer.issueTokenFunc = func(password string) (string, error) {
			assert.Equal(t, "hunter2", password)
			return "signed.jwt.token", nil
		}

		resp := api.Post("/auth/token", map[string]any{"password": "hunter2"})

		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			AccessToken string `json:"access_token"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "signed.jwt.token", body.AccessToken)
	})

	t.Run("wrong_password", func(t *testing.T) {
		t.Parallel()

		api, issuer := newAuthTestAPI(t)

		issuer.issueTokenFunc = func(string) (string, error) {
			return "", auth.ErrInvalidCredentials
		}

		resp := api.Post("/auth/token", map[string]any{"password": "guess"})

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		body := parseErrorBody(t, resp.Body.Bytes())
		assert.Equal(t, "invalid credentials", body["detail"])
	})
}

func TestStatus(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	v1.RegisterStatusRoutes(api, &mockObservers{count: 3})

	resp := api.Get("/status")

	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Status    string `json:"status"`
		Observers int    `json:"observers"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 3, body.Observers)
}
