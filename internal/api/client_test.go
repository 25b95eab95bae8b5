package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brightpath-hq/brightpath/internal/api"
	"github.com/brightpath-hq/brightpath/internal/shared"
)

func TestLoginDecodesResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/auth/login", r.URL.Path)

		var creds api.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		require.Equal(t, "jane@example.com", creds.Email)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.LoginResult{
			Token: "tok-1",
			User:  shared.Identity{ID: "u1", Email: creds.Email, Role: shared.RoleStudent},
		})
	}))
	defer server.Close()

	client := api.NewClient(server.URL, time.Second, nil)
	res, err := client.Login(context.Background(), api.Credentials{Email: "jane@example.com", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "tok-1", res.Token)
	require.Equal(t, shared.RoleStudent, res.User.Role)
}

func TestLoginRejectionSurfacesUpstreamMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid email or password"}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, time.Second, nil)
	_, err := client.Login(context.Background(), api.Credentials{Email: "jane@example.com", Password: "nope"})

	var authErr *shared.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, "invalid email or password", authErr.Message)
	// Login is unauthenticated: a 401 here is a credential rejection, not
	// an expired session.
	require.NotErrorIs(t, err, shared.ErrSessionExpired)
}

func TestProfileUnauthorizedIsSessionExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := api.NewClient(server.URL, time.Second, nil)
	_, err := client.Profile(context.Background(), "stale")
	require.ErrorIs(t, err, shared.ErrSessionExpired)
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := api.NewClient(server.URL, time.Second, nil)
	_, err := client.Profile(context.Background(), "tok")
	require.ErrorIs(t, err, shared.ErrNetwork)
}

func TestVerifyEmailMapsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"verification token expired"}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, time.Second, nil)
	err := client.VerifyEmail(context.Background(), "expired-token")

	var authErr *shared.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, "verification token expired", authErr.Message)
}
