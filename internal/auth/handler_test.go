package auth_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-hq/brightpath/internal/api"
	"github.com/brightpath-hq/brightpath/internal/auth"
	"github.com/brightpath-hq/brightpath/internal/session"
	"github.com/brightpath-hq/brightpath/internal/shared"

	_ "github.com/brightpath-hq/brightpath/internal/testing/guard"
)

type fixture struct {
	router  chi.Router
	codec   *shared.CookieCodec
	cookies shared.CookieConfig
}

func newFixture(t *testing.T, role shared.Role) fixture {
	t.Helper()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/auth/login":
			var creds api.Credentials
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds.Password != "correct-horse" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"invalid email or password"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(api.LoginResult{
				Token: "tok-1",
				User:  shared.Identity{ID: "u1", Name: "Jane", Email: creds.Email, Role: role},
			})
		case "/v1/users/me":
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(shared.Identity{ID: "u1", Name: "Jane", Role: role})
		case "/v1/auth/forgot-password":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(backend.Close)

	codec := shared.NewCookieCodec("secret")
	cookies := shared.CookieConfig{TokenName: "token", RoleName: "user_role", TTL: time.Hour}
	client := api.NewClient(backend.URL, time.Second, nil)
	manager := session.NewManager(session.ManagerConfig{
		Backend: client,
		Cache:   session.NewCache(nil, "secret", time.Minute),
		Codec:   codec,
		Cookies: cookies,
		Timeout: time.Second,
	})

	handler := auth.NewHandler(nil, manager, client, nil, time.Hour)
	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)
	return fixture{router: router, codec: codec, cookies: cookies}
}

func postForm(f fixture, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func TestLoginSetsCookiesAndRedirectsToLanding(t *testing.T) {
	f := newFixture(t, shared.RoleAdmin)

	res := postForm(f, "/auth/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {"correct-horse"},
	})

	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/admin", res.Header().Get("Location"))

	byName := map[string]*http.Cookie{}
	for _, c := range res.Result().Cookies() {
		byName[c.Name] = c
	}
	require.Contains(t, byName, "token")
	require.Contains(t, byName, "user_role")

	tok, ok := f.codec.Decode(byName["token"].Value)
	require.True(t, ok)
	require.Equal(t, "tok-1", tok)
	roleValue, ok := f.codec.Decode(byName["user_role"].Value)
	require.True(t, ok)
	require.Equal(t, string(shared.RoleAdmin), roleValue)
	require.Equal(t, http.SameSiteLaxMode, byName["token"].SameSite)
}

func TestLoginHonorsSafeCallbackURL(t *testing.T) {
	f := newFixture(t, shared.RoleStudent)

	res := postForm(f, "/auth/login?callbackUrl=%2Fprofile", url.Values{
		"email":    {"jane@example.com"},
		"password": {"correct-horse"},
	})
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/profile", res.Header().Get("Location"))

	// Protocol-relative and absolute targets fall back to the role landing.
	res = postForm(f, "/auth/login?callbackUrl=%2F%2Fevil.example", url.Values{
		"email":    {"jane@example.com"},
		"password": {"correct-horse"},
	})
	require.Equal(t, "/dashboard", res.Header().Get("Location"))
}

func TestLoginFailureSurfacesUpstreamMessage(t *testing.T) {
	f := newFixture(t, shared.RoleStudent)

	res := postForm(f, "/auth/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {"wrong"},
	})

	require.Equal(t, http.StatusUnauthorized, res.Code)
	body, _ := io.ReadAll(res.Body)
	require.Contains(t, string(body), "invalid email or password")
	require.Empty(t, res.Result().Cookies())
}

func TestLoginValidatesForm(t *testing.T) {
	f := newFixture(t, shared.RoleStudent)

	res := postForm(f, "/auth/login", url.Values{"email": {"not-an-email"}})
	require.Equal(t, http.StatusBadRequest, res.Code)
	body, _ := io.ReadAll(res.Body)
	require.Contains(t, string(body), "email")
}

func TestLogoutClearsCookies(t *testing.T) {
	f := newFixture(t, shared.RoleStudent)

	res := postForm(f, "/auth/logout", nil,
		&http.Cookie{Name: "token", Value: f.codec.Encode("tok-1")},
		&http.Cookie{Name: "user_role", Value: f.codec.Encode(string(shared.RoleStudent))},
	)

	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/login", res.Header().Get("Location"))
	for _, c := range res.Result().Cookies() {
		if c.Name == "token" || c.Name == "user_role" {
			require.Equal(t, -1, c.MaxAge, "expected %s to be expired", c.Name)
		}
	}
}

func TestMeReturnsRehydratedUser(t *testing.T) {
	f := newFixture(t, shared.RoleStaff)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: f.codec.Encode("tok-1")})
	req.AddCookie(&http.Cookie{Name: "user_role", Value: f.codec.Encode(string(shared.RoleStaff))})
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var payload struct {
		User shared.Identity `json:"user"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.Equal(t, "u1", payload.User.ID)
	require.Equal(t, shared.RoleStaff, payload.User.Role)
}

func TestMeWithoutSessionIsUnauthorized(t *testing.T) {
	f := newFixture(t, shared.RoleStudent)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestForgotPasswordDelegatesUpstream(t *testing.T) {
	f := newFixture(t, shared.RoleStudent)

	res := postForm(f, "/auth/forgot-password", url.Values{"email": {"jane@example.com"}})
	require.Equal(t, http.StatusOK, res.Code)

	res = postForm(f, "/auth/forgot-password", nil)
	require.Equal(t, http.StatusBadRequest, res.Code)
}
