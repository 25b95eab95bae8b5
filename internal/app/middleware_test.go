package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-hq/brightpath/internal/gate"
	"github.com/brightpath-hq/brightpath/internal/session"
	"github.com/brightpath-hq/brightpath/internal/shared"
)

func newStackedRouter(t *testing.T) http.Handler {
	t.Helper()
	codec := shared.NewCookieCodec("secret")
	cookies := shared.CookieConfig{TokenName: "token", RoleName: "user_role"}
	manager := session.NewManager(session.ManagerConfig{
		Cache:   session.NewCache(nil, "secret", time.Minute),
		Codec:   codec,
		Cookies: cookies,
		Timeout: time.Second,
	})

	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Config:   &Config{AppRequestTimeout: 5 * time.Second},
		Sessions: manager,
		CSRF:     shared.NewCSRFManager("csrf-secret", false),
		Gate:     gate.Middleware{Codec: codec, Cookies: cookies},
	}) {
		r.Use(mw)
	}
	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func TestAuthRateLimitBucket(t *testing.T) {
	router := newStackedRouter(t)

	// The /auth bucket allows 10 POSTs per minute per IP; the 11th gets 429
	// regardless of what the handler would have said.
	var last int
	for i := 0; i < 11; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		last = res.Code
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}

func TestSecurityHeadersApplied(t *testing.T) {
	router := newStackedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "nosniff", res.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", res.Header().Get("X-Frame-Options"))
}

func TestPostWithoutCSRFIsRejected(t *testing.T) {
	router := newStackedRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusForbidden, res.Code)
}
