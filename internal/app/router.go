package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/brightpath-hq/brightpath/internal/auth"
	"github.com/brightpath-hq/brightpath/internal/gate"
	"github.com/brightpath-hq/brightpath/internal/observability"
	"github.com/brightpath-hq/brightpath/internal/pages"
	"github.com/brightpath-hq/brightpath/internal/session"
	"github.com/brightpath-hq/brightpath/internal/shared"
	"github.com/brightpath-hq/brightpath/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	Sessions     *session.Manager
	CSRF         *shared.CSRFManager
	Codec        *shared.CookieCodec
	Cookies      shared.CookieConfig
	AuthHandler  *auth.Handler
	PagesHandler *pages.Handler
	Gate         gate.Middleware
	Metrics      *observability.Metrics
}

// NewRouter constructs the chi.Router with portal defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Sessions: params.Sessions,
		CSRF:     params.CSRF,
		Gate:     params.Gate,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// The root is public: signed-in visitors go to their landing page,
	// everyone else to login.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		token, role := shared.ReadAuthCookies(r, params.Codec, params.Cookies)
		if token == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, role.LandingPath(), http.StatusSeeOther)
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	params.PagesHandler.MountRoutes(r)

	// Auth-only pages are served by the front-end bundle; the portal only
	// acknowledges them so the gatekeeper's pass-through has a target.
	for _, path := range []string{"/login", "/register", "/forgot-password", "/reset-password", "/verify-email"} {
		page := path[1:]
		r.Get(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"page":"` + page + `"}`))
		})
	}

	r.Handle("/static/*", web.StaticHandler())

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
