package gate

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/brightpath-hq/brightpath/internal/observability"
	"github.com/brightpath-hq/brightpath/internal/shared"
)

// Non-navigable paths the gatekeeper never evaluates: API-style endpoints,
// static assets, and operational probes.
var skipPrefixes = []string{"/auth", "/api", "/static", "/healthz", "/metrics", "/favicon.ico"}

// Middleware applies the gate decision to navigable requests.
type Middleware struct {
	Codec   *shared.CookieCodec
	Cookies shared.CookieConfig
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Handler wraps next with the gatekeeper check.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		token, role := shared.ReadAuthCookies(r, m.Codec, m.Cookies)
		decision := Decide(Cookies{Token: token, Role: role}, r.URL.Path)
		m.Metrics.GateDecision(decision.Outcome)
		if decision.Action == ActionRedirect {
			if m.Logger != nil {
				m.Logger.Debug("gate redirect",
					slog.String("path", r.URL.Path),
					slog.String("outcome", decision.Outcome),
					slog.String("location", decision.Location))
			}
			http.Redirect(w, r, decision.Location, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func skip(pathname string) bool {
	for _, prefix := range skipPrefixes {
		if pathname == prefix || strings.HasPrefix(pathname, prefix+"/") {
			return true
		}
	}
	return false
}
