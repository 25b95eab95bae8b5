// Package guard re-validates access after the session store has rehydrated.
// It is the backstop for the stale-cookie window the gatekeeper cannot see:
// the gatekeeper trusts the cookie snapshot, the guard trusts the
// backend-confirmed identity.
package guard

import (
	"log/slog"
	"net/http"

	"github.com/brightpath-hq/brightpath/internal/platform/httpx"
	"github.com/brightpath-hq/brightpath/internal/session"
	"github.com/brightpath-hq/brightpath/internal/shared"
)

// Requirement is the per-route access constraint.
type Requirement struct {
	RequiredRole shared.Role
	AllowedRoles []shared.Role
	// RedirectTo overrides the default redirect target.
	RedirectTo string
}

// Status is the guard state machine position for one check.
type Status int

const (
	// StatusChecking means the session has not rehydrated yet; no redirect
	// decision may be made and no protected content may be shown.
	StatusChecking Status = iota
	// StatusAuthorized admits the request.
	StatusAuthorized
	// StatusRedirecting is terminal for this pass; a fresh navigation
	// restarts the machine.
	StatusRedirecting
)

// Result is the guard verdict.
type Result struct {
	Status   Status
	Location string
}

// Check evaluates the requirement against a session snapshot. It is pure:
// callers re-run it whenever the snapshot changes.
func Check(req Requirement, st session.State) Result {
	if st.Loading || !st.Rehydrated {
		return Result{Status: StatusChecking}
	}
	if st.User == nil {
		target := req.RedirectTo
		if target == "" {
			target = "/login"
		}
		return Result{Status: StatusRedirecting, Location: target}
	}
	target := req.RedirectTo
	if target == "" {
		// An authenticated user with the wrong role goes home, not back to
		// login where the gatekeeper would bounce them again.
		target = "/dashboard"
	}
	if req.RequiredRole != "" && st.User.Role != req.RequiredRole {
		return Result{Status: StatusRedirecting, Location: target}
	}
	if len(req.AllowedRoles) > 0 && !st.User.Role.In(req.AllowedRoles) {
		return Result{Status: StatusRedirecting, Location: target}
	}
	return Result{Status: StatusAuthorized}
}

// Protector wires the guard into HTTP handlers.
type Protector struct {
	Logger *slog.Logger
}

// Protect rehydrates the request's store, then applies Check. Redirects are
// 303 with Cache-Control: no-store so back-navigation cannot replay
// protected content.
func (p Protector) Protect(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := session.StoreFromContext(r.Context())
			if store == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if err := store.Rehydrate(r.Context()); err != nil && p.Logger != nil {
				p.Logger.Debug("rehydrate", slog.Any("error", err))
			}

			switch result := Check(req, store.State()); result.Status {
			case StatusAuthorized:
				next.ServeHTTP(w, r)
			case StatusRedirecting:
				w.Header().Set("Cache-Control", "no-store")
				http.Redirect(w, r, result.Location, http.StatusSeeOther)
			default:
				// Rehydrate always settles the snapshot; reaching here means
				// a bug, not a slow upstream.
				httpx.Problem(w, http.StatusServiceUnavailable, "Session Pending", "")
			}
		})
	}
}
