// Package pages serves the portal page payloads behind the route guard.
// Page content itself lives upstream; these handlers confirm access and
// return the page shell the front-end renders.
package pages

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightpath-hq/brightpath/internal/guard"
	"github.com/brightpath-hq/brightpath/internal/platform/httpx"
	"github.com/brightpath-hq/brightpath/internal/session"
	"github.com/brightpath-hq/brightpath/internal/shared"
)

// Handler serves guarded page routes.
type Handler struct {
	logger    *slog.Logger
	protector guard.Protector
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, protector guard.Protector) *Handler {
	return &Handler{logger: logger, protector: protector}
}

// MountRoutes registers the page routes with their access constraints. The
// constraints mirror the gatekeeper's prefix table; the guard re-checks them
// against the backend-confirmed identity.
func (h *Handler) MountRoutes(r chi.Router) {
	anySession := h.protector.Protect(guard.Requirement{})
	r.With(anySession).Get("/dashboard", h.page("dashboard"))
	r.With(anySession).Get("/profile", h.page("profile"))
	r.With(anySession).Get("/settings", h.page("settings"))

	adminOnly := h.protector.Protect(guard.Requirement{RequiredRole: shared.RoleAdmin})
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminOnly)
		r.Get("/", h.page("admin"))
		r.Get("/analytics", h.page("admin_analytics"))
	})

	hrmsRoles := h.protector.Protect(guard.Requirement{
		AllowedRoles: []shared.Role{shared.RoleAdmin, shared.RolePartialAdmin},
	})
	r.Route("/hrms", func(r chi.Router) {
		r.Use(hrmsRoles)
		r.Get("/dashboard", h.page("hrms_dashboard"))
	})
}

func (h *Handler) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := session.StoreFromContext(r.Context())
		var user *shared.Identity
		if store != nil {
			user = store.State().User
		}
		httpx.JSON(w, http.StatusOK, map[string]any{
			"page": name,
			"user": user,
		})
	}
}
