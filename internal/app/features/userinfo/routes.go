// internal/app/features/userinfo/routes.go
package userinfo

import "github.com/go-chi/chi/v5"

// MountRoutes registers GET /api/me on the supplied router. Anonymous
// callers get isAuthenticated=false rather than a 401.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/api/me", h.ServeUserInfo)
}
