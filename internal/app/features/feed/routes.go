package feed

import (
	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes serves the admin feed, mounted under /admin/feed.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(models.RoleAdmin))
	r.Get("/", h.ServePage)
	r.Get("/more", h.ServeMore)
	r.Post("/{id}/status", h.HandleStatus)
	return r
}
