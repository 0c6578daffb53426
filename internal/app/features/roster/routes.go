package roster

import (
	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes serves the roster, mounted under /admin/users.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(models.RoleAdmin))
	r.Get("/", h.ServePage)
	r.Get("/more", h.ServeMore)
	r.Post("/{uid}/role", h.HandleRole)
	return r
}
