package history

import (
	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes serves the submission history, mounted under /tasks/history.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(models.RoleUser))
	r.Get("/", h.ServePage)
	r.Get("/more", h.ServeMore)
	return r
}
