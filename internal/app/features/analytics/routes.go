package analytics

import (
	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes serves analytics, mounted under /admin/analytics.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(models.RoleAdmin))
	r.Get("/", h.ServePage)
	r.Get("/export.csv", h.ServeExport)
	return r
}
