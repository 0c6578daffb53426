package catalog

import (
	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes serves catalog management, mounted under /admin/catalog.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(models.RoleAdmin))
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}/delete", h.ServeDeleteConfirm)
	r.Post("/{id}/delete", h.HandleDelete)
	return r
}

// StreamRoutes serves the live catalog stream, mounted under /catalog.
func StreamRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/stream", h.ServeStream)
	return r
}
