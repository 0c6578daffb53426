// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes serves the sign-in initiators, mounted under /login.
// These routes are public (no authentication required).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{provider}", h.ServeLogin)
	return r
}

// CallbackRoutes serves the provider callbacks, mounted under /auth.
func CallbackRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{provider}/callback", h.ServeCallback)
	return r
}
