// internal/app/features/images/routes.go
package images

import "github.com/go-chi/chi/v5"

// Routes returns the router for the image CDN feature, mounted at /images.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/resolve", h.ServeResolve)
	return r
}
