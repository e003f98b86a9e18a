// internal/app/features/offline/routes.go
package offline

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ShellRoutes returns the router for the application shell, mounted at the
// shell base path. Every method and path under it goes through the gateway.
func ShellRoutes(h *Handler, middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.Get("/manifest.json", h.ServeManifest)
	r.HandleFunc("/*", h.ServeShell)
	return r
}

// Routes returns the router for the offline cache status API, mounted at /offline.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/status", h.ServeStatus)
	return r
}
