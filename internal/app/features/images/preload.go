// internal/app/features/images/preload.go
package images

import (
	"net/http"
	"strings"

	"github.com/dalemusser/doctorsyria/internal/app/system/imagecdn"
)

// PreloadCritical returns middleware that attaches preload Link headers for
// the critical images to shell document responses (paths ending in "/" or
// ".html"). Other requests pass through untouched.
func (h *Handler) PreloadCritical(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && isDocument(r.URL.Path) {
			p := imagecdn.NewPreloader(h.Resolver, imagecdn.LinkHeaderSink{Header: w.Header()}, h.Log)
			p.PreloadCritical()
		}
		next.ServeHTTP(w, r)
	})
}

func isDocument(path string) bool {
	return path == "" || strings.HasSuffix(path, "/") || strings.HasSuffix(path, ".html")
}
