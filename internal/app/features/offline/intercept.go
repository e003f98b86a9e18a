// internal/app/features/offline/intercept.go
package offline

import (
	"net/http"

	"go.uber.org/zap"
)

// ServeShell answers a request under the shell base path through the
// gateway: from the cache bucket on a hit, from upstream otherwise.
// Upstream failures become 502 with no fallback page.
func (h *Handler) ServeShell(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Gateway.Fetch(r.Context(), r)
	if err != nil {
		h.Log.Warn("offline gateway: upstream fetch failed",
			zap.String("method", r.Method),
			zap.String("uri", r.URL.RequestURI()),
			zap.Error(err))
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	dst := w.Header()
	for k, vv := range resp.Header {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	w.WriteHeader(resp.Status)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(resp.Body)
}
