// internal/app/features/images/handler.go
package images

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/doctorsyria/internal/app/system/imagecdn"
	"go.uber.org/zap"
)

// Handler exposes the image CDN resolver over HTTP.
type Handler struct {
	Resolver *imagecdn.Resolver
	Log      *zap.Logger
}

// NewHandler constructs a new Handler.
func NewHandler(resolver *imagecdn.Resolver, logger *zap.Logger) *Handler {
	return &Handler{
		Resolver: resolver,
		Log:      logger,
	}
}

type resolveResponse struct {
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

// ServeResolve handles GET /images/resolve?path=...&width=&height=&quality=&format=
//
// On success: 200 and { "url": "https://cdn.../x.png?width=100" }
// On bad input: 400 and { "error": "…" }
func (h *Handler) ServeResolve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	q := r.URL.Query()
	path := strings.TrimSpace(q.Get("path"))
	if path == "" {
		writeResolve(w, http.StatusBadRequest, resolveResponse{Error: "path is required"})
		return
	}

	var opts imagecdn.Options
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"width", &opts.Width},
		{"height", &opts.Height},
		{"quality", &opts.Quality},
	} {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			writeResolve(w, http.StatusBadRequest, resolveResponse{Error: f.name + " must be an integer"})
			return
		}
		*f.dst = n
	}
	opts.Format = imagecdn.Format(strings.ToLower(q.Get("format")))

	url, err := h.Resolver.Resolve(path, opts)
	if errors.Is(err, imagecdn.ErrUnsupportedFormat) ||
		errors.Is(err, imagecdn.ErrInvalidDimension) ||
		errors.Is(err, imagecdn.ErrInvalidPath) {
		writeResolve(w, http.StatusBadRequest, resolveResponse{Error: err.Error()})
		return
	}
	if err != nil {
		h.Log.Error("image resolve failed", zap.String("path", path), zap.Error(err))
		writeResolve(w, http.StatusInternalServerError, resolveResponse{Error: "internal error"})
		return
	}

	writeResolve(w, http.StatusOK, resolveResponse{URL: url})
}

func writeResolve(w http.ResponseWriter, status int, resp resolveResponse) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
