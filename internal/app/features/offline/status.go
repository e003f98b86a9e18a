// internal/app/features/offline/status.go
package offline

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/doctorsyria/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// statusResponse is the JSON body of GET /offline/status.
type statusResponse struct {
	CacheName string   `json:"cache_name"`
	Phase     string   `json:"phase"`
	Manifest  []string `json:"manifest"`
	Entries   []string `json:"entries"`
}

// ServeStatus reports the gateway phase and the keys held in its bucket.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Lookup(), h.Log, "offline status")
	defer cancel()

	keys, err := h.Gateway.Keys(ctx)
	if err != nil {
		h.Log.Error("offline status: list keys failed", zap.Error(err))
		http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
		return
	}

	resp := statusResponse{
		CacheName: h.Gateway.CacheName(),
		Phase:     string(h.Gateway.Phase()),
		Manifest:  h.Gateway.Manifest(),
		Entries:   make([]string, 0, len(keys)),
	}
	for _, k := range keys {
		resp.Entries = append(resp.Entries, k.String())
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(resp)
}
