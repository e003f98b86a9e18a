package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/doctorsyria/internal/app/system/offlinecache"
	"github.com/dalemusser/doctorsyria/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client  *mongo.Client // nil when the cache uses in-memory storage
	Gateway *offlinecache.Gateway
	Log     *zap.Logger
}

// NewHandler constructs a health Handler.
func NewHandler(client *mongo.Client, gw *offlinecache.Gateway, logger *zap.Logger) *Handler {
	return &Handler{
		Client:  client,
		Gateway: gw,
		Log:     logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
	Phase    string `json:"phase"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "cache":"doctor-syria-v1", "phase":"activated" }
//
// When the gateway is not serving from its cache, or MongoDB is configured
// and unreachable: 503 with "status":"error".
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "not_configured",
		Cache:    h.Gateway.CacheName(),
		Phase:    string(h.Gateway.Phase()),
	}

	if h.Client != nil {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
		defer cancel()

		if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
			h.Log.Error("health-check: mongo ping failed", zap.Error(err))
			resp.Status = "error"
			resp.Database = "disconnected"
			resp.Message = "Database unavailable"
			resp.Error = err.Error()
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}
		resp.Database = "connected"
	}

	if h.Gateway.Phase() != offlinecache.PhaseActivated {
		resp.Status = "error"
		resp.Message = "Offline cache not active"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	_ = json.NewEncoder(w).Encode(resp)
}
