// internal/app/features/offline/handler.go
package offline

import (
	"github.com/dalemusser/doctorsyria/internal/app/system/imagecdn"
	"github.com/dalemusser/doctorsyria/internal/app/system/offlinecache"
	"go.uber.org/zap"
)

// Handler is the dependency container for the offline shell feature.
type Handler struct {
	Gateway  *offlinecache.Gateway
	Images   *imagecdn.Resolver
	BasePath string // e.g., "/doctor-syria"
	Log      *zap.Logger
}

// NewHandler constructs a new Handler.
func NewHandler(gw *offlinecache.Gateway, images *imagecdn.Resolver, basePath string, logger *zap.Logger) *Handler {
	return &Handler{
		Gateway:  gw,
		Images:   images,
		BasePath: basePath,
		Log:      logger,
	}
}
