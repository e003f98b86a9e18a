// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	healthfeature "github.com/dalemusser/doctorsyria/internal/app/features/health"
	imagesfeature "github.com/dalemusser/doctorsyria/internal/app/features/images"
	offlinefeature "github.com/dalemusser/doctorsyria/internal/app/features/offline"
	"github.com/dalemusser/doctorsyria/internal/app/system/imagecdn"
	"github.com/dalemusser/doctorsyria/internal/app/system/offlinecache"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. The offline gateway is installed and
// activated here, before the server starts accepting requests; a failed
// install aborts startup.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	storage, err := cacheStorage(appCfg, deps)
	if err != nil {
		logger.Error("cache storage init failed", zap.Error(err))
		return nil, err
	}

	fetcher, err := offlinecache.NewHTTPFetcher(appCfg.UpstreamOrigin, nil)
	if err != nil {
		logger.Error("upstream fetcher init failed", zap.Error(err))
		return nil, err
	}

	gw, err := startGateway(context.Background(), appCfg, storage, fetcher, logger)
	if err != nil {
		return nil, err
	}

	return newRouter(appCfg, deps, gw, imagecdn.New(appCfg.ImageCDNOrigin), logger), nil
}

// newRouter mounts the feature routers around an activated gateway.
func newRouter(appCfg AppConfig, deps DBDeps, gw *offlinecache.Gateway, resolver *imagecdn.Resolver, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, gw, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Image CDN URLs and critical-image preload hints
	imagesHandler := imagesfeature.NewHandler(resolver, logger)
	r.Mount("/images", imagesfeature.Routes(imagesHandler))

	// Offline cache status and the application shell
	offlineHandler := offlinefeature.NewHandler(gw, resolver, appCfg.ShellBasePath, logger)
	r.Mount("/offline", offlinefeature.Routes(offlineHandler))

	shell := offlinefeature.ShellRoutes(offlineHandler, imagesHandler.PreloadCritical)
	if appCfg.ShellBasePath == "" {
		r.Mount("/", shell)
	} else {
		r.Mount(appCfg.ShellBasePath, shell)
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, appCfg.ShellBasePath+"/", http.StatusFound)
		})
	}

	return r
}
