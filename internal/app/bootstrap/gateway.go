// internal/app/bootstrap/gateway.go
package bootstrap

import (
	"context"
	"fmt"

	cachebucketstore "github.com/dalemusser/doctorsyria/internal/app/store/cachebuckets"
	"github.com/dalemusser/doctorsyria/internal/app/system/offlinecache"
	"github.com/dalemusser/doctorsyria/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ShellManifest lists the application shell resources installed into the
// cache bucket: the shell root, its HTML entry, the stylesheet bundle and
// the script bundle, all under basePath.
func ShellManifest(basePath string) []string {
	return []string{
		basePath + "/",
		basePath + "/index.html",
		basePath + "/static/css/main.css",
		basePath + "/static/js/bundle.js",
	}
}

// cacheStorage picks the bucket storage backend for the configuration.
func cacheStorage(appCfg AppConfig, deps DBDeps) (offlinecache.Storage, error) {
	if appCfg.storageMongo() {
		if deps.MongoDatabase == nil {
			return nil, fmt.Errorf("cache_storage=mongo but no MongoDB connection")
		}
		return cachebucketstore.New(deps.MongoDatabase), nil
	}
	return offlinecache.NewMemoryStorage(), nil
}

// startGateway builds the gateway, installs the manifest and activates it.
// An install failure is returned as-is so startup aborts with
// offlinecache.ErrInstallFailed.
func startGateway(ctx context.Context, appCfg AppConfig, storage offlinecache.Storage, fetcher offlinecache.Fetcher, logger *zap.Logger) (*offlinecache.Gateway, error) {
	gw := offlinecache.New(offlinecache.Config{
		CacheName: appCfg.CacheName,
		Manifest:  ShellManifest(appCfg.ShellBasePath),
	}, storage, fetcher, logger.Named("offlinecache"))

	installCtx, cancel := timeouts.WithTimeout(ctx, timeouts.Install(), logger, "offline cache install")
	defer cancel()

	if err := gw.Install(installCtx); err != nil {
		return nil, err
	}
	if err := gw.Activate(ctx); err != nil {
		return nil, err
	}
	return gw, nil
}
