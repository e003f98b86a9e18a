// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the doctor-syria edge.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: cache_name, upstream_origin, etc.
//   - Environment variables: DOCTORSYRIA_CACHE_NAME, DOCTORSYRIA_UPSTREAM_ORIGIN, etc.
//   - Command-line flags: --cache_name, --upstream_origin, etc.
var appConfigKeys = []config.AppKey{
	{Name: "cache_name", Default: "doctor-syria-v1", Desc: "Offline cache bucket name (bump to invalidate across releases)"},
	{Name: "cache_storage", Default: "memory", Desc: "Cache bucket storage: 'memory' or 'mongo'"},
	{Name: "shell_base_path", Default: "/doctor-syria", Desc: "Path the front-end shell is mounted at"},
	{Name: "upstream_origin", Default: "http://localhost:5173", Desc: "Origin serving the front-end shell and assets"},
	{Name: "image_cdn_origin", Default: "", Desc: "Image CDN origin (blank uses https://cdn.doctor-syria.com)"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI (cache_storage=mongo)"},
	{Name: "mongo_database", Default: "doctor_syria", Desc: "MongoDB database name (cache_storage=mongo)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges flags > env > files > defaults;
// app keys use the DOCTORSYRIA_ environment prefix.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "DOCTORSYRIA", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		CacheName:      strings.TrimSpace(appValues.String("cache_name")),
		CacheStorage:   strings.ToLower(strings.TrimSpace(appValues.String("cache_storage"))),
		ShellBasePath:  normalizeBasePath(appValues.String("shell_base_path")),
		UpstreamOrigin: strings.TrimSpace(appValues.String("upstream_origin")),
		ImageCDNOrigin: strings.TrimSpace(appValues.String("image_cdn_origin")),
		MongoURI:       appValues.String("mongo_uri"),
		MongoDatabase:  appValues.String("mongo_database"),
	}

	logger.Info("offline cache configured",
		zap.String("cache_name", appCfg.CacheName),
		zap.String("cache_storage", appCfg.CacheStorage),
		zap.String("shell_base_path", appCfg.ShellBasePath),
		zap.String("upstream_origin", appCfg.UpstreamOrigin))

	return coreCfg, appCfg, nil
}

// normalizeBasePath yields "/x" style paths: leading slash, no trailing slash.
// The root mount is "".
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if appCfg.CacheName == "" {
		return fmt.Errorf("cache_name must not be empty")
	}

	switch appCfg.CacheStorage {
	case "memory":
	case "mongo":
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return fmt.Errorf("cache_storage=mongo requires mongo_database")
		}
	default:
		return fmt.Errorf("cache_storage must be 'memory' or 'mongo', got %q", appCfg.CacheStorage)
	}

	u, err := url.Parse(appCfg.UpstreamOrigin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream_origin must be an absolute URL, got %q", appCfg.UpstreamOrigin)
	}

	if appCfg.ImageCDNOrigin != "" {
		u, err := url.Parse(appCfg.ImageCDNOrigin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("image_cdn_origin must be an absolute URL, got %q", appCfg.ImageCDNOrigin)
		}
	}

	return nil
}
