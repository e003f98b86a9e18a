// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, logging and timeouts; everything below is specific to the
// doctor-syria edge.
type AppConfig struct {
	// Offline cache
	CacheName     string // Cache bucket name; bump to invalidate (e.g., doctor-syria-v2)
	CacheStorage  string // "memory" or "mongo"
	ShellBasePath string // Mount point of the front-end (e.g., /doctor-syria)

	// Upstream front-end origin that serves the shell and assets
	UpstreamOrigin string // e.g., "http://localhost:5173"

	// Image CDN origin; blank falls back to imagecdn.DefaultOrigin
	ImageCDNOrigin string

	// MongoDB connection configuration (only used when CacheStorage is "mongo")
	MongoURI      string
	MongoDatabase string
}

// storageMongo reports whether cache buckets are persisted in MongoDB.
func (c AppConfig) storageMongo() bool {
	return c.CacheStorage == "mongo"
}
