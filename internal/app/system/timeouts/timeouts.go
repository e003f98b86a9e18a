// Package timeouts provides centralized timeout values for I/O done outside
// the request path of the offline gateway.
//
// Intercepted requests carry no timeout of their own: a hung upstream hangs
// the request, exactly like the underlying fetch. The values here bound the
// operations the service starts itself:
//   - Ping: health checks against MongoDB
//   - Lookup: status reads of the cache bucket
//   - Install: populating the asset manifest at startup
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing    = 2 * time.Second
	DefaultLookup  = 5 * time.Second
	DefaultInstall = 60 * time.Second
)

var mu sync.RWMutex

var (
	ping    = DefaultPing
	lookup  = DefaultLookup
	install = DefaultInstall
)

// Ping returns the timeout for health checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Lookup returns the timeout for bucket reads made by status endpoints.
func Lookup() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return lookup
}

// Install returns the timeout for fetching and storing the asset manifest.
func Install() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return install
}

// Config holds timeout configuration values.
// Zero values are ignored (defaults are kept).
type Config struct {
	Ping    time.Duration
	Lookup  time.Duration
	Install time.Duration
}

// Configure sets custom timeout values. Zero values in the config are ignored.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Lookup > 0 {
		lookup = cfg.Lookup
	}
	if cfg.Install > 0 {
		install = cfg.Install
	}
}

// Reset restores all timeouts to their default values.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	lookup = DefaultLookup
	install = DefaultInstall
}

// ConfigureFromEnv reads TIMEOUT_PING, TIMEOUT_LOOKUP and TIMEOUT_INSTALL
// (Go duration strings). Unset or invalid values are skipped.
// Returns the number of timeouts configured.
func ConfigureFromEnv() int {
	var cfg Config
	configured := 0
	for name, dst := range map[string]*time.Duration{
		"TIMEOUT_PING":    &cfg.Ping,
		"TIMEOUT_LOOKUP":  &cfg.Lookup,
		"TIMEOUT_INSTALL": &cfg.Install,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
			configured++
		}
	}
	Configure(cfg)
	return configured
}

// Current returns the current timeout configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Lookup: lookup, Install: install}
}

// WithTimeout creates a context with timeout and returns a cancel function that
// logs a warning if the context hit its deadline.
//
//	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Install(), logger, "offline cache install")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
