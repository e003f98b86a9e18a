// internal/app/system/offlinecache/gateway.go
package offlinecache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInstallFailed is returned (wrapped) when any manifest entry could
	// not be fetched. Nothing is written to the bucket in that case.
	ErrInstallFailed = errors.New("offline cache install failed")

	// ErrInvalidPhase is returned when a lifecycle step is called out of order.
	ErrInvalidPhase = errors.New("offline cache: invalid lifecycle phase")
)

// uncacheableHeaders are never written to a bucket.
var uncacheableHeaders = []string{"Set-Cookie", "Set-Cookie2"}

// Phase is the gateway lifecycle state.
type Phase string

const (
	PhaseNew        Phase = "new"
	PhaseInstalling Phase = "installing"
	PhaseInstalled  Phase = "installed"
	PhaseActivated  Phase = "activated"
	PhaseFailed     Phase = "failed"
)

// Config names the bucket and lists the paths to pre-populate.
type Config struct {
	CacheName string
	Manifest  []string
}

// Gateway answers requests from a write-once cache bucket and falls back to
// the network on a miss.
type Gateway struct {
	cfg     Config
	storage Storage
	fetcher Fetcher
	log     *zap.Logger

	mu     sync.RWMutex
	phase  Phase
	bucket Bucket
}

// New constructs a Gateway in PhaseNew.
func New(cfg Config, storage Storage, fetcher Fetcher, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		cfg:     Config{CacheName: cfg.CacheName, Manifest: append([]string(nil), cfg.Manifest...)},
		storage: storage,
		fetcher: fetcher,
		log:     logger,
		phase:   PhaseNew,
	}
}

// CacheName returns the configured bucket name.
func (g *Gateway) CacheName() string { return g.cfg.CacheName }

// Manifest returns a copy of the asset manifest.
func (g *Gateway) Manifest() []string { return append([]string(nil), g.cfg.Manifest...) }

// Phase returns the current lifecycle phase.
func (g *Gateway) Phase() Phase {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.phase
}

// Install opens the bucket and stores every manifest entry, or none of them.
// Requests arriving while Install runs go straight to the network.
func (g *Gateway) Install(ctx context.Context) error {
	g.mu.Lock()
	if g.phase != PhaseNew {
		phase := g.phase
		g.mu.Unlock()
		return fmt.Errorf("%w: install from %s", ErrInvalidPhase, phase)
	}
	g.phase = PhaseInstalling
	g.mu.Unlock()

	bucket, err := g.install(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.phase = PhaseFailed
		g.log.Error("offline cache install failed",
			zap.String("cache", g.cfg.CacheName),
			zap.Error(err))
		return err
	}

	g.bucket = bucket
	g.phase = PhaseInstalled
	g.log.Info("offline cache installed",
		zap.String("cache", g.cfg.CacheName),
		zap.Int("entries", len(g.cfg.Manifest)))
	return nil
}

func (g *Gateway) install(ctx context.Context) (Bucket, error) {
	bucket, err := g.storage.Open(ctx, g.cfg.CacheName)
	if err != nil {
		return nil, fmt.Errorf("%w: open bucket %q: %w", ErrInstallFailed, g.cfg.CacheName, err)
	}

	entries := make([]Entry, len(g.cfg.Manifest))
	eg, egctx := errgroup.WithContext(ctx)
	for i, path := range g.cfg.Manifest {
		eg.Go(func() error {
			resp, err := g.fetchManifestEntry(egctx, path)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInstallFailed, path, err)
			}
			entries[i] = Entry{Key: GetKey(path), Response: storable(resp)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if err := bucket.PutAll(ctx, entries); err != nil {
		return nil, fmt.Errorf("%w: store entries: %w", ErrInstallFailed, err)
	}
	return bucket, nil
}

func (g *Gateway) fetchManifestEntry(ctx context.Context, path string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return Response{}, err
	}
	resp, err := g.fetcher.Fetch(ctx, req)
	if err != nil {
		return Response{}, err
	}
	if !resp.OK() {
		return Response{}, fmt.Errorf("unexpected status %d", resp.Status)
	}
	return resp, nil
}

// storable drops per-client headers so one install-time cookie is never
// replayed to every visitor.
func storable(resp Response) Response {
	out := resp.Clone()
	for _, k := range uncacheableHeaders {
		out.Header.Del(k)
	}
	return out
}

// Activate makes an installed gateway start answering from its bucket.
func (g *Gateway) Activate(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseInstalled {
		return fmt.Errorf("%w: activate from %s", ErrInvalidPhase, g.phase)
	}
	g.phase = PhaseActivated
	g.log.Info("offline cache activated", zap.String("cache", g.cfg.CacheName))
	return nil
}

// Fetch answers r from the bucket when possible, otherwise performs exactly
// one network fetch and returns its result unchanged. It never writes to the
// bucket. Until the gateway is activated every request goes to the network.
func (g *Gateway) Fetch(ctx context.Context, r *http.Request) (Response, error) {
	g.mu.RLock()
	active, bucket := g.phase == PhaseActivated, g.bucket
	g.mu.RUnlock()

	if active && r.Method == http.MethodGet {
		key := KeyFor(r)
		resp, ok, err := bucket.Match(ctx, key)
		if err != nil {
			g.log.Warn("offline cache lookup failed",
				zap.String("key", key.String()),
				zap.Error(err))
		} else if ok {
			return resp, nil
		}
	}

	return g.fetcher.Fetch(ctx, r)
}

// Keys lists the keys currently stored in the gateway's bucket. It returns
// nil before a successful install.
func (g *Gateway) Keys(ctx context.Context) ([]RequestKey, error) {
	g.mu.RLock()
	bucket := g.bucket
	g.mu.RUnlock()
	if bucket == nil {
		return nil, nil
	}
	return bucket.Keys(ctx)
}
