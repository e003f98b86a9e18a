// internal/app/system/imagecdn/preload.go
package imagecdn

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// CriticalPaths are preloaded on every shell document: the logo and the
// three navigation icons.
var CriticalPaths = []string{
	"/images/logo.png",
	"/icons/doctor.svg",
	"/icons/hospital.svg",
	"/icons/pharmacy.svg",
}

// ErrNoHeader is returned by a LinkHeaderSink with no header to write to.
var ErrNoHeader = errors.New("imagecdn: link header sink has no header")

// HintSink receives preload hints for the hosting document.
type HintSink interface {
	Preload(url string) error
}

// LinkHeaderSink emits preload hints as HTTP Link headers.
type LinkHeaderSink struct {
	Header http.Header
}

// Preload appends a Link header for url.
func (s LinkHeaderSink) Preload(url string) error {
	if s.Header == nil {
		return ErrNoHeader
	}
	s.Header.Add("Link", "<"+url+">; rel=preload; as=image")
	return nil
}

// Preloader resolves paths and forwards them to a sink. Failures are
// logged at debug level and otherwise ignored.
type Preloader struct {
	Resolver *Resolver
	Sink     HintSink
	Log      *zap.Logger
}

// NewPreloader constructs a Preloader.
func NewPreloader(resolver *Resolver, sink HintSink, logger *zap.Logger) *Preloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preloader{Resolver: resolver, Sink: sink, Log: logger}
}

// Preload issues a hint for path resolved without options.
func (p *Preloader) Preload(path string) {
	url, err := p.Resolver.Resolve(path, Options{})
	if err != nil {
		p.Log.Debug("preload: resolve failed", zap.String("path", path), zap.Error(err))
		return
	}
	if err := p.Sink.Preload(url); err != nil {
		p.Log.Debug("preload: hint not issued", zap.String("url", url), zap.Error(err))
	}
}

// PreloadCritical issues one hint per entry in CriticalPaths, in order.
func (p *Preloader) PreloadCritical() {
	for _, path := range CriticalPaths {
		p.Preload(path)
	}
}
