// Package imagecdn builds image URLs on the CDN origin and issues preload
// hints for the images every page needs.
//
// Resolve is pure: the same path and options always produce the same string.
// Query parameters are emitted in the fixed order width, height, quality,
// format, and only for attributes that are set.
package imagecdn

import (
	"errors"
	"strconv"
	"strings"
)

// DefaultOrigin is used when no CDN origin is configured.
const DefaultOrigin = "https://cdn.doctor-syria.com"

var (
	// ErrUnsupportedFormat is returned for a format outside webp, jpeg, png.
	ErrUnsupportedFormat = errors.New("imagecdn: unsupported image format")
	// ErrInvalidDimension is returned for a negative width, height or quality.
	ErrInvalidDimension = errors.New("imagecdn: invalid image dimension")
	// ErrInvalidPath is returned for a path carrying a query or fragment.
	ErrInvalidPath = errors.New("imagecdn: image path must not contain '?' or '#'")
)

// Format is an output image encoding understood by the CDN.
type Format string

const (
	FormatWebP Format = "webp"
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	switch f {
	case FormatWebP, FormatJPEG, FormatPNG:
		return true
	}
	return false
}

// Options are the optional resize and encoding attributes of an image
// request. Zero values mean "not set".
type Options struct {
	Width   int
	Height  int
	Quality int
	Format  Format
}

// Resolver builds CDN URLs for a single origin.
type Resolver struct {
	origin string
}

// New returns a Resolver for origin, or for DefaultOrigin when origin is blank.
func New(origin string) *Resolver {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		origin = DefaultOrigin
	}
	return &Resolver{origin: strings.TrimRight(origin, "/")}
}

// Origin returns the base URL the resolver appends paths to.
func (r *Resolver) Origin() string { return r.origin }

// Resolve returns the CDN URL for path with the given options applied.
func (r *Resolver) Resolve(path string, opts Options) (string, error) {
	if opts.Format != "" && !opts.Format.Valid() {
		return "", ErrUnsupportedFormat
	}
	if opts.Width < 0 || opts.Height < 0 || opts.Quality < 0 {
		return "", ErrInvalidDimension
	}
	if strings.ContainsAny(path, "?#") {
		return "", ErrInvalidPath
	}

	var b strings.Builder
	b.WriteString(r.origin)
	if !strings.HasPrefix(path, "/") {
		b.WriteByte('/')
	}
	b.WriteString(path)

	sep := byte('?')
	add := func(key, value string) {
		b.WriteByte(sep)
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(value)
		sep = '&'
	}
	if opts.Width > 0 {
		add("width", strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		add("height", strconv.Itoa(opts.Height))
	}
	if opts.Quality > 0 {
		add("quality", strconv.Itoa(opts.Quality))
	}
	if opts.Format != "" {
		add("format", string(opts.Format))
	}

	return b.String(), nil
}
