package imagecdn

import (
	"errors"
	"net/http"
	"testing"

	"go.uber.org/zap"
)

func TestResolve_NoOptionsHasNoQuery(t *testing.T) {
	cdn := New("https://cdn.example.com")
	got, err := cdn.Resolve("/x.png", Options{})
	if err != nil {
		t.Fatalf("resolve url: %v", err)
	}
	want := "https://cdn.example.com/x.png"
	if got != want {
		t.Fatalf("cdn.Resolve(...) = %q, want %q", got, want)
	}
}

func TestResolve_AllOptionsInFixedOrder(t *testing.T) {
	cdn := New("https://cdn.example.com")
	got, err := cdn.Resolve("/x.png", Options{Width: 100, Height: 50, Quality: 80, Format: FormatWebP})
	if err != nil {
		t.Fatalf("resolve url: %v", err)
	}
	want := "https://cdn.example.com/x.png?width=100&height=50&quality=80&format=webp"
	if got != want {
		t.Fatalf("cdn.Resolve(...) = %q, want %q", got, want)
	}
}

func TestResolve_OmitsUnsetAttributes(t *testing.T) {
	cdn := New("https://cdn.example.com")
	tests := []struct {
		opts Options
		want string
	}{
		{Options{Width: 320}, "https://cdn.example.com/a.jpg?width=320"},
		{Options{Height: 90, Format: FormatPNG}, "https://cdn.example.com/a.jpg?height=90&format=png"},
		{Options{Quality: 60}, "https://cdn.example.com/a.jpg?quality=60"},
		{Options{Format: FormatJPEG}, "https://cdn.example.com/a.jpg?format=jpeg"},
	}
	for _, tt := range tests {
		got, err := cdn.Resolve("/a.jpg", tt.opts)
		if err != nil {
			t.Fatalf("Resolve(%+v): %v", tt.opts, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%+v) = %q, want %q", tt.opts, got, tt.want)
		}
	}
}

func TestResolve_Deterministic(t *testing.T) {
	cdn := New("https://cdn.example.com")
	opts := Options{Width: 10, Height: 20, Quality: 30, Format: FormatPNG}
	a, _ := cdn.Resolve("/icons/doctor.svg", opts)
	b, _ := cdn.Resolve("/icons/doctor.svg", opts)
	if a != b {
		t.Fatalf("Resolve not deterministic: %q vs %q", a, b)
	}
}

func TestResolve_RejectsUnsupportedFormat(t *testing.T) {
	cdn := New("https://cdn.example.com")
	_, err := cdn.Resolve("/x.png", Options{Format: "gif"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("cdn.Resolve(...) error = %v, want %v", err, ErrUnsupportedFormat)
	}
}

func TestResolve_RejectsNegativeDimension(t *testing.T) {
	cdn := New("https://cdn.example.com")
	_, err := cdn.Resolve("/x.png", Options{Width: -1})
	if !errors.Is(err, ErrInvalidDimension) {
		t.Fatalf("cdn.Resolve(...) error = %v, want %v", err, ErrInvalidDimension)
	}
}

func TestResolve_RejectsQueryOrFragmentInPath(t *testing.T) {
	cdn := New("https://cdn.example.com")
	for _, path := range []string{"/x.png?width=1", "/x.png#top", "/x.png?"} {
		got, err := cdn.Resolve(path, Options{Width: 100})
		if !errors.Is(err, ErrInvalidPath) {
			t.Errorf("cdn.Resolve(%q) = %q, %v, want %v", path, got, err, ErrInvalidPath)
		}
	}
}

func TestNew_DefaultsOriginAndJoinsPaths(t *testing.T) {
	if got := New("").Origin(); got != DefaultOrigin {
		t.Errorf("Origin() = %q, want %q", got, DefaultOrigin)
	}

	cdn := New("https://cdn.example.com/assets/")
	got, _ := cdn.Resolve("img/logo.png", Options{})
	if got != "https://cdn.example.com/assets/img/logo.png" {
		t.Errorf("Resolve joined path = %q", got)
	}
}

type recordingSink struct {
	urls []string
	err  error
}

func (s *recordingSink) Preload(url string) error {
	s.urls = append(s.urls, url)
	return s.err
}

func TestPreloadCritical_IssuesFourHintsInOrder(t *testing.T) {
	cdn := New("https://cdn.example.com")
	sink := &recordingSink{}
	NewPreloader(cdn, sink, zap.NewNop()).PreloadCritical()

	if len(sink.urls) != 4 {
		t.Fatalf("expected 4 preload calls, got %d", len(sink.urls))
	}
	for i, path := range CriticalPaths {
		want, _ := cdn.Resolve(path, Options{})
		if sink.urls[i] != want {
			t.Errorf("hint %d = %q, want %q", i, sink.urls[i], want)
		}
	}
}

func TestPreloadCritical_IgnoresSinkErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("document gone")}
	NewPreloader(New(""), sink, nil).PreloadCritical()

	if len(sink.urls) != len(CriticalPaths) {
		t.Errorf("expected every hint attempted, got %d", len(sink.urls))
	}
}

func TestLinkHeaderSink(t *testing.T) {
	h := http.Header{}
	NewPreloader(New("https://cdn.example.com"), LinkHeaderSink{Header: h}, nil).Preload("/images/logo.png")

	got := h.Values("Link")
	want := "<https://cdn.example.com/images/logo.png>; rel=preload; as=image"
	if len(got) != 1 || got[0] != want {
		t.Errorf("Link headers = %v, want [%q]", got, want)
	}

	if err := (LinkHeaderSink{}).Preload("x"); !errors.Is(err, ErrNoHeader) {
		t.Errorf("nil header sink error = %v, want %v", err, ErrNoHeader)
	}
}
