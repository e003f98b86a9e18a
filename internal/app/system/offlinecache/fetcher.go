// internal/app/system/offlinecache/fetcher.go
package offlinecache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Fetcher performs the live network fetch behind the gateway.
type Fetcher interface {
	Fetch(ctx context.Context, r *http.Request) (Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, r *http.Request) (Response, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, r *http.Request) (Response, error) {
	return f(ctx, r)
}

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// HTTPFetcher forwards requests to a fixed upstream origin. Only the request
// URI of the incoming request is used; scheme and host come from Origin.
type HTTPFetcher struct {
	Client *http.Client
	Origin *url.URL
}

// NewHTTPFetcher parses origin and returns a fetcher. A nil client gets a
// fresh http.Client. Redirects are never followed: a 3xx from upstream is
// handed back to the caller with its Location intact.
func NewHTTPFetcher(origin string, client *http.Client) (*HTTPFetcher, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse upstream origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream origin %q must be absolute", origin)
	}
	c := &http.Client{}
	if client != nil {
		*c = *client
	}
	c.CheckRedirect = noFollow
	return &HTTPFetcher{Client: c, Origin: u}, nil
}

// Fetch sends r to the upstream origin and reads the full response.
// Transport errors are returned as-is; non-2xx statuses are not errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, r *http.Request) (Response, error) {
	target := strings.TrimRight(f.Origin.String(), "/") + r.URL.RequestURI()

	out, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return Response{}, err
	}
	out.Header = r.Header.Clone()
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	stripHopHeaders(out.Header)
	out.ContentLength = r.ContentLength

	resp, err := f.Client.Do(out)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}

	header := resp.Header.Clone()
	stripHopHeaders(header)
	return Response{Status: resp.StatusCode, Header: header, Body: body}, nil
}

func noFollow(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func stripHopHeaders(h http.Header) {
	for _, k := range hopHeaders {
		h.Del(k)
	}
}
