// internal/app/system/offlinecache/types.go
package offlinecache

import (
	"net/http"
	"net/url"
	"strings"
)

// RequestKey identifies a cached request. Two requests share a key only when
// method, path and raw query are byte-identical.
type RequestKey struct {
	Method string
	URL    string // path plus "?" and raw query when present
}

// KeyFor builds the RequestKey for an incoming request.
func KeyFor(r *http.Request) RequestKey {
	return RequestKey{Method: strings.ToUpper(r.Method), URL: r.URL.RequestURI()}
}

// GetKey builds the RequestKey for a GET of the given path.
func GetKey(path string) RequestKey {
	if u, err := url.Parse(path); err == nil {
		return RequestKey{Method: http.MethodGet, URL: u.RequestURI()}
	}
	return RequestKey{Method: http.MethodGet, URL: path}
}

func (k RequestKey) String() string {
	return k.Method + " " + k.URL
}

// Response is a stored (or freshly fetched) HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Clone returns a deep copy so callers can't mutate stored entries.
func (r Response) Clone() Response {
	out := Response{Status: r.Status, Header: r.Header.Clone()}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// OK reports whether the status is in the 2xx range.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Entry pairs a key with its response for bulk writes.
type Entry struct {
	Key      RequestKey
	Response Response
}
