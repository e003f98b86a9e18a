// internal/app/system/offlinecache/storage.go
package offlinecache

import "context"

// Storage is the host capability that holds named cache buckets. Buckets are
// created on first Open and are never removed by the gateway.
type Storage interface {
	Open(ctx context.Context, name string) (Bucket, error)
}

// Bucket is a single named cache.
//
// PutAll must be atomic: either every entry becomes visible or none does.
type Bucket interface {
	Name() string
	Match(ctx context.Context, key RequestKey) (Response, bool, error)
	Put(ctx context.Context, key RequestKey, resp Response) error
	PutAll(ctx context.Context, entries []Entry) error
	Keys(ctx context.Context) ([]RequestKey, error)
}
