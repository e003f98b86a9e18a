// internal/app/system/offlinecache/memory.go
package offlinecache

import (
	"context"
	"sort"
	"sync"
)

// MemoryStorage keeps buckets in process memory. Contents are lost on restart.
type MemoryStorage struct {
	mu      sync.Mutex
	buckets map[string]*memoryBucket
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{buckets: make(map[string]*memoryBucket)}
}

// Open returns the bucket with the given name, creating it if absent.
func (s *MemoryStorage) Open(_ context.Context, name string) (Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[name]
	if !ok {
		b = &memoryBucket{name: name, entries: make(map[RequestKey]Response)}
		s.buckets[name] = b
	}
	return b, nil
}

// Names lists the buckets created so far, sorted.
func (s *MemoryStorage) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.buckets))
	for n := range s.buckets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type memoryBucket struct {
	name    string
	mu      sync.RWMutex
	entries map[RequestKey]Response
	order   []RequestKey
}

func (b *memoryBucket) Name() string { return b.name }

func (b *memoryBucket) Match(_ context.Context, key RequestKey) (Response, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	resp, ok := b.entries[key]
	if !ok {
		return Response{}, false, nil
	}
	return resp.Clone(), true, nil
}

func (b *memoryBucket) Put(_ context.Context, key RequestKey, resp Response) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.putLocked(key, resp)
	return nil
}

func (b *memoryBucket) PutAll(_ context.Context, entries []Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range entries {
		b.putLocked(e.Key, e.Response)
	}
	return nil
}

func (b *memoryBucket) putLocked(key RequestKey, resp Response) {
	if _, exists := b.entries[key]; !exists {
		b.order = append(b.order, key)
	}
	b.entries[key] = resp.Clone()
}

// Keys returns keys in insertion order.
func (b *memoryBucket) Keys(_ context.Context) ([]RequestKey, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]RequestKey(nil), b.order...), nil
}
