// internal/domain/models/cachebucket.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CacheBucket is the committed state of one named offline cache.
// Generation identifies the install whose entries are visible; entries
// written under any other generation are ignored.
type CacheBucket struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	Generation  string             `bson:"generation"`
	EntryCount  int                `bson:"entry_count"`
	CreatedAt   time.Time          `bson:"created_at"`
	InstalledAt *time.Time         `bson:"installed_at,omitempty"`
}

// CacheEntry is one stored response. Body is zstd-compressed.
type CacheEntry struct {
	ID         string              `bson:"_id"` // hex BLAKE2b of bucket, generation, method, url
	Bucket     string              `bson:"bucket"`
	Generation string              `bson:"generation"`
	Method     string              `bson:"method"`
	URL        string              `bson:"url"`
	Status     int                 `bson:"status"`
	Header     map[string][]string `bson:"header"`
	Body       []byte              `bson:"body"`
	Size       int                 `bson:"size"` // uncompressed body length
	Seq        int                 `bson:"seq"`  // insertion order within a generation
	StoredAt   time.Time           `bson:"stored_at"`
}
