// internal/app/store/cachebuckets/cachebucketstore.go
package cachebucketstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/doctorsyria/internal/app/system/offlinecache"
	"github.com/dalemusser/doctorsyria/internal/domain/models"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/blake2b"
)

// ErrConcurrentCommit is returned when another writer committed a new
// generation of the bucket while PutAll was staging entries, and that
// generation does not hold every key PutAll was writing.
var ErrConcurrentCommit = errors.New("cache bucket changed during commit")

// Store provides offline cache buckets backed by the cache_buckets and
// cache_entries collections. It implements offlinecache.Storage.
//
// Entries are written under a fresh generation and become visible only when
// the bucket document's generation is switched to it, so PutAll is
// all-or-nothing even without multi-document transactions.
type Store struct {
	buckets *mongo.Collection
	entries *mongo.Collection

	allocEnc sync.Once
	enc      *zstd.Encoder
	allocDec sync.Once
	dec      *zstd.Decoder

	beforeCommit func() // test hook, runs between staging and commit
}

// New creates a new cache bucket store.
func New(db *mongo.Database) *Store {
	return &Store{
		buckets: db.Collection("cache_buckets"),
		entries: db.Collection("cache_entries"),
	}
}

// EnsureIndexes creates the indexes the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.buckets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_cache_bucket_name"),
	})
	if err != nil {
		return fmt.Errorf("cache_buckets index: %w", err)
	}
	_, err = s.entries.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "bucket", Value: 1}, {Key: "generation", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetName("idx_cache_entry_bucket_gen_seq"),
	})
	if err != nil {
		return fmt.Errorf("cache_entries index: %w", err)
	}
	return nil
}

// Open returns the named bucket, creating its document if absent.
func (s *Store) Open(ctx context.Context, name string) (offlinecache.Bucket, error) {
	filter := bson.M{"name": name}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":         primitive.NewObjectID(),
			"name":        name,
			"generation":  "",
			"entry_count": 0,
			"created_at":  time.Now().UTC(),
		},
	}
	if _, err := s.buckets.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return nil, fmt.Errorf("open cache bucket %q: %w", name, err)
	}
	return &bucket{s: s, name: name}, nil
}

// Names returns every bucket name, sorted. Buckets from older releases stay
// listed until removed by an operator.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	raw, err := s.buckets.Distinct(ctx, "name", bson.M{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		if n, ok := v.(string); ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Get returns the bucket document for name.
func (s *Store) Get(ctx context.Context, name string) (models.CacheBucket, error) {
	var b models.CacheBucket
	err := s.buckets.FindOne(ctx, bson.M{"name": name}).Decode(&b)
	return b, err
}

func (s *Store) encoder() *zstd.Encoder {
	s.allocEnc.Do(func() {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderCRC(false))
		if err != nil {
			panic(err)
		}
		s.enc = enc
	})
	return s.enc
}

func (s *Store) decoder() *zstd.Decoder {
	s.allocDec.Do(func() {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			panic(err)
		}
		s.dec = dec
	})
	return s.dec
}

// entryID is the hex BLAKE2b-256 of the entry's identity.
func entryID(bucket, generation string, key offlinecache.RequestKey) string {
	sum := blake2b.Sum256([]byte(bucket + "\x00" + generation + "\x00" + key.Method + "\x00" + key.URL))
	return hex.EncodeToString(sum[:])
}

type bucket struct {
	s    *Store
	name string

	mu  sync.RWMutex
	gen string // last committed generation seen; "" until known
}

func (b *bucket) Name() string { return b.name }

// generation reads the committed generation and remembers it.
func (b *bucket) generation(ctx context.Context) (string, error) {
	doc, err := b.s.Get(ctx, b.name)
	if err != nil {
		return "", fmt.Errorf("load cache bucket %q: %w", b.name, err)
	}
	b.remember(doc.Generation)
	return doc.Generation, nil
}

func (b *bucket) remember(gen string) {
	b.mu.Lock()
	b.gen = gen
	b.mu.Unlock()
}

func (b *bucket) known() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.gen
}

// Match looks the key up under the remembered generation, so a hit costs a
// single query. On a miss the bucket document is re-read in case a newer
// install replaced the generation.
func (b *bucket) Match(ctx context.Context, key offlinecache.RequestKey) (offlinecache.Response, bool, error) {
	gen := b.known()
	if gen == "" {
		fresh, err := b.generation(ctx)
		if err != nil || fresh == "" {
			return offlinecache.Response{}, false, err
		}
		return b.find(ctx, fresh, key)
	}

	resp, ok, err := b.find(ctx, gen, key)
	if err != nil || ok {
		return resp, ok, err
	}

	fresh, err := b.generation(ctx)
	if err != nil || fresh == "" || fresh == gen {
		return offlinecache.Response{}, false, err
	}
	return b.find(ctx, fresh, key)
}

func (b *bucket) find(ctx context.Context, gen string, key offlinecache.RequestKey) (offlinecache.Response, bool, error) {
	var e models.CacheEntry
	err := b.s.entries.FindOne(ctx, bson.M{"_id": entryID(b.name, gen, key)}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return offlinecache.Response{}, false, nil
	}
	if err != nil {
		return offlinecache.Response{}, false, err
	}

	body, err := b.s.decoder().DecodeAll(e.Body, make([]byte, 0, e.Size))
	if err != nil {
		return offlinecache.Response{}, false, fmt.Errorf("decode cached body for %s: %w", key, err)
	}
	return offlinecache.Response{Status: e.Status, Header: e.Header, Body: body}, true, nil
}

func (b *bucket) Put(ctx context.Context, key offlinecache.RequestKey, resp offlinecache.Response) error {
	return b.PutAll(ctx, []offlinecache.Entry{{Key: key, Response: resp}})
}

// PutAll stages the current entries plus the new ones under a new generation
// and then switches the bucket to it in a single document update.
func (b *bucket) PutAll(ctx context.Context, entries []offlinecache.Entry) error {
	oldGen, err := b.generation(ctx)
	if err != nil {
		return err
	}

	current, err := b.load(ctx, oldGen)
	if err != nil {
		return err
	}

	newGen := uuid.New().String()
	now := time.Now().UTC()
	byKey := make(map[string]int, len(current)+len(entries))
	staged := make([]models.CacheEntry, 0, len(current)+len(entries))

	for _, e := range current {
		k := offlinecache.RequestKey{Method: e.Method, URL: e.URL}
		e.ID = entryID(b.name, newGen, k)
		e.Generation = newGen
		e.Seq = len(staged)
		byKey[e.ID] = len(staged)
		staged = append(staged, e)
	}
	for _, in := range entries {
		doc := models.CacheEntry{
			ID:         entryID(b.name, newGen, in.Key),
			Bucket:     b.name,
			Generation: newGen,
			Method:     in.Key.Method,
			URL:        in.Key.URL,
			Status:     in.Response.Status,
			Header:     in.Response.Header.Clone(),
			Body:       b.s.encoder().EncodeAll(in.Response.Body, nil),
			Size:       len(in.Response.Body),
			StoredAt:   now,
		}
		if i, ok := byKey[doc.ID]; ok {
			doc.Seq = staged[i].Seq
			staged[i] = doc
			continue
		}
		doc.Seq = len(staged)
		byKey[doc.ID] = len(staged)
		staged = append(staged, doc)
	}

	if len(staged) > 0 {
		docs := make([]interface{}, len(staged))
		for i := range staged {
			docs[i] = staged[i]
		}
		if _, err := b.s.entries.InsertMany(ctx, docs); err != nil {
			b.discard(newGen)
			return fmt.Errorf("stage cache entries: %w", err)
		}
	}

	if b.s.beforeCommit != nil {
		b.s.beforeCommit()
	}

	res, err := b.s.buckets.UpdateOne(ctx,
		bson.M{"name": b.name, "generation": oldGen},
		bson.M{"$set": bson.M{
			"generation":   newGen,
			"entry_count":  len(staged),
			"installed_at": now,
		}},
	)
	if err != nil {
		b.discard(newGen)
		return fmt.Errorf("commit cache bucket %q: %w", b.name, err)
	}
	if res.MatchedCount == 0 {
		b.discard(newGen)
		return b.adoptPeerCommit(ctx, entries)
	}

	b.remember(newGen)
	if oldGen != "" {
		b.discard(oldGen)
	}
	return nil
}

// adoptPeerCommit is called after losing the commit race. Replicas sharing a
// database install the same manifest at startup, so when the winner's
// generation already holds every key being written the install is complete.
func (b *bucket) adoptPeerCommit(ctx context.Context, entries []offlinecache.Entry) error {
	gen, err := b.generation(ctx)
	if err != nil {
		return err
	}
	if gen == "" {
		return ErrConcurrentCommit
	}

	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		id := entryID(b.name, gen, e.Key)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}

	n, err := b.s.entries.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return fmt.Errorf("check peer commit of cache bucket %q: %w", b.name, err)
	}
	if int(n) != len(ids) {
		return ErrConcurrentCommit
	}
	return nil
}

// discard removes entries of an uncommitted or superseded generation. It
// uses its own context so cleanup still runs when the caller's is done.
func (b *bucket) discard(generation string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = b.s.entries.DeleteMany(ctx, bson.M{"bucket": b.name, "generation": generation})
}

func (b *bucket) load(ctx context.Context, generation string) ([]models.CacheEntry, error) {
	if generation == "" {
		return nil, nil
	}
	cur, err := b.s.entries.Find(ctx,
		bson.M{"bucket": b.name, "generation": generation},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.CacheEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Keys returns the committed keys in insertion order.
func (b *bucket) Keys(ctx context.Context) ([]offlinecache.RequestKey, error) {
	gen, err := b.generation(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := b.load(ctx, gen)
	if err != nil {
		return nil, err
	}
	keys := make([]offlinecache.RequestKey, len(entries))
	for i, e := range entries {
		keys[i] = offlinecache.RequestKey{Method: e.Method, URL: e.URL}
	}
	return keys, nil
}
