package cachebucketstore_test

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	cachebucketstore "github.com/dalemusser/doctorsyria/internal/app/store/cachebuckets"
	"github.com/dalemusser/doctorsyria/internal/app/system/offlinecache"
	"github.com/dalemusser/doctorsyria/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newStore(t *testing.T) *cachebucketstore.Store {
	t.Helper()
	store, _ := newStoreWithDB(t)
	return store
}

func newStoreWithDB(t *testing.T) (*cachebucketstore.Store, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := cachebucketstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	return store, db
}

func TestStore_Open_CreatesEmptyBucket(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	b, err := store.Open(ctx, "doctor-syria-v1")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if b.Name() != "doctor-syria-v1" {
		t.Errorf("Name: got %q", b.Name())
	}

	keys, err := b.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys, got %v", keys)
	}

	_, ok, err := b.Match(ctx, offlinecache.GetKey("/doctor-syria/"))
	if err != nil || ok {
		t.Errorf("Match on empty bucket: ok=%v err=%v", ok, err)
	}

	// Opening again must not reset or duplicate the bucket.
	if _, err := store.Open(ctx, "doctor-syria-v1"); err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	names, err := store.Names(ctx)
	if err != nil {
		t.Fatalf("Names failed: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"doctor-syria-v1"}) {
		t.Errorf("Names: got %v", names)
	}
}

func TestStore_PutAll_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	b, err := store.Open(ctx, "doctor-syria-v1")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	h := http.Header{}
	h.Set("Content-Type", "text/html")
	entries := []offlinecache.Entry{
		{Key: offlinecache.GetKey("/doctor-syria/"), Response: offlinecache.Response{Status: 200, Header: h, Body: []byte("<html>shell</html>")}},
		{Key: offlinecache.GetKey("/doctor-syria/static/js/bundle.js"), Response: offlinecache.Response{Status: 200, Body: []byte("console.log(1)")}},
	}
	if err := b.PutAll(ctx, entries); err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}

	resp, ok, err := b.Match(ctx, offlinecache.GetKey("/doctor-syria/"))
	if err != nil || !ok {
		t.Fatalf("Match: ok=%v err=%v", ok, err)
	}
	if string(resp.Body) != "<html>shell</html>" {
		t.Errorf("Body: got %q", resp.Body)
	}
	if resp.Header.Get("Content-Type") != "text/html" {
		t.Errorf("Content-Type: got %q", resp.Header.Get("Content-Type"))
	}

	keys, err := b.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	want := []offlinecache.RequestKey{entries[0].Key, entries[1].Key}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys: got %v, want %v", keys, want)
	}

	doc, err := store.Get(ctx, "doctor-syria-v1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.EntryCount != 2 || doc.Generation == "" || doc.InstalledAt == nil {
		t.Errorf("bucket doc not committed: %+v", doc)
	}
}

func TestStore_Put_KeepsExistingEntries(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	b, _ := store.Open(ctx, "doctor-syria-v1")
	first := offlinecache.GetKey("/doctor-syria/index.html")
	second := offlinecache.GetKey("/doctor-syria/static/css/main.css")

	if err := b.Put(ctx, first, offlinecache.Response{Status: 200, Body: []byte("a")}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := b.Put(ctx, second, offlinecache.Response{Status: 200, Body: []byte("b")}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := b.Put(ctx, first, offlinecache.Response{Status: 200, Body: []byte("c")}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	keys, _ := b.Keys(ctx)
	if !reflect.DeepEqual(keys, []offlinecache.RequestKey{first, second}) {
		t.Errorf("Keys: got %v", keys)
	}
	resp, ok, _ := b.Match(ctx, first)
	if !ok || string(resp.Body) != "c" {
		t.Errorf("overwritten entry: ok=%v body=%q", ok, resp.Body)
	}
}

func TestStore_GatewayInstallAgainstMongo(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	manifest := []string{"/doctor-syria/", "/doctor-syria/index.html"}
	fetcher := offlinecache.FetcherFunc(func(_ context.Context, r *http.Request) (offlinecache.Response, error) {
		return offlinecache.Response{Status: 200, Body: []byte(r.URL.Path)}, nil
	})

	gw := offlinecache.New(offlinecache.Config{CacheName: "doctor-syria-v1", Manifest: manifest}, store, fetcher, zap.NewNop())
	if err := gw.Install(ctx); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	keys, err := gw.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != len(manifest) {
		t.Errorf("expected %d keys, got %v", len(manifest), keys)
	}
}

func TestStore_GatewayInstallFailureLeavesBucketEmpty(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fetcher := offlinecache.FetcherFunc(func(_ context.Context, r *http.Request) (offlinecache.Response, error) {
		if r.URL.Path == "/doctor-syria/static/js/bundle.js" {
			return offlinecache.Response{}, errors.New("offline")
		}
		return offlinecache.Response{Status: 200, Body: []byte("ok")}, nil
	})
	gw := offlinecache.New(offlinecache.Config{
		CacheName: "doctor-syria-v2",
		Manifest:  []string{"/doctor-syria/", "/doctor-syria/static/js/bundle.js"},
	}, store, fetcher, zap.NewNop())

	if err := gw.Install(ctx); !errors.Is(err, offlinecache.ErrInstallFailed) {
		t.Fatalf("expected ErrInstallFailed, got %v", err)
	}

	b, _ := store.Open(ctx, "doctor-syria-v2")
	keys, err := b.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected empty bucket, got %v", keys)
	}
}

func shellEntries(paths ...string) []offlinecache.Entry {
	entries := make([]offlinecache.Entry, len(paths))
	for i, p := range paths {
		entries[i] = offlinecache.Entry{
			Key:      offlinecache.GetKey(p),
			Response: offlinecache.Response{Status: http.StatusOK, Body: []byte(p)},
		}
	}
	return entries
}

func TestStore_PutAll_LosingRaceToCompletePeerSucceeds(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	entries := shellEntries("/doctor-syria/", "/doctor-syria/index.html")
	mine, _ := store.Open(ctx, "doctor-syria-v1")
	peer, _ := store.Open(ctx, "doctor-syria-v1")

	// The peer commits the same manifest while this replica is staging.
	var peerErr error
	fired := false
	store.SetBeforeCommit(func() {
		if fired {
			return
		}
		fired = true
		peerErr = peer.PutAll(ctx, entries)
	})

	if err := mine.PutAll(ctx, entries); err != nil {
		t.Fatalf("PutAll after peer commit: got %v, want nil", err)
	}
	if peerErr != nil {
		t.Fatalf("peer PutAll failed: %v", peerErr)
	}

	resp, ok, err := mine.Match(ctx, offlinecache.GetKey("/doctor-syria/index.html"))
	if err != nil || !ok || string(resp.Body) != "/doctor-syria/index.html" {
		t.Errorf("Match after adopting peer commit: ok=%v err=%v body=%q", ok, err, resp.Body)
	}
	doc, err := store.Get(ctx, "doctor-syria-v1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.EntryCount != len(entries) {
		t.Errorf("EntryCount: got %d, want %d", doc.EntryCount, len(entries))
	}
}

func TestStore_PutAll_LosingRaceToDifferentPeerFails(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mine, _ := store.Open(ctx, "doctor-syria-v1")
	peer, _ := store.Open(ctx, "doctor-syria-v1")

	fired := false
	store.SetBeforeCommit(func() {
		if fired {
			return
		}
		fired = true
		_ = peer.PutAll(ctx, shellEntries("/doctor-syria/"))
	})

	err := mine.PutAll(ctx, shellEntries("/doctor-syria/", "/doctor-syria/static/js/bundle.js"))
	if !errors.Is(err, cachebucketstore.ErrConcurrentCommit) {
		t.Fatalf("expected ErrConcurrentCommit, got %v", err)
	}
	keys, _ := mine.Keys(ctx)
	if len(keys) != 1 {
		t.Errorf("peer generation should stand alone, got keys %v", keys)
	}
}

func TestBucket_Match_UsesCommittedGeneration(t *testing.T) {
	store, db := newStoreWithDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	b, _ := store.Open(ctx, "doctor-syria-v1")
	if err := b.PutAll(ctx, shellEntries("/doctor-syria/")); err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}

	// With the bucket document gone, a hit can only come from the
	// generation recorded at commit.
	if _, err := db.Collection("cache_buckets").DeleteMany(ctx, bson.M{}); err != nil {
		t.Fatalf("DeleteMany failed: %v", err)
	}
	resp, ok, err := b.Match(ctx, offlinecache.GetKey("/doctor-syria/"))
	if err != nil || !ok || string(resp.Body) != "/doctor-syria/" {
		t.Errorf("Match: ok=%v err=%v body=%q", ok, err, resp.Body)
	}
}

func TestBucket_Match_FollowsNewerGeneration(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, _ := store.Open(ctx, "doctor-syria-v1")
	if err := first.PutAll(ctx, shellEntries("/doctor-syria/")); err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}

	// Another handle replaces the generation; the old one is discarded.
	second, _ := store.Open(ctx, "doctor-syria-v1")
	if err := second.Put(ctx, offlinecache.GetKey("/doctor-syria/"), offlinecache.Response{Status: http.StatusOK, Body: []byte("v2")}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	resp, ok, err := first.Match(ctx, offlinecache.GetKey("/doctor-syria/"))
	if err != nil || !ok || string(resp.Body) != "v2" {
		t.Errorf("Match after replacement: ok=%v err=%v body=%q", ok, err, resp.Body)
	}
}
