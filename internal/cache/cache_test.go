package cache_test

import (
	"testing"

	"github.com/cmtlang/deadvalue/internal/cache"
)

func openTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestContentHashIsStableAndSensitiveToInput(t *testing.T) {
	a := cache.ContentHash([]byte("one"))
	b := cache.ContentHash([]byte("one"))
	c := cache.ContentHash([]byte("two"))
	if a != b {
		t.Errorf("hashing the same bytes twice should produce the same digest")
	}
	if a == c {
		t.Errorf("hashing different bytes should produce different digests")
	}
}

func TestArtifactLookupMissThenStoreThenHit(t *testing.T) {
	c := openTestCache(t)
	hash := cache.ContentHash([]byte("artifact contents"))

	if _, ok, err := c.Lookup(hash); err != nil || ok {
		t.Fatalf("expected a cache miss before Store, got ok=%v err=%v", ok, err)
	}

	want := []byte(`{"name":"M"}`)
	if err := c.Store(hash, "m.cmt.json", want); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, ok, err := c.Lookup(hash)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit after Store")
	}
	if string(got) != string(want) {
		t.Errorf("got %q, want %q", got, want)
	}

	// Storing again under the same hash overwrites rather than erroring.
	updated := []byte(`{"name":"M2"}`)
	if err := c.Store(hash, "m2.cmt.json", updated); err != nil {
		t.Fatalf("Store (overwrite): %v", err)
	}
	got, _, err = c.Lookup(hash)
	if err != nil {
		t.Fatalf("Lookup after overwrite: %v", err)
	}
	if string(got) != string(updated) {
		t.Errorf("expected the overwritten value, got %q", got)
	}
}

func TestDumpRoundTripPerSessionAndKind(t *testing.T) {
	c := openTestCache(t)

	if err := c.StoreDump("sess-1", "closure", []byte("closure-blob")); err != nil {
		t.Fatalf("StoreDump closure: %v", err)
	}
	if err := c.StoreDump("sess-1", "liveness", []byte("liveness-blob")); err != nil {
		t.Fatalf("StoreDump liveness: %v", err)
	}
	if err := c.StoreDump("sess-2", "closure", []byte("other-session-blob")); err != nil {
		t.Fatalf("StoreDump other session: %v", err)
	}

	got, ok, err := c.LoadDump("sess-1", "closure")
	if err != nil || !ok || string(got) != "closure-blob" {
		t.Errorf("LoadDump(sess-1, closure) = %q, %v, %v; want closure-blob, true, nil", got, ok, err)
	}
	got, ok, err = c.LoadDump("sess-1", "liveness")
	if err != nil || !ok || string(got) != "liveness-blob" {
		t.Errorf("LoadDump(sess-1, liveness) = %q, %v, %v; want liveness-blob, true, nil", got, ok, err)
	}
	got, ok, err = c.LoadDump("sess-2", "closure")
	if err != nil || !ok || string(got) != "other-session-blob" {
		t.Errorf("LoadDump(sess-2, closure) = %q, %v, %v; want other-session-blob, true, nil", got, ok, err)
	}

	if _, ok, err := c.LoadDump("sess-1", "warnings"); err != nil || ok {
		t.Errorf("expected a miss for an unstored kind, got ok=%v err=%v", ok, err)
	}
}
