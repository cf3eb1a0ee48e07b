package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKey_Deterministic(t *testing.T) {
	a := Key("model-a", "sys", "user", 512)
	b := Key("model-a", "sys", "user", 512)
	if a != b {
		t.Error("identical inputs must produce identical keys")
	}
	if Key("model-b", "sys", "user", 512) == a {
		t.Error("different model must change the key")
	}
	if Key("model-a", "sys", "user", 1024) == a {
		t.Error("different token budget must change the key")
	}
}

func TestKey_AutoTagForEmptyModel(t *testing.T) {
	if Key("", "s", "u", 100) != Key("auto", "s", "u", 100) {
		t.Error("empty model must be keyed as auto")
	}
}

func TestKey_NormalizesWhitespace(t *testing.T) {
	if Key("m", "sys", "user text", 100) != Key("m", "  sys  ", "user text\n", 100) {
		t.Error("surrounding whitespace must not change the key")
	}
}

func TestStore_PutGetRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := Key("m", "sys", "user", 200)
	if err := s.Put(ctx, key, "m", "user", "completion text"); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, found, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found {
		t.Fatal("expected a cache hit")
	}
	if got != "completion text" {
		t.Errorf("got %q", got)
	}
}

func TestStore_Miss(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.Get(context.Background(), Key("m", "s", "u", 1))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found {
		t.Error("expected a miss")
	}
}

func TestStore_WriteOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := Key("m", "s", "u", 100)
	if err := s.Put(ctx, key, "m", "u", "first"); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := s.Put(ctx, key, "m", "u", "second"); err != nil {
		t.Fatalf("second put failed: %v", err)
	}

	got, _, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != "first" {
		t.Errorf("entries must be write-once, got %q", got)
	}
}

func TestStore_UsageCountAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	k1 := Key("m1", "s", "u1", 100)
	k2 := Key("m2", "s", "u2", 100)
	s.Put(ctx, k1, "m1", "u1", "c1")
	s.Put(ctx, k2, "m2", "u2", "c2")
	s.Get(ctx, k1)
	s.Get(ctx, k1)

	stats, err := s.CacheStats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalEntries != 2 {
		t.Errorf("expected 2 entries, got %d", stats.TotalEntries)
	}
	if stats.TotalHits != 2 {
		t.Errorf("expected 2 hits, got %d", stats.TotalHits)
	}
	if stats.Models != 2 {
		t.Errorf("expected 2 models, got %d", stats.Models)
	}
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Put(ctx, Key("m", "s", "u", 1), "m", "u", "c")
	n, err := s.Clear(ctx)
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 cleared entry, got %d", n)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty cache, got %d entries", len(entries))
	}
}
