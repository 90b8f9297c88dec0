package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	dbpkg "github.com/talentdesk/backoffice/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	d, err := dbpkg.New(ctx, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cache_entries (key TEXT PRIMARY KEY, data TEXT NOT NULL, cached_at INTEGER NOT NULL)`,
		`DELETE FROM cache_entries`,
	}
	for _, s := range stmts {
		if _, err := d.Exec(ctx, s); err != nil {
			t.Fatalf("failed to exec schema: %v", err)
		}
	}
	return New(d, nil)
}

func TestGetAbsent(t *testing.T) {
	s := setupStore(t)
	entry, err := s.Get(context.Background(), "registrations")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil entry for absent key, got %+v", entry)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	data := json.RawMessage(`{"c1_r1":{"status":"active"}}`)
	if err := s.Put(ctx, "registrations", data); err != nil {
		t.Fatalf("put: %v", err)
	}
	entry, err := s.Get(ctx, "registrations")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry")
	}
	if string(entry.Data) != string(data) {
		t.Fatalf("data = %s", entry.Data)
	}
	if entry.CachedAt == 0 {
		t.Fatal("cached_at not stamped")
	}
}

func TestFreshnessBoundary(t *testing.T) {
	window := 2 * time.Minute
	p := Policy{Window: window}
	now := time.Now()

	hit := &Entry{CachedAt: now.UnixMilli()}
	if !p.Fresh(hit, now) {
		t.Fatal("entry cached right now must be a hit")
	}

	stale := &Entry{CachedAt: now.Add(-window - time.Second).UnixMilli()}
	if p.Fresh(stale, now) {
		t.Fatal("entry older than the window must be a miss")
	}

	edge := &Entry{CachedAt: now.Add(-window).UnixMilli()}
	if p.Fresh(edge, now) {
		t.Fatal("entry exactly at the window boundary must be a miss")
	}

	if p.Fresh(nil, now) {
		t.Fatal("nil entry must be a miss")
	}
}

func TestPatchByKeyPreservesCachedAt(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "registrations", json.RawMessage(`{"c1_r1":{"status":"registered"},"c2_r9":{"status":"active"}}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	before, _ := s.Get(ctx, "registrations")

	if err := s.PatchByKey(ctx, "registrations", "c1_r1", map[string]string{"status": "pending_manager"}); err != nil {
		t.Fatalf("patch: %v", err)
	}

	after, err := s.Get(ctx, "registrations")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.CachedAt != before.CachedAt {
		t.Fatalf("patch must not extend the entry's life: %d vs %d", after.CachedAt, before.CachedAt)
	}
	var collection map[string]map[string]string
	if err := json.Unmarshal(after.Data, &collection); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if collection["c1_r1"]["status"] != "pending_manager" {
		t.Fatalf("patched item = %v", collection["c1_r1"])
	}
	if collection["c2_r9"]["status"] != "active" {
		t.Fatalf("untouched item changed: %v", collection["c2_r9"])
	}
}

func TestPatchByKeyRemoves(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "registrations", json.RawMessage(`{"c1_r1":{"status":"active"}}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PatchByKey(ctx, "registrations", "c1_r1", nil); err != nil {
		t.Fatalf("patch: %v", err)
	}
	entry, _ := s.Get(ctx, "registrations")
	var collection map[string]json.RawMessage
	if err := json.Unmarshal(entry.Data, &collection); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := collection["c1_r1"]; ok {
		t.Fatal("item should have been removed from the cached collection")
	}
}

func TestPatchMissingEntryIsNoop(t *testing.T) {
	s := setupStore(t)
	if err := s.PatchByKey(context.Background(), "nope", "k", map[string]string{}); err != nil {
		t.Fatalf("patching a missing entry should be a no-op, got %v", err)
	}
}
