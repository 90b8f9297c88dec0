// Package cache is the local persistent cache used to avoid
// re-fetching large collections from the record store. Entries carry a
// captured-at timestamp and are served only within a per-collection
// freshness window. Cache failures never block the primary flow: they
// are logged and the cache is treated as empty.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/talentdesk/backoffice/internal/db"
)

// CacheError wraps a failed cache read or write. Callers log it and
// fall back to the record store; it must never surface to the user.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// Entry is one cached collection: the raw JSON plus the capture time
// in unix milliseconds.
type Entry struct {
	Data     json.RawMessage
	CachedAt int64
}

// Store persists cache entries in the local sqlite database.
type Store struct {
	conn   *db.DB
	logger *slog.Logger
	now    func() time.Time
}

// New creates a cache store. A nil logger defaults to slog.Default.
func New(conn *db.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{conn: conn, logger: logger, now: time.Now}
}

// Get returns the entry stored under key, or nil when absent.
func (s *Store) Get(ctx context.Context, key string) (*Entry, error) {
	row := s.conn.QueryRow(ctx, `SELECT data, cached_at FROM cache_entries WHERE key = ?`, key)
	var data string
	var cachedAt int64
	if err := row.Scan(&data, &cachedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, &CacheError{Op: "get", Key: key, Err: err}
	}
	return &Entry{Data: json.RawMessage(data), CachedAt: cachedAt}, nil
}

// Put stores data under key with a fresh captured-at stamp.
func (s *Store) Put(ctx context.Context, key string, data json.RawMessage) error {
	now := s.now().UTC().UnixMilli()
	_, err := s.conn.Exec(ctx,
		`INSERT INTO cache_entries (key, data, cached_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET data=excluded.data, cached_at=excluded.cached_at`,
		key, string(data), now)
	if err != nil {
		return &CacheError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// PatchByKey merges one item into a cached JSON object collection,
// preserving the original captured-at stamp so the patch does not
// extend the entry's life. itemValue nil removes the item. A missing
// entry is a no-op. Best effort: callers log the returned error and
// move on.
func (s *Store) PatchByKey(ctx context.Context, cacheKey, itemKey string, itemValue any) error {
	entry, err := s.Get(ctx, cacheKey)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}
	var collection map[string]json.RawMessage
	if err := json.Unmarshal(entry.Data, &collection); err != nil {
		return &CacheError{Op: "patch", Key: cacheKey, Err: err}
	}
	if itemValue == nil {
		delete(collection, itemKey)
	} else {
		b, err := json.Marshal(itemValue)
		if err != nil {
			return &CacheError{Op: "patch", Key: cacheKey, Err: err}
		}
		collection[itemKey] = b
	}
	merged, err := json.Marshal(collection)
	if err != nil {
		return &CacheError{Op: "patch", Key: cacheKey, Err: err}
	}
	_, err = s.conn.Exec(ctx, `UPDATE cache_entries SET data = ? WHERE key = ?`, string(merged), cacheKey)
	if err != nil {
		return &CacheError{Op: "patch", Key: cacheKey, Err: err}
	}
	return nil
}

// Delete removes an entry.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.conn.Exec(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return &CacheError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Policy decides whether a cached entry is still fresh for one screen.
type Policy struct {
	Window time.Duration
}

// Fresh reports whether the entry may be served without refetching:
// now minus the capture time must be strictly inside the window.
func (p Policy) Fresh(e *Entry, now time.Time) bool {
	if e == nil || p.Window <= 0 {
		return false
	}
	age := now.Sub(time.UnixMilli(e.CachedAt))
	return age >= 0 && age < p.Window
}
