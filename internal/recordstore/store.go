// Package recordstore defines the contract of the remote hierarchical
// record store and its two implementations: the REST client used in
// production and an in-memory tree used by tests and the dev loop.
package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store is the narrow contract the rest of the system consumes.
//
// Read returns the JSON value stored at path, or (nil, nil) when the
// path is absent. WriteMany applies a map of path to value as one
// atomic unit; nil values delete their path. WriteOne writes a single
// path and is NOT atomic with any other call. None of the calls retry:
// a failed write surfaces as a StoreError and the caller decides what
// to do with its in-memory state.
type Store interface {
	Read(ctx context.Context, path string) (json.RawMessage, error)
	WriteMany(ctx context.Context, updates map[string]any) error
	WriteOne(ctx context.Context, path string, value any) error
}

// StoreError wraps a failed read or write against the record store.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("record store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("record store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
