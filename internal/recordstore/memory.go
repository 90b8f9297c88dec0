package recordstore

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// Memory is an in-process Store holding a nested JSON tree. It backs
// tests and the local dev loop. Writes normalize values through JSON
// so reads behave exactly like the remote store.
type Memory struct {
	mu   sync.RWMutex
	root map[string]any

	// FailWrites, when set, makes every write fail with a StoreError.
	// Tests use it to exercise the optimistic-revert path.
	FailWrites bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{root: make(map[string]any)}
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Read returns the subtree at path, or (nil, nil) when absent.
func (m *Memory) Read(ctx context.Context, path string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StoreError{Op: "read", Path: path, Err: err}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var node any = m.root
	for _, seg := range splitPath(path) {
		child, ok := node.(map[string]any)
		if !ok {
			return nil, nil
		}
		node, ok = child[seg]
		if !ok {
			return nil, nil
		}
	}
	if isEmpty(node) {
		return nil, nil
	}
	data, err := json.Marshal(node)
	if err != nil {
		return nil, &StoreError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// WriteMany applies every update under one lock: all or nothing from
// the point of view of concurrent readers.
func (m *Memory) WriteMany(ctx context.Context, updates map[string]any) error {
	if err := ctx.Err(); err != nil {
		return &StoreError{Op: "write_many", Path: "", Err: err}
	}
	normalized := make(map[string]any, len(updates))
	for path, value := range updates {
		v, err := normalize(value)
		if err != nil {
			return &StoreError{Op: "write_many", Path: path, Err: err}
		}
		normalized[path] = v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return &StoreError{Op: "write_many", Path: "", Err: context.DeadlineExceeded}
	}
	for path, value := range normalized {
		m.set(path, value)
	}
	return nil
}

// WriteOne writes a single path, not atomic with anything else.
func (m *Memory) WriteOne(ctx context.Context, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return &StoreError{Op: "write_one", Path: path, Err: err}
	}
	v, err := normalize(value)
	if err != nil {
		return &StoreError{Op: "write_one", Path: path, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return &StoreError{Op: "write_one", Path: path, Err: context.DeadlineExceeded}
	}
	m.set(path, v)
	return nil
}

func (m *Memory) set(path string, value any) {
	segs := splitPath(path)
	if len(segs) == 0 {
		if value == nil {
			m.root = make(map[string]any)
		} else if obj, ok := value.(map[string]any); ok {
			m.root = obj
		}
		return
	}
	node := m.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			if value == nil {
				return
			}
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}
	last := segs[len(segs)-1]
	if value == nil {
		delete(node, last)
		return
	}
	node[last] = value
}

// normalize round-trips the value through JSON so stored trees only
// contain maps, slices, and primitives.
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func isEmpty(node any) bool {
	if node == nil {
		return true
	}
	if m, ok := node.(map[string]any); ok {
		return len(m) == 0
	}
	return false
}

var _ Store = (*Memory)(nil)
