package registry

import (
	"sort"
	"sync"

	"github.com/talentdesk/backoffice/pkg/models"
)

// Session is the in-memory state container behind a screen. Entries
// are keyed by registration key, never by position: concurrent
// refreshes may reorder collections. Each mutation lives as a pending
// overlay until the store confirms the write; a failed write reverts
// the overlay instead of leaving it applied.
type Session struct {
	mu        sync.RWMutex
	committed map[string]models.Registration
	pending   map[string]models.Registration
}

func NewSession() *Session {
	return &Session{
		committed: make(map[string]models.Registration),
		pending:   make(map[string]models.Registration),
	}
}

// Replace swaps the committed collection for a freshly loaded one and
// clears every pending overlay.
func (s *Session) Replace(regs []models.Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = make(map[string]models.Registration, len(regs))
	for _, r := range regs {
		s.committed[r.Key()] = r
	}
	s.pending = make(map[string]models.Registration)
}

// Stage records the optimistic result of a mutation. The UI sees it
// immediately; Commit or Revert resolves it once the write lands.
func (s *Session) Stage(r models.Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[r.Key()] = r
}

// Commit promotes a pending overlay into the committed collection.
func (s *Session) Commit(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.pending[key]; ok {
		s.committed[key] = r
		delete(s.pending, key)
	}
}

// Revert discards a pending overlay after a failed write.
func (s *Session) Revert(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
}

// Drop removes a registration from both maps after a delete.
func (s *Session) Drop(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.committed, key)
	delete(s.pending, key)
}

// Get returns the registration under key, pending overlay first.
func (s *Session) Get(key string) (models.Registration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.pending[key]; ok {
		return r, true
	}
	r, ok := s.committed[key]
	return r, ok
}

// List returns every registration, overlay applied, in key order.
func (s *Session) List() []models.Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Registration, 0, len(s.committed))
	seen := make(map[string]struct{}, len(s.committed))
	for key, r := range s.pending {
		out = append(out, r)
		seen[key] = struct{}{}
	}
	for key, r := range s.committed {
		if _, ok := seen[key]; ok {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Counts returns the number of registrations per status, for the
// badge row.
func (s *Session) Counts() map[models.AssignmentStatus]int {
	counts := make(map[models.AssignmentStatus]int)
	for _, r := range s.List() {
		counts[r.Status()]++
	}
	return counts
}
