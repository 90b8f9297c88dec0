// Package registry is the service layer behind the assignment
// lifecycle: it runs transitions through the state machine, turns the
// resulting deltas into fan-out write plans, applies them to the
// record store, and keeps the optimistic session state and the local
// cache in step.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/talentdesk/backoffice/internal/assignment"
	"github.com/talentdesk/backoffice/internal/cache"
	"github.com/talentdesk/backoffice/internal/config"
	"github.com/talentdesk/backoffice/internal/index"
	"github.com/talentdesk/backoffice/internal/metrics"
	"github.com/talentdesk/backoffice/internal/recordstore"
	"github.com/talentdesk/backoffice/pkg/models"
)

// cache keys for the bulk collections
const (
	cacheKeyRegistrations = "registrations_index"
	cacheKeyClients       = "clients"
)

// cacheKeyDashboard scopes the cached dashboard view to one principal.
func cacheKeyDashboard(role, principalID string) string {
	return "dashboard_" + role + "_" + principalID
}

type Service struct {
	store   recordstore.Store
	cache   *cache.Store
	windows config.CacheConfig
	session *Session
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// New wires the service. cache may be nil for cache-less callers
// (the reconcile worker); metrics nil falls back to a private
// registry, logger nil to slog.Default.
func New(store recordstore.Store, cacheStore *cache.Store, windows config.CacheConfig, m *metrics.Metrics, logger *slog.Logger) *Service {
	if m == nil {
		m = metrics.NewNop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		cache:   cacheStore,
		windows: windows,
		session: NewSession(),
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Session exposes the optimistic state container to the API layer.
func (s *Service) Session() *Session { return s.session }

// Registration loads one registration, session first, store second.
func (s *Service) Registration(ctx context.Context, clientID, registrationID string) (models.Registration, error) {
	key := clientID + "_" + registrationID
	if r, ok := s.session.Get(key); ok {
		return r, nil
	}
	data, err := s.store.Read(ctx, index.RegistrationPath(clientID, registrationID))
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("read").Inc()
		return models.Registration{}, err
	}
	if data == nil {
		return models.Registration{}, fmt.Errorf("registration %s/%s: %w", clientID, registrationID, ErrNotFound)
	}
	var r models.Registration
	if err := json.Unmarshal(data, &r); err != nil {
		return models.Registration{}, fmt.Errorf("decode registration %s/%s: %w", clientID, registrationID, err)
	}
	r.ClientID = clientID
	r.RegistrationID = registrationID
	return r, nil
}

// transition runs one state machine trigger end to end: stage the
// optimistic result, issue the fan-out write, commit or revert, then
// best-effort patch the cached flat index.
func (s *Service) transition(ctx context.Context, trigger string, prev models.Registration, delta assignment.Delta) (models.Registration, error) {
	updated := delta.Apply(prev)
	plan := index.TransitionPlan(prev, delta)

	s.session.Stage(updated)
	if err := s.store.WriteMany(ctx, plan); err != nil {
		s.session.Revert(updated.Key())
		s.metrics.Transitions.WithLabelValues(trigger, "store_error").Inc()
		s.metrics.StoreErrors.WithLabelValues("write_many").Inc()
		s.logger.Error("transition write failed",
			slog.String("trigger", trigger),
			slog.String("registration", updated.Key()),
			slog.Any("err", err),
		)
		return prev, err
	}
	s.session.Commit(updated.Key())
	s.metrics.Transitions.WithLabelValues(trigger, "ok").Inc()

	s.patchCachedIndex(ctx, updated.Key(), models.IndexRecordFor(updated))
	return updated, nil
}

// patchCachedIndex merges a mutated record into the cached flat index
// so a stale-but-not-expired read does not show reverted data. value
// nil removes the record. Failures are logged, never propagated.
func (s *Service) patchCachedIndex(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.PatchByKey(ctx, cacheKeyRegistrations, key, value); err != nil {
		s.logger.Warn("cache patch failed", slog.String("key", key), slog.Any("err", err))
	}
}

func (s *Service) run(ctx context.Context, trigger string, clientID, registrationID string, fn func(models.Registration) (assignment.Delta, error)) (models.Registration, error) {
	prev, err := s.Registration(ctx, clientID, registrationID)
	if err != nil {
		return models.Registration{}, err
	}
	delta, err := fn(prev)
	if err != nil {
		// guard failures never touch the store
		s.metrics.Transitions.WithLabelValues(trigger, "guard").Inc()
		return prev, err
	}
	return s.transition(ctx, trigger, prev, delta)
}

// Accept moves a screened registration into the manager queue.
func (s *Service) Accept(ctx context.Context, clientID, registrationID string) (models.Registration, error) {
	return s.run(ctx, "accept", clientID, registrationID, assignment.Accept)
}

// Unaccept sends a pending_manager registration back to registered.
func (s *Service) Unaccept(ctx context.Context, clientID, registrationID string) (models.Registration, error) {
	return s.run(ctx, "unaccept", clientID, registrationID, assignment.Unaccept)
}

// Decline rejects a registration.
func (s *Service) Decline(ctx context.Context, clientID, registrationID string) (models.Registration, error) {
	return s.run(ctx, "decline", clientID, registrationID, assignment.Decline)
}

// Restore re-enters a rejected registration at pending_manager.
func (s *Service) Restore(ctx context.Context, clientID, registrationID string) (models.Registration, error) {
	return s.run(ctx, "restore", clientID, registrationID, assignment.Restore)
}

// ToggleActive flips a registration between active and inactive.
func (s *Service) ToggleActive(ctx context.Context, clientID, registrationID string) (models.Registration, error) {
	return s.run(ctx, "toggle", clientID, registrationID, assignment.Toggle)
}

// AssignManager assigns or reassigns the responsible manager. The old
// manager's reverse-index entry is removed in the same fan-out write.
func (s *Service) AssignManager(ctx context.Context, clientID, registrationID, managerID, managerName string) (models.Registration, error) {
	assignedDate := s.now().UTC().Format("2006-01-02")
	return s.run(ctx, "select_manager", clientID, registrationID, func(r models.Registration) (assignment.Delta, error) {
		return assignment.SelectManager(r, managerID, managerName, assignedDate)
	})
}

// AssignEmployee assigns or reassigns the recruiter. The employee
// reverse-index entry rides in the same atomic fan-out write.
func (s *Service) AssignEmployee(ctx context.Context, clientID, registrationID, employeeID string) (models.Registration, error) {
	return s.run(ctx, "assign_employee", clientID, registrationID, func(r models.Registration) (assignment.Delta, error) {
		return assignment.AssignEmployee(r, employeeID)
	})
}

// Delete permanently removes a registration: primary record, flat
// index record, application collection, and reverse-index entries go
// in one atomic write.
func (s *Service) Delete(ctx context.Context, clientID, registrationID string) error {
	prev, err := s.Registration(ctx, clientID, registrationID)
	if err != nil {
		return err
	}
	plan := index.DeletePlan(prev)
	if err := s.store.WriteMany(ctx, plan); err != nil {
		s.metrics.StoreErrors.WithLabelValues("write_many").Inc()
		s.logger.Error("delete write failed", slog.String("registration", prev.Key()), slog.Any("err", err))
		return err
	}
	s.session.Drop(prev.Key())
	s.patchCachedIndex(ctx, prev.Key(), nil)
	return nil
}

// Counts returns the per-status registration counts for badges.
func (s *Service) Counts() map[models.AssignmentStatus]int {
	return s.session.Counts()
}
