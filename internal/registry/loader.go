package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/talentdesk/backoffice/internal/cache"
	"github.com/talentdesk/backoffice/internal/index"
	"github.com/talentdesk/backoffice/pkg/models"
)

// ErrNotFound marks reads of records that do not exist.
var ErrNotFound = errors.New("not found")

// DashboardRecord joins a primary registration with its job
// application collection.
type DashboardRecord struct {
	Registration models.Registration     `json:"registration"`
	Applications []models.JobApplication `json:"applications,omitempty"`
}

// Dashboard is the role-scoped view for one manager or employee:
// three disjoint life-cycle buckets plus the flattened application
// list and its interview subset.
type Dashboard struct {
	Unassigned   []DashboardRecord       `json:"unassigned"`
	Active       []DashboardRecord       `json:"active"`
	Inactive     []DashboardRecord       `json:"inactive"`
	Applications []models.JobApplication `json:"applications"`
	Interviews   []models.JobApplication `json:"interviews"`
}

// Registrations serves the agency-wide flat index, local cache first.
// A fresh cache entry is used verbatim; otherwise the store is read
// once, the session repopulated, and the cache written back with a new
// captured-at stamp.
func (s *Service) Registrations(ctx context.Context) ([]models.IndexRecord, error) {
	raw, err := s.loadCollection(ctx, cacheKeyRegistrations, index.FlatIndexRoot(), cache.Policy{Window: s.windows.RegistrationsWindow})
	if err != nil {
		return nil, err
	}

	records := make(map[string]models.IndexRecord)
	if raw != nil {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decode flat index: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		// screen went away mid-load; discard instead of updating state
		return nil, err
	}
	regs := make([]models.Registration, 0, len(records))
	out := make([]models.IndexRecord, 0, len(records))
	for key, ir := range records {
		if ir.ClientID == "" {
			// older rows carry the ids only in the map key
			ir.ClientID, ir.RegistrationID = splitKey(key)
		}
		out = append(out, ir)
		regs = append(regs, registrationFromIndex(ir))
	}
	s.session.Replace(regs)
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// Clients serves the client roster under its long freshness window.
func (s *Service) Clients(ctx context.Context) ([]models.Client, error) {
	raw, err := s.loadCollection(ctx, cacheKeyClients, index.ClientsRoot(), cache.Policy{Window: s.windows.ClientsWindow})
	if err != nil {
		return nil, err
	}

	clients := make(map[string]models.Client)
	if raw != nil {
		if err := json.Unmarshal(raw, &clients); err != nil {
			return nil, fmt.Errorf("decode client roster: %w", err)
		}
	}
	out := make([]models.Client, 0, len(clients))
	for id, c := range clients {
		c.ID = id
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Client loads one client profile record.
func (s *Service) Client(ctx context.Context, clientID string) (models.Client, error) {
	data, err := s.store.Read(ctx, index.ClientPath(clientID))
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("read").Inc()
		return models.Client{}, err
	}
	if data == nil {
		return models.Client{}, fmt.Errorf("client %s: %w", clientID, ErrNotFound)
	}
	var c models.Client
	if err := json.Unmarshal(data, &c); err != nil {
		return models.Client{}, fmt.Errorf("decode client %s: %w", clientID, err)
	}
	c.ID = clientID
	return c, nil
}

// UpdateClientProfile writes profile fields onto the client record and
// invalidates the cached roster. Empty string values delete the field.
func (s *Service) UpdateClientProfile(ctx context.Context, clientID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	base := index.ClientPath(clientID)
	plan := make(map[string]any, len(fields))
	for field, value := range fields {
		if v, ok := value.(string); ok && v == "" {
			value = nil
		}
		plan[base+"/"+field] = value
	}
	if err := s.store.WriteMany(ctx, plan); err != nil {
		s.metrics.StoreErrors.WithLabelValues("write_many").Inc()
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, cacheKeyClients); err != nil {
			s.logger.Warn("cache invalidate failed", slog.String("key", cacheKeyClients), slog.Any("err", err))
		}
	}
	return nil
}

// loadCollection implements the cache refresh policy for one bulk
// collection: serve a fresh hit verbatim, otherwise read the store
// once and write the cache back. Cache failures are logged and the
// cache treated as empty; store failures propagate.
func (s *Service) loadCollection(ctx context.Context, key, path string, policy cache.Policy) (json.RawMessage, error) {
	if s.cache != nil {
		entry, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("cache read failed", slog.String("key", key), slog.Any("err", err))
		} else if policy.Fresh(entry, s.now()) {
			s.metrics.CacheRequests.WithLabelValues(key, "hit").Inc()
			return entry.Data, nil
		}
	}
	s.metrics.CacheRequests.WithLabelValues(key, "miss").Inc()

	data, err := s.store.Read(ctx, path)
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("read").Inc()
		return nil, err
	}
	if s.cache != nil && data != nil {
		if err := s.cache.Put(ctx, key, data); err != nil {
			s.logger.Warn("cache write failed", slog.String("key", key), slog.Any("err", err))
		}
	}
	return data, nil
}

// ManagerDashboard loads the role-scoped view for one manager via the
// manager reverse index.
func (s *Service) ManagerDashboard(ctx context.Context, managerID string) (*Dashboard, error) {
	return s.dashboard(ctx, cacheKeyDashboard("manager", managerID), index.ManagerIndexRoot(managerID), func(r models.Registration) bool {
		return r.AssignedManager == managerID
	})
}

// EmployeeDashboard loads the role-scoped view for one employee via
// the employee reverse index.
func (s *Service) EmployeeDashboard(ctx context.Context, employeeID string) (*Dashboard, error) {
	return s.dashboard(ctx, cacheKeyDashboard("employee", employeeID), index.EmployeeIndexRoot(employeeID), func(r models.Registration) bool {
		return r.AssignedTo == employeeID
	})
}

type joinResult struct {
	rec DashboardRecord
	err error
	ok  bool
}

// dashboard is the reverse-index-driven bulk load: read the small
// reverse-index collection, join each entry with its primary
// registration and application collection in parallel, then bucket by
// status. Entries whose primary record no longer points at the
// requesting principal are discarded: the reverse index may be stale.
// The joined view is cached per principal under the dashboard window.
func (s *Service) dashboard(ctx context.Context, cacheKey, indexPath string, owns func(models.Registration) bool) (*Dashboard, error) {
	policy := cache.Policy{Window: s.windows.DashboardWindow}
	if s.cache != nil {
		entry, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			s.logger.Warn("cache read failed", slog.String("key", cacheKey), slog.Any("err", err))
		} else if policy.Fresh(entry, s.now()) {
			var d Dashboard
			if err := json.Unmarshal(entry.Data, &d); err != nil {
				s.logger.Warn("cache decode failed", slog.String("key", cacheKey), slog.Any("err", err))
			} else {
				s.metrics.CacheRequests.WithLabelValues("dashboard", "hit").Inc()
				return &d, nil
			}
		}
	}
	s.metrics.CacheRequests.WithLabelValues("dashboard", "miss").Inc()

	data, err := s.store.Read(ctx, indexPath)
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("read").Inc()
		return nil, err
	}
	entries := make(map[string]models.ReverseIndexEntry)
	if data != nil {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("decode reverse index %s: %w", indexPath, err)
		}
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	results := make([]joinResult, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		entry := entries[key]
		clientID, registrationID := entry.ClientID, entry.RegistrationID
		if clientID == "" {
			clientID, registrationID = splitKey(key)
		}
		wg.Add(1)
		go func(i int, clientID, registrationID string) {
			defer wg.Done()
			results[i] = s.joinOne(ctx, clientID, registrationID)
		}(i, clientID, registrationID)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		// caller tore down mid-load; drop the results
		return nil, err
	}

	d := &Dashboard{}
	for _, res := range results {
		if res.err != nil {
			return nil, res.err
		}
		if !res.ok || !owns(res.rec.Registration) {
			continue
		}
		switch res.rec.Registration.Status() {
		case models.StatusActive:
			d.Active = append(d.Active, res.rec)
		case models.StatusInactive:
			d.Inactive = append(d.Inactive, res.rec)
		default:
			d.Unassigned = append(d.Unassigned, res.rec)
		}
		for _, app := range res.rec.Applications {
			d.Applications = append(d.Applications, app)
			if app.IsInterview() {
				d.Interviews = append(d.Interviews, app)
			}
		}
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(d); err == nil {
			if err := s.cache.Put(ctx, cacheKey, encoded); err != nil {
				s.logger.Warn("cache write failed", slog.String("key", cacheKey), slog.Any("err", err))
			}
		}
	}
	return d, nil
}

func (s *Service) joinOne(ctx context.Context, clientID, registrationID string) joinResult {
	regData, err := s.store.Read(ctx, index.RegistrationPath(clientID, registrationID))
	if err != nil {
		return joinResult{err: err}
	}
	if regData == nil {
		// stale reverse-index entry pointing at a deleted record
		return joinResult{}
	}
	var r models.Registration
	if err := json.Unmarshal(regData, &r); err != nil {
		return joinResult{err: fmt.Errorf("decode registration %s/%s: %w", clientID, registrationID, err)}
	}
	r.ClientID = clientID
	r.RegistrationID = registrationID

	appData, err := s.store.Read(ctx, index.ApplicationsPath(clientID, registrationID))
	if err != nil {
		return joinResult{err: err}
	}
	var apps []models.JobApplication
	if appData != nil {
		byID := make(map[string]models.JobApplication)
		if err := json.Unmarshal(appData, &byID); err != nil {
			return joinResult{err: fmt.Errorf("decode applications %s/%s: %w", clientID, registrationID, err)}
		}
		for id, app := range byID {
			app.ID = id
			apps = append(apps, app)
		}
		sort.Slice(apps, func(i, j int) bool { return apps[i].AppliedAt > apps[j].AppliedAt })
	}

	return joinResult{rec: DashboardRecord{Registration: r, Applications: apps}, ok: true}
}

func splitKey(key string) (clientID, registrationID string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '_' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

func registrationFromIndex(ir models.IndexRecord) models.Registration {
	return models.Registration{
		ClientID:         ir.ClientID,
		RegistrationID:   ir.RegistrationID,
		ClientName:       ir.ClientName,
		Service:          ir.Service,
		AssignmentStatus: ir.Status,
		Manager:          ir.Manager,
		AssignedManager:  ir.AssignedManager,
		AssignedTo:       ir.AssignedTo,
		Priority:         ir.Priority,
		AppliedDate:      ir.AppliedDate,
		AssignedDate:     ir.AssignedDate,
	}
}
