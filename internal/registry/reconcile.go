package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/talentdesk/backoffice/internal/index"
	"github.com/talentdesk/backoffice/pkg/models"
)

// ReconcileEmployeeIndex sweeps the whole employee reverse index
// against the primary records and repairs any drift: entries whose
// registration is gone or assigned to a different employee are
// deleted, entries carrying a stale status are rewritten. Returns the
// number of repairs applied.
//
// The sweep runs from the background job queue, so it reads the store
// directly and never touches the session or the cache.
func (s *Service) ReconcileEmployeeIndex(ctx context.Context) (int, error) {
	data, err := s.store.Read(ctx, index.EmployeeIndexAll())
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("read").Inc()
		return 0, err
	}
	byEmployee := make(map[string]map[string]models.ReverseIndexEntry)
	if data != nil {
		if err := json.Unmarshal(data, &byEmployee); err != nil {
			return 0, fmt.Errorf("decode employee index: %w", err)
		}
	}

	repaired := 0
	for employeeID, entries := range byEmployee {
		for key, entry := range entries {
			if err := ctx.Err(); err != nil {
				return repaired, err
			}
			clientID, registrationID := entry.ClientID, entry.RegistrationID
			if clientID == "" {
				clientID, registrationID = splitKey(key)
			}

			plan, why, err := s.repairFor(ctx, employeeID, clientID, registrationID, entry)
			if err != nil {
				return repaired, err
			}
			if plan == nil {
				continue
			}
			if err := s.store.WriteMany(ctx, plan); err != nil {
				s.metrics.StoreErrors.WithLabelValues("write_many").Inc()
				return repaired, err
			}
			repaired++
			s.metrics.IndexRepairs.Inc()
			s.logger.Info("employee index repaired",
				slog.String("employee", employeeID),
				slog.String("registration", clientID+"_"+registrationID),
				slog.String("reason", why),
			)
		}
	}
	return repaired, nil
}

// repairFor inspects one reverse-index entry against its primary
// record. A nil plan means the entry is already consistent.
func (s *Service) repairFor(ctx context.Context, employeeID, clientID, registrationID string, entry models.ReverseIndexEntry) (index.Plan, string, error) {
	stub := models.Registration{ClientID: clientID, RegistrationID: registrationID}

	data, err := s.store.Read(ctx, index.RegistrationPath(clientID, registrationID))
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("read").Inc()
		return nil, "", err
	}
	if data == nil {
		return index.RepairPlan(employeeID, stub, false), "orphaned", nil
	}

	var r models.Registration
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, "", fmt.Errorf("decode registration %s/%s: %w", clientID, registrationID, err)
	}
	r.ClientID = clientID
	r.RegistrationID = registrationID

	if r.AssignedTo != employeeID {
		return index.RepairPlan(employeeID, stub, false), "reassigned", nil
	}
	if entry.Status != r.AssignmentStatus {
		return index.RepairPlan(employeeID, r, true), "stale_status", nil
	}
	return nil, "", nil
}
