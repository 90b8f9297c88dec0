// Package index computes the fan-out write plans that keep the flat
// search index and the per-manager / per-employee reverse indices
// consistent with the primary registration records. Plans are plain
// maps consumed by the record store's atomic multi-path write.
package index

import (
	"github.com/talentdesk/backoffice/internal/assignment"
	"github.com/talentdesk/backoffice/pkg/models"
)

// Plan maps store paths to the values to write. A nil value deletes
// the path. Paths within one plan never overlap, so the whole map can
// be applied as a single atomic write.
type Plan map[string]any

// fields of a registration mirrored into its flat index record. The
// status field is the only one whose name differs between the two.
var mirrored = map[string]string{
	"manager":          "manager",
	"assigned_manager": "assigned_manager",
	"assigned_to":      "assigned_to",
	"assigned_date":    "assigned_date",
	"priority":         "priority",
	"service":          "service",
	"client_name":      "client_name",
	"applied_date":     "applied_date",
}

// TransitionPlan builds the fan-out write for one state transition.
// prev is the registration before the transition, delta the output of
// the transition function. The plan:
//
//   - writes the new status and every delta field to the primary
//     record, each paired with its flat-index mirror;
//   - rewrites the full reverse-index entry for the current manager
//     and employee so neither ever carries a stale status;
//   - deletes the reverse-index entry of a previous manager or
//     employee the transition moved the registration away from.
//
// A registration therefore never appears under two managers at once.
func TransitionPlan(prev models.Registration, delta assignment.Delta) Plan {
	updated := delta.Apply(prev)
	primary := RegistrationPath(updated.ClientID, updated.RegistrationID)
	flat := FlatIndexPath(updated.ClientID, updated.RegistrationID)

	plan := Plan{
		primary + "/assignment_status": string(delta.Status),
		flat + "/status":               string(delta.Status),
	}
	for field, value := range delta.Fields {
		v := value
		if s, ok := value.(string); ok && s == "" {
			v = nil
		}
		plan[primary+"/"+field] = v
		if mirror, ok := mirrored[field]; ok {
			plan[flat+"/"+mirror] = v
		}
	}

	if updated.AssignedManager != "" {
		plan[managerEntry(updated)] = models.ReverseEntryFor(updated)
	}
	if prev.AssignedManager != "" && prev.AssignedManager != updated.AssignedManager {
		plan[managerEntry(prev)] = nil
	}
	if updated.AssignedTo != "" {
		plan[employeeEntry(updated)] = models.ReverseEntryFor(updated)
	}
	if prev.AssignedTo != "" && prev.AssignedTo != updated.AssignedTo {
		plan[employeeEntry(prev)] = nil
	}
	return plan
}

// DeletePlan builds the single fan-out write that permanently removes
// a registration: primary record, flat index record, job application
// collection, and any reverse-index entries, all nulled together so no
// partial state is observable.
func DeletePlan(r models.Registration) Plan {
	plan := Plan{
		RegistrationPath(r.ClientID, r.RegistrationID): nil,
		FlatIndexPath(r.ClientID, r.RegistrationID):    nil,
		ApplicationsPath(r.ClientID, r.RegistrationID): nil,
	}
	if r.AssignedManager != "" {
		plan[managerEntry(r)] = nil
	}
	if r.AssignedTo != "" {
		plan[employeeEntry(r)] = nil
	}
	return plan
}

// RepairPlan builds the write that fixes one drifted employee
// reverse-index entry. When keep is false the entry is orphaned or
// points at the wrong employee and is deleted; otherwise it is
// rewritten from the primary record.
func RepairPlan(employeeID string, r models.Registration, keep bool) Plan {
	path := EmployeeIndexPath(employeeID, r.ClientID, r.RegistrationID)
	if !keep {
		return Plan{path: nil}
	}
	return Plan{path: models.ReverseEntryFor(r)}
}
