// Package assignment holds the life-cycle state machine for
// registrations. Transition functions are pure: they inspect the
// current registration, apply the guard for their trigger, and return
// the field delta the caller should persist. They never touch a store.
package assignment

import (
	"errors"
	"fmt"

	"github.com/talentdesk/backoffice/pkg/models"
)

// ErrInvalidAssignment is returned when a manager or employee
// assignment is attempted without a selected principal. The store must
// not be touched in that case.
var ErrInvalidAssignment = errors.New("no manager or employee selected")

// IllegalTransitionError reports a trigger fired from a state it does
// not accept.
type IllegalTransitionError struct {
	From    models.AssignmentStatus
	Trigger string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition: trigger %q from status %q", e.Trigger, e.From)
}

// Delta is the full replacement of the assignment status plus any
// registration fields the trigger also changes. Fields values are
// JSON-encodable; an empty string clears the field.
type Delta struct {
	Status models.AssignmentStatus
	Fields map[string]any
}

// Apply copies the delta onto a registration and returns the result.
func (d Delta) Apply(r models.Registration) models.Registration {
	r.AssignmentStatus = d.Status
	for field, value := range d.Fields {
		s, _ := value.(string)
		switch field {
		case "manager":
			r.Manager = s
		case "assigned_manager":
			r.AssignedManager = s
		case "assigned_to":
			r.AssignedTo = s
		case "assigned_date":
			r.AssignedDate = s
		}
	}
	return r
}

// each trigger names the statuses it accepts. The target status is
// always included so re-applying a transition is an idempotent no-op
// rather than an error.
var accepts = map[string][]models.AssignmentStatus{
	"accept":   {models.StatusRegistered, models.StatusPendingManager},
	"unaccept": {models.StatusPendingManager, models.StatusRegistered},
	"decline": {
		models.StatusRegistered,
		models.StatusPendingManager,
		models.StatusPendingEmployee,
		models.StatusPendingAcceptance,
		models.StatusRejected,
	},
	"restore": {models.StatusRejected, models.StatusPendingManager},
	"select_manager": {
		models.StatusPendingManager,
		models.StatusPendingEmployee,
		models.StatusPendingAcceptance,
	},
	"assign_employee": {
		models.StatusPendingEmployee,
		models.StatusPendingAcceptance,
	},
	"toggle": {models.StatusActive, models.StatusInactive},
}

func guard(r models.Registration, trigger string) error {
	from := r.Status()
	for _, s := range accepts[trigger] {
		if from == s {
			return nil
		}
	}
	return &IllegalTransitionError{From: from, Trigger: trigger}
}

// Accept moves a screened registration into the manager queue.
func Accept(r models.Registration) (Delta, error) {
	if err := guard(r, "accept"); err != nil {
		return Delta{}, err
	}
	return Delta{Status: models.StatusPendingManager}, nil
}

// Unaccept returns a pending_manager registration to the initial state.
func Unaccept(r models.Registration) (Delta, error) {
	if err := guard(r, "unaccept"); err != nil {
		return Delta{}, err
	}
	return Delta{Status: models.StatusRegistered}, nil
}

// Decline rejects a registration. Legal from every pre-active stage;
// active and inactive registrations cannot be declined.
func Decline(r models.Registration) (Delta, error) {
	if err := guard(r, "decline"); err != nil {
		return Delta{}, err
	}
	return Delta{Status: models.StatusRejected}, nil
}

// Restore re-enters a rejected registration at pending_manager, not at
// the initial state.
func Restore(r models.Registration) (Delta, error) {
	if err := guard(r, "restore"); err != nil {
		return Delta{}, err
	}
	return Delta{Status: models.StatusPendingManager}, nil
}

// SelectManager assigns or reassigns the responsible manager. The
// registration always lands in pending_employee with assigned_to
// cleared: the incoming manager picks their own recruiter.
func SelectManager(r models.Registration, managerID, managerName, assignedDate string) (Delta, error) {
	if managerID == "" {
		return Delta{}, ErrInvalidAssignment
	}
	if err := guard(r, "select_manager"); err != nil {
		return Delta{}, err
	}
	return Delta{
		Status: models.StatusPendingEmployee,
		Fields: map[string]any{
			"manager":          managerName,
			"assigned_manager": managerID,
			"assigned_to":      "",
			"assigned_date":    assignedDate,
		},
	}, nil
}

// AssignEmployee assigns or reassigns the recruiter working the
// registration and moves it to pending_acceptance.
func AssignEmployee(r models.Registration, employeeID string) (Delta, error) {
	if employeeID == "" {
		return Delta{}, ErrInvalidAssignment
	}
	if err := guard(r, "assign_employee"); err != nil {
		return Delta{}, err
	}
	return Delta{
		Status: models.StatusPendingAcceptance,
		Fields: map[string]any{"assigned_to": employeeID},
	}, nil
}

// Toggle flips an active registration to inactive and back.
func Toggle(r models.Registration) (Delta, error) {
	if err := guard(r, "toggle"); err != nil {
		return Delta{}, err
	}
	next := models.StatusInactive
	if r.Status() == models.StatusInactive {
		next = models.StatusActive
	}
	return Delta{Status: next}, nil
}
