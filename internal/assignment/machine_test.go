package assignment

import (
	"errors"
	"testing"

	"github.com/talentdesk/backoffice/pkg/models"
)

func reg(status models.AssignmentStatus) models.Registration {
	return models.Registration{
		ClientID:         "c1",
		RegistrationID:   "r1",
		ClientName:       "Alice",
		Service:          "it_placement",
		AssignmentStatus: status,
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name string
		from models.AssignmentStatus
		fn   func(models.Registration) (Delta, error)
		want models.AssignmentStatus
		ok   bool
	}{
		{"accept from registered", models.StatusRegistered, Accept, models.StatusPendingManager, true},
		{"accept from absent status", "", Accept, models.StatusPendingManager, true},
		{"accept from active", models.StatusActive, Accept, "", false},
		{"unaccept from pending_manager", models.StatusPendingManager, Unaccept, models.StatusRegistered, true},
		{"unaccept from pending_employee", models.StatusPendingEmployee, Unaccept, "", false},
		{"decline from registered", models.StatusRegistered, Decline, models.StatusRejected, true},
		{"decline from pending_manager", models.StatusPendingManager, Decline, models.StatusRejected, true},
		{"decline from pending_acceptance", models.StatusPendingAcceptance, Decline, models.StatusRejected, true},
		{"decline from active", models.StatusActive, Decline, "", false},
		{"restore from rejected", models.StatusRejected, Restore, models.StatusPendingManager, true},
		{"restore from registered", models.StatusRegistered, Restore, "", false},
		{"toggle from active", models.StatusActive, Toggle, models.StatusInactive, true},
		{"toggle from inactive", models.StatusInactive, Toggle, models.StatusActive, true},
		{"toggle from rejected", models.StatusRejected, Toggle, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := tc.fn(reg(tc.from))
			if !tc.ok {
				var ite *IllegalTransitionError
				if !errors.As(err, &ite) {
					t.Fatalf("expected IllegalTransitionError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Status != tc.want {
				t.Fatalf("status = %q, want %q", d.Status, tc.want)
			}
			if !d.Status.Valid() || d.Status == "" {
				t.Fatalf("transition left status unset or invalid: %q", d.Status)
			}
		})
	}
}

func TestSelectManagerGuard(t *testing.T) {
	if _, err := SelectManager(reg(models.StatusPendingManager), "", "M One", "2026-01-02"); !errors.Is(err, ErrInvalidAssignment) {
		t.Fatalf("expected ErrInvalidAssignment, got %v", err)
	}
}

func TestSelectManagerDelta(t *testing.T) {
	r := reg(models.StatusPendingManager)
	d, err := SelectManager(r, "m1", "M One", "2026-01-02")
	if err != nil {
		t.Fatalf("SelectManager: %v", err)
	}
	if d.Status != models.StatusPendingEmployee {
		t.Fatalf("status = %q, want pending_employee", d.Status)
	}
	got := d.Apply(r)
	if got.AssignedManager != "m1" || got.Manager != "M One" || got.AssignedDate != "2026-01-02" {
		t.Fatalf("manager fields not applied: %+v", got)
	}
	if got.AssignedTo != "" {
		t.Fatalf("assigned_to should be cleared on manager select, got %q", got.AssignedTo)
	}
}

func TestSelectManagerClearsEmployeeOnReassign(t *testing.T) {
	r := reg(models.StatusPendingAcceptance)
	r.AssignedManager = "m1"
	r.AssignedTo = "e1"
	d, err := SelectManager(r, "m2", "M Two", "2026-02-03")
	if err != nil {
		t.Fatalf("SelectManager: %v", err)
	}
	got := d.Apply(r)
	if got.Status() != models.StatusPendingEmployee {
		t.Fatalf("reassignment should land in pending_employee, got %q", got.Status())
	}
	if got.AssignedTo != "" {
		t.Fatalf("reassignment should clear assigned_to, got %q", got.AssignedTo)
	}
}

func TestAssignEmployee(t *testing.T) {
	if _, err := AssignEmployee(reg(models.StatusPendingEmployee), ""); !errors.Is(err, ErrInvalidAssignment) {
		t.Fatalf("expected ErrInvalidAssignment, got %v", err)
	}
	d, err := AssignEmployee(reg(models.StatusPendingEmployee), "e1")
	if err != nil {
		t.Fatalf("AssignEmployee: %v", err)
	}
	if d.Status != models.StatusPendingAcceptance {
		t.Fatalf("status = %q, want pending_acceptance", d.Status)
	}
	// reassignment from pending_acceptance stays legal
	if _, err := AssignEmployee(reg(models.StatusPendingAcceptance), "e2"); err != nil {
		t.Fatalf("reassign employee: %v", err)
	}
}

func TestIdempotentReapply(t *testing.T) {
	r := reg(models.StatusRegistered)
	d1, err := Accept(r)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	r = d1.Apply(r)
	d2, err := Accept(r)
	if err != nil {
		t.Fatalf("second accept should be a no-op, got %v", err)
	}
	if d2.Status != d1.Status {
		t.Fatalf("re-applied accept diverged: %q vs %q", d2.Status, d1.Status)
	}

	dm, err := SelectManager(r, "m1", "M One", "2026-01-05")
	if err != nil {
		t.Fatalf("select manager: %v", err)
	}
	r = dm.Apply(r)
	da, err := AssignEmployee(r, "e1")
	if err != nil {
		t.Fatalf("assign employee: %v", err)
	}
	r = da.Apply(r)
	db, err := AssignEmployee(r, "e1")
	if err != nil {
		t.Fatalf("re-assign employee: %v", err)
	}
	if db.Status != da.Status || db.Fields["assigned_to"] != da.Fields["assigned_to"] {
		t.Fatalf("re-applied employee assignment diverged: %+v vs %+v", db, da)
	}
}

func TestLifecycleScenario(t *testing.T) {
	// registered (absent) -> accept -> manager -> reassign -> decline -> restore
	r := reg("")
	d, err := Accept(r)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	r = d.Apply(r)
	if r.Status() != models.StatusPendingManager {
		t.Fatalf("after accept: %q", r.Status())
	}

	d, err = SelectManager(r, "m1", "M One", "2026-01-10")
	if err != nil {
		t.Fatalf("select manager: %v", err)
	}
	r = d.Apply(r)
	if r.AssignedManager != "m1" || r.Status() != models.StatusPendingEmployee {
		t.Fatalf("after manager select: %+v", r)
	}

	d, err = SelectManager(r, "m2", "M Two", "2026-01-11")
	if err != nil {
		t.Fatalf("reassign manager: %v", err)
	}
	r = d.Apply(r)
	if r.AssignedManager != "m2" || r.Status() != models.StatusPendingEmployee {
		t.Fatalf("after manager reassign: %+v", r)
	}

	d, err = Decline(r)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	r = d.Apply(r)
	if r.Status() != models.StatusRejected {
		t.Fatalf("after decline: %q", r.Status())
	}

	d, err = Restore(r)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	r = d.Apply(r)
	if r.Status() != models.StatusPendingManager {
		t.Fatalf("restore should re-enter pending_manager, got %q", r.Status())
	}
}

func TestToggleRoundTrip(t *testing.T) {
	r := reg(models.StatusActive)
	r.AssignedManager = "m1"
	for i := 0; i < 2; i++ {
		d, err := Toggle(r)
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		r = d.Apply(r)
	}
	if r.Status() != models.StatusActive {
		t.Fatalf("toggle round trip ended at %q", r.Status())
	}
	if r.AssignedManager != "m1" {
		t.Fatalf("toggle mutated unrelated field: %+v", r)
	}
}
