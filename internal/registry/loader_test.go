package registry_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/talentdesk/backoffice/internal/index"
	"github.com/talentdesk/backoffice/internal/recordstore"
	"github.com/talentdesk/backoffice/internal/registry"
	"github.com/talentdesk/backoffice/pkg/models"
)

func TestRegistrationsLoadsFlatIndex(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	svc := registry.New(store, nil, testWindows(), nil, nil)

	seedRegistration(t, store, models.Registration{
		ClientID: "c1", RegistrationID: "r1", ClientName: "Ada Osei", Service: "placement",
	})
	seedRegistration(t, store, models.Registration{
		ClientID: "c2", RegistrationID: "r1", ClientName: "Ben Kim", Service: "visa",
		AssignmentStatus: models.StatusActive, AssignedManager: "m1", AssignedTo: "e1",
	})

	records, err := svc.Registrations(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// key-sorted output
	if records[0].Key() != "c1_r1" || records[1].Key() != "c2_r1" {
		t.Fatalf("unexpected order: %s, %s", records[0].Key(), records[1].Key())
	}

	counts := svc.Counts()
	if counts[models.StatusRegistered] != 1 || counts[models.StatusActive] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestRegistrationsServedFromFreshCache(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	cacheStore := setupCache(t)
	svc := registry.New(store, cacheStore, testWindows(), nil, nil)

	seedRegistration(t, store, models.Registration{
		ClientID: "c1", RegistrationID: "r1", Service: "placement",
	})
	if _, err := svc.Registrations(ctx); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	// with the store unreachable a fresh cache entry still serves
	broken := registry.New(failingReader{}, cacheStore, testWindows(), nil, nil)
	records, err := broken.Registrations(ctx)
	if err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if len(records) != 1 || records[0].Key() != "c1_r1" {
		t.Fatalf("cached records = %v", records)
	}
}

// failingReader fails every store call, proving the cache path never
// touched the store.
type failingReader struct{}

func (failingReader) Read(ctx context.Context, path string) (json.RawMessage, error) {
	return nil, &recordstore.StoreError{Op: "read", Path: path, Err: context.DeadlineExceeded}
}

func (failingReader) WriteMany(ctx context.Context, updates map[string]any) error {
	return &recordstore.StoreError{Op: "write_many", Err: context.DeadlineExceeded}
}

func (failingReader) WriteOne(ctx context.Context, path string, value any) error {
	return &recordstore.StoreError{Op: "write_one", Path: path, Err: context.DeadlineExceeded}
}

func TestManagerDashboardBuckets(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	svc := registry.New(store, nil, testWindows(), nil, nil)

	seedRegistration(t, store, models.Registration{
		ClientID: "c1", RegistrationID: "r1", ClientName: "Ada Osei", Service: "placement",
		AssignmentStatus: models.StatusActive, AssignedManager: "m1", AssignedTo: "e1",
	})
	seedRegistration(t, store, models.Registration{
		ClientID: "c2", RegistrationID: "r1", ClientName: "Ben Kim", Service: "visa",
		AssignmentStatus: models.StatusInactive, AssignedManager: "m1",
	})
	seedRegistration(t, store, models.Registration{
		ClientID: "c3", RegistrationID: "r1", ClientName: "Casey Doyle", Service: "placement",
		AssignmentStatus: models.StatusPendingEmployee, AssignedManager: "m1",
	})
	if err := store.WriteOne(ctx, index.ApplicationsPath("c1", "r1"), map[string]any{
		"a1": models.JobApplication{Company: "Initech", Title: "Analyst", Status: models.InterviewStatus, AppliedAt: 200},
		"a2": models.JobApplication{Company: "Globex", Title: "Clerk", AppliedAt: 100},
	}); err != nil {
		t.Fatalf("seed applications: %v", err)
	}

	d, err := svc.ManagerDashboard(ctx, "m1")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(d.Active) != 1 || len(d.Inactive) != 1 || len(d.Unassigned) != 1 {
		t.Fatalf("buckets = %d/%d/%d, want 1/1/1", len(d.Unassigned), len(d.Active), len(d.Inactive))
	}
	if len(d.Applications) != 2 {
		t.Fatalf("applications = %d, want 2", len(d.Applications))
	}
	// newest first within a registration
	if d.Applications[0].Company != "Initech" {
		t.Fatalf("applications[0] = %s, want Initech", d.Applications[0].Company)
	}
	if len(d.Interviews) != 1 || d.Interviews[0].Company != "Initech" {
		t.Fatalf("interviews = %v", d.Interviews)
	}
}

func TestDashboardServedFromFreshCache(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	cacheStore := setupCache(t)
	svc := registry.New(store, cacheStore, testWindows(), nil, nil)

	seedRegistration(t, store, models.Registration{
		ClientID: "c1", RegistrationID: "r1", ClientName: "Ada Osei", Service: "placement",
		AssignmentStatus: models.StatusActive, AssignedManager: "m1",
	})
	if _, err := svc.ManagerDashboard(ctx, "m1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	// with the store unreachable a fresh cached view still serves
	broken := registry.New(failingReader{}, cacheStore, testWindows(), nil, nil)
	d, err := broken.ManagerDashboard(ctx, "m1")
	if err != nil {
		t.Fatalf("cached dashboard: %v", err)
	}
	if len(d.Active) != 1 || d.Active[0].Registration.ClientName != "Ada Osei" {
		t.Fatalf("cached dashboard = %+v", d)
	}

	// the cache entry is scoped to the principal
	if _, err := broken.ManagerDashboard(ctx, "m2"); err == nil {
		t.Fatal("expected store error for uncached principal")
	}
}

func TestDashboardDiscardsStaleReverseEntries(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	svc := registry.New(store, nil, testWindows(), nil, nil)

	// primary record points at e2 but the e1 index still lists it
	seedRegistration(t, store, models.Registration{
		ClientID: "c1", RegistrationID: "r1", Service: "placement",
		AssignmentStatus: models.StatusActive, AssignedManager: "m1", AssignedTo: "e2",
	})
	if err := store.WriteOne(ctx, index.EmployeeIndexPath("e1", "c1", "r1"), models.ReverseIndexEntry{
		ClientID: "c1", RegistrationID: "r1", Status: models.StatusActive,
	}); err != nil {
		t.Fatalf("seed stale entry: %v", err)
	}
	// entry pointing at a deleted registration
	if err := store.WriteOne(ctx, index.EmployeeIndexPath("e1", "c9", "r9"), models.ReverseIndexEntry{
		ClientID: "c9", RegistrationID: "r9", Status: models.StatusActive,
	}); err != nil {
		t.Fatalf("seed orphan entry: %v", err)
	}

	d, err := svc.EmployeeDashboard(ctx, "e1")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(d.Active)+len(d.Inactive)+len(d.Unassigned) != 0 {
		t.Fatalf("stale entries surfaced: %+v", d)
	}

	d2, err := svc.EmployeeDashboard(ctx, "e2")
	if err != nil {
		t.Fatalf("dashboard e2: %v", err)
	}
	if len(d2.Active) != 1 {
		t.Fatalf("e2 active = %d, want 1", len(d2.Active))
	}
}

func TestClientsRoster(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	svc := registry.New(store, nil, testWindows(), nil, nil)

	if err := store.WriteMany(ctx, map[string]any{
		index.ClientPath("c1"): models.Client{Name: "Ada Osei", Email: "ada@example.com"},
		index.ClientPath("c2"): models.Client{Name: "Ben Kim"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	clients, err := svc.Clients(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("got %d clients, want 2", len(clients))
	}
	if clients[0].ID != "c1" || clients[0].Name != "Ada Osei" {
		t.Fatalf("clients[0] = %+v", clients[0])
	}
}

func TestReconcileEmployeeIndex(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	svc := registry.New(store, nil, testWindows(), nil, nil)

	// consistent entry, must survive untouched
	seedRegistration(t, store, models.Registration{
		ClientID: "c1", RegistrationID: "r1", Service: "placement",
		AssignmentStatus: models.StatusActive, AssignedTo: "e1",
	})
	// stale status in the reverse entry
	seedRegistration(t, store, models.Registration{
		ClientID: "c2", RegistrationID: "r1", Service: "visa",
		AssignmentStatus: models.StatusInactive, AssignedTo: "e1",
	})
	if err := store.WriteOne(ctx, index.EmployeeIndexPath("e1", "c2", "r1"), models.ReverseIndexEntry{
		ClientID: "c2", RegistrationID: "r1", Status: models.StatusActive,
	}); err != nil {
		t.Fatalf("seed stale entry: %v", err)
	}
	// entry under the wrong employee
	if err := store.WriteOne(ctx, index.EmployeeIndexPath("e2", "c1", "r1"), models.ReverseIndexEntry{
		ClientID: "c1", RegistrationID: "r1", Status: models.StatusActive,
	}); err != nil {
		t.Fatalf("seed misassigned entry: %v", err)
	}
	// entry whose registration is gone
	if err := store.WriteOne(ctx, index.EmployeeIndexPath("e3", "c9", "r9"), models.ReverseIndexEntry{
		ClientID: "c9", RegistrationID: "r9", Status: models.StatusActive,
	}); err != nil {
		t.Fatalf("seed orphan entry: %v", err)
	}

	repaired, err := svc.ReconcileEmployeeIndex(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if repaired != 3 {
		t.Fatalf("repaired = %d, want 3", repaired)
	}

	if data, _ := store.Read(ctx, index.EmployeeIndexPath("e2", "c1", "r1")); data != nil {
		t.Fatal("misassigned entry survived")
	}
	if data, _ := store.Read(ctx, index.EmployeeIndexPath("e3", "c9", "r9")); data != nil {
		t.Fatal("orphaned entry survived")
	}
	var fixed models.ReverseIndexEntry
	data, err := store.Read(ctx, index.EmployeeIndexPath("e1", "c2", "r1"))
	if err != nil || data == nil {
		t.Fatalf("repaired entry absent (err=%v)", err)
	}
	if err := json.Unmarshal(data, &fixed); err != nil {
		t.Fatalf("decode repaired entry: %v", err)
	}
	if fixed.Status != models.StatusInactive {
		t.Fatalf("repaired status = %q, want inactive", fixed.Status)
	}

	// a second sweep finds nothing to do
	again, err := svc.ReconcileEmployeeIndex(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if again != 0 {
		t.Fatalf("second sweep repaired %d, want 0", again)
	}
}
