package sqlite_test

import (
	"context"
	"testing"

	"github.com/talentdesk/backoffice/internal/db"
	"github.com/talentdesk/backoffice/internal/repository/sqlite"
	"github.com/talentdesk/backoffice/pkg/models"
)

func setupRepo(t *testing.T) *sqlite.SQLiteRepo {
	t.Helper()
	ctx := context.Background()
	d, err := db.New(ctx, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS staff (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, email TEXT NOT NULL UNIQUE, role TEXT NOT NULL DEFAULT 'employee', password_hash TEXT NOT NULL, updated INTEGER NOT NULL)`,
		`DELETE FROM staff`,
	}
	for _, s := range stmts {
		if _, err := d.Exec(ctx, s); err != nil {
			t.Fatalf("setup schema: %v", err)
		}
	}
	return sqlite.New(d, nil)
}

func TestStaffRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, err := repo.CreateStaff(ctx, &models.Staff{
		Name: "Grace Park", Email: "grace@talentdesk.test", Role: "manager", PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got == nil || got.Email != "grace@talentdesk.test" || got.Role != "manager" {
		t.Fatalf("got = %+v", got)
	}
	if got.Updated == 0 {
		t.Fatal("updated stamp missing")
	}

	byEmail, err := repo.GetByEmail(ctx, "grace@talentdesk.test")
	if err != nil || byEmail == nil || byEmail.ID != id {
		t.Fatalf("get by email: %+v err=%v", byEmail, err)
	}
}

func TestStaffDefaultsRole(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, err := repo.CreateStaff(ctx, &models.Staff{Name: "Sam", Email: "sam@talentdesk.test", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.GetByID(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("get: %+v err=%v", got, err)
	}
	if got.Role != "employee" {
		t.Fatalf("role = %q, want employee", got.Role)
	}
}

func TestStaffUpdateAndDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, err := repo.CreateStaff(ctx, &models.Staff{Name: "Lena", Email: "lena@talentdesk.test", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, _ := repo.GetByID(ctx, id)
	got.Role = "manager"
	if err := repo.UpdateStaff(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, _ := repo.GetByID(ctx, id)
	if updated.Role != "manager" {
		t.Fatalf("role after update = %q", updated.Role)
	}

	if err := repo.DeleteStaff(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gone, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if gone != nil {
		t.Fatalf("staff survived delete: %+v", gone)
	}

	if missing, err := repo.GetByEmail(ctx, "nobody@talentdesk.test"); err != nil || missing != nil {
		t.Fatalf("absent lookup = %+v err=%v", missing, err)
	}
}
