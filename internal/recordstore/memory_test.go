package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestMemoryReadAbsent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	data, err := m.Read(ctx, "records/c1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if data != nil {
		t.Fatalf("absent path should read nil, got %s", data)
	}
}

func TestMemoryWriteManyAndRead(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.WriteMany(ctx, map[string]any{
		"records/c1/registrations/r1/assignment_status": "pending_manager",
		"registrations_index/c1_r1/status":              "pending_manager",
		"registrations_index/c1_r1/client_name":         "Alice",
	})
	if err != nil {
		t.Fatalf("write many: %v", err)
	}

	data, err := m.Read(ctx, "records/c1/registrations/r1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["assignment_status"] != "pending_manager" {
		t.Fatalf("subtree read = %v", got)
	}

	data, err = m.Read(ctx, "registrations_index/c1_r1/client_name")
	if err != nil {
		t.Fatalf("read leaf: %v", err)
	}
	if string(data) != `"Alice"` {
		t.Fatalf("leaf read = %s", data)
	}
}

func TestMemoryNilDeletes(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.WriteOne(ctx, "manager_index/m1/c1_r1", map[string]any{"status": "pending_employee"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := m.WriteMany(ctx, map[string]any{"manager_index/m1/c1_r1": nil}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	data, err := m.Read(ctx, "manager_index/m1/c1_r1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if data != nil {
		t.Fatalf("deleted path should read nil, got %s", data)
	}
	// the parent collection is now empty and reads as absent too
	data, _ = m.Read(ctx, "manager_index/m1")
	if data != nil {
		t.Fatalf("empty collection should read nil, got %s", data)
	}
}

func TestMemoryFailWrites(t *testing.T) {
	m := NewMemory()
	m.FailWrites = true
	err := m.WriteMany(context.Background(), map[string]any{"a/b": 1})
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if data, _ := m.Read(context.Background(), "a/b"); data != nil {
		t.Fatalf("failed write must not land, got %s", data)
	}
}

func TestMemoryStructNormalization(t *testing.T) {
	type entry struct {
		Status string `json:"status"`
	}
	m := NewMemory()
	ctx := context.Background()
	if err := m.WriteOne(ctx, "employee_index/e1/c1_r1", entry{Status: "pending_acceptance"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := m.Read(ctx, "employee_index/e1/c1_r1/status")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `"pending_acceptance"` {
		t.Fatalf("normalized read = %s", data)
	}
}
