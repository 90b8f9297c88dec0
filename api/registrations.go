package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	"github.com/gorilla/mux"
	"github.com/talentdesk/backoffice/internal/assignment"
	"github.com/talentdesk/backoffice/internal/jobs"
	"github.com/talentdesk/backoffice/internal/recordstore"
	"github.com/talentdesk/backoffice/internal/registry"
	"github.com/talentdesk/backoffice/pkg/models"
)

// Enqueuer schedules background jobs without exposing the whole pool.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)
}

type RegistrationsHandler struct {
	svc   *registry.Service
	queue Enqueuer
}

func NewRegistrationsHandler(svc *registry.Service, queue Enqueuer) *RegistrationsHandler {
	return &RegistrationsHandler{svc: svc, queue: queue}
}

// writeTransitionError maps service errors onto HTTP statuses: bad
// input is 400, a trigger the current state does not allow is 409, a
// store failure is 502.
func writeTransitionError(w http.ResponseWriter, err error) {
	var illegal *assignment.IllegalTransitionError
	var storeErr *recordstore.StoreError
	switch {
	case errors.Is(err, assignment.ErrInvalidAssignment):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &illegal):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, registry.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &storeErr):
		http.Error(w, "record store unavailable", http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *RegistrationsHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.Registrations(r.Context())
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		want := models.AssignmentStatus(status)
		if !want.Valid() {
			http.Error(w, "unknown status", http.StatusBadRequest)
			return
		}
		filtered := records[:0]
		for _, rec := range records {
			if rec.Status.Normalize() == want.Normalize() {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}
	if records == nil {
		records = []models.IndexRecord{}
	}
	writeJSON(w, map[string]any{"total": len(records), "items": records}, http.StatusOK)
}

func (h *RegistrationsHandler) Counts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Counts(), http.StatusOK)
}

func (h *RegistrationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reg, err := h.svc.Registration(r.Context(), vars["clientID"], vars["registrationID"])
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	writeJSON(w, reg, http.StatusOK)
}

// transition factors the shared shape of the five trigger endpoints.
func (h *RegistrationsHandler) transition(w http.ResponseWriter, r *http.Request,
	run func(ctx context.Context, clientID, registrationID string) (models.Registration, error),
) {
	vars := mux.Vars(r)
	reg, err := run(r.Context(), vars["clientID"], vars["registrationID"])
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	writeJSON(w, reg, http.StatusOK)
}

func (h *RegistrationsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Accept)
}

func (h *RegistrationsHandler) Unaccept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Unaccept)
}

func (h *RegistrationsHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Decline)
}

func (h *RegistrationsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Restore)
}

func (h *RegistrationsHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.ToggleActive)
}

type assignManagerRequest struct {
	ManagerID   string `json:"manager_id"`
	ManagerName string `json:"manager_name"`
}

func (h *RegistrationsHandler) AssignManager(w http.ResponseWriter, r *http.Request) {
	var req assignManagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	vars := mux.Vars(r)
	reg, err := h.svc.AssignManager(r.Context(), vars["clientID"], vars["registrationID"], req.ManagerID, req.ManagerName)
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	writeJSON(w, reg, http.StatusOK)
}

type assignEmployeeRequest struct {
	EmployeeID string `json:"employee_id"`
}

func (h *RegistrationsHandler) AssignEmployee(w http.ResponseWriter, r *http.Request) {
	var req assignEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	vars := mux.Vars(r)
	reg, err := h.svc.AssignEmployee(r.Context(), vars["clientID"], vars["registrationID"], req.EmployeeID)
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	// schedule a sweep so any drift in the employee index heals even
	// if a later write path misses it
	if h.queue != nil {
		payload := map[string]string{"reason": "employee_assigned", "registration": reg.Key()}
		if _, err := h.queue.Enqueue(r.Context(), jobs.TypeReconcileEmployeeIndex, payload, 100, 3); err != nil {
			logger.Warn("enqueue reconcile failed", slog.Any("err", err))
		}
	}
	writeJSON(w, reg, http.StatusOK)
}

func (h *RegistrationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.Delete(r.Context(), vars["clientID"], vars["registrationID"]); err != nil {
		writeTransitionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RegistrationsHandler) ManagerDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.ManagerDashboard(r.Context(), mux.Vars(r)["managerID"])
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	writeJSON(w, d, http.StatusOK)
}

func (h *RegistrationsHandler) EmployeeDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.EmployeeDashboard(r.Context(), mux.Vars(r)["employeeID"])
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	writeJSON(w, d, http.StatusOK)
}
