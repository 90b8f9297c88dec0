package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/qri-io/jsonschema"
	"github.com/talentdesk/backoffice/internal/registry"
	"github.com/talentdesk/backoffice/internal/summary"
	"github.com/talentdesk/backoffice/pkg/models"
)

// profileSchema constrains profile edits: known string fields only.
const profileSchema = `{
	"type": "object",
	"minProperties": 1,
	"additionalProperties": false,
	"properties": {
		"name":        {"type": "string"},
		"email":       {"type": "string"},
		"phone":       {"type": "string"},
		"address":     {"type": "string"},
		"education":   {"type": "string"},
		"employment":  {"type": "string"},
		"visa_status": {"type": "string"}
	}
}`

type ClientsHandler struct {
	svc        *registry.Service
	summarizer summary.Summarizer
	schema     *jsonschema.Schema
}

func NewClientsHandler(svc *registry.Service, summarizer summary.Summarizer) (*ClientsHandler, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(profileSchema), rs); err != nil {
		return nil, fmt.Errorf("compile profile schema: %w", err)
	}
	return &ClientsHandler{svc: svc, summarizer: summarizer, schema: rs}, nil
}

func (h *ClientsHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.Clients(r.Context())
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	if clients == nil {
		clients = []models.Client{}
	}
	writeJSON(w, map[string]any{"total": len(clients), "items": clients}, http.StatusOK)
}

func (h *ClientsHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Client(r.Context(), mux.Vars(r)["clientID"])
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	writeJSON(w, c, http.StatusOK)
}

// UpdateProfile validates the payload against the profile schema and
// writes the fields onto the client record.
func (h *ClientsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	errs, err := h.schema.ValidateBytes(r.Context(), raw)
	if err != nil {
		http.Error(w, fmt.Sprintf("validate profile: %v", err), http.StatusBadRequest)
		return
	}
	if len(errs) > 0 {
		http.Error(w, fmt.Sprintf("invalid profile: %v", errs[0]), http.StatusBadRequest)
		return
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	clientID := mux.Vars(r)["clientID"]
	if err := h.svc.UpdateClientProfile(r.Context(), clientID, fields); err != nil {
		writeTransitionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summarize generates a structured profile summary for a client,
// feeding the model the client's registrations for context.
func (h *ClientsHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	if h.summarizer == nil {
		http.Error(w, "summarizer not configured", http.StatusServiceUnavailable)
		return
	}
	clientID := mux.Vars(r)["clientID"]
	client, err := h.svc.Client(r.Context(), clientID)
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	var regs []models.Registration
	records, err := h.svc.Registrations(r.Context())
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	for _, rec := range records {
		if rec.ClientID != clientID {
			continue
		}
		reg, err := h.svc.Registration(r.Context(), rec.ClientID, rec.RegistrationID)
		if err != nil {
			continue
		}
		regs = append(regs, reg)
	}

	result, err := h.summarizer.Summarize(r.Context(), client, regs)
	if err != nil {
		if errors.Is(err, summary.ErrLowConfidence) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "summary generation failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, result, http.StatusOK)
}
