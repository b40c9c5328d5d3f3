package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mediacatalog/catalog/internal/api/respond"
	"github.com/mediacatalog/catalog/internal/core"
	"github.com/mediacatalog/catalog/internal/services"
)

// OrganisationHandler is the HTTP transport for the organisation
// aggregate.
type OrganisationHandler struct {
	svc   *services.OrganisationService
	works *services.WorkService
}

// Create POST /api/orgs
func (h *OrganisationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req core.CreateOrganisationInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON")
		return
	}
	out, err := h.svc.Create(r.Context(), actingUser(r), req)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// Get GET /api/orgs/{id}
func (h *OrganisationHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Get(r.Context(), actingUser(r), mux.Vars(r)["id"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// GetByAlias GET /api/orgs/alias/{alias}
func (h *OrganisationHandler) GetByAlias(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetByAlias(r.Context(), actingUser(r), mux.Vars(r)["alias"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// Update PATCH /api/orgs/{id}. Absent keys leave fields unchanged;
// a profile field is cleared by sending "", since the decoder reads a
// body null the same as an absent key. Owners, when present, replaces
// the whole owner list.
func (h *OrganisationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req core.UpdateOrganisationInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON")
		return
	}
	out, err := h.svc.Update(r.Context(), actingUser(r), mux.Vars(r)["id"], expectedVersion(r), req)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// ListWorks GET /api/orgs/{id}/works
func (h *OrganisationHandler) ListWorks(w http.ResponseWriter, r *http.Request) {
	out, err := h.works.ListByOwnerOrg(r.Context(), actingUser(r), mux.Vars(r)["id"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"works": out, "count": len(out)})
}

// Events GET /api/orgs/{id}/events
func (h *OrganisationHandler) Events(w http.ResponseWriter, r *http.Request) {
	batches, err := h.svc.Events(r.Context(), actingUser(r), mux.Vars(r)["id"], eventLimit(r))
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": batches, "count": len(batches)})
}
