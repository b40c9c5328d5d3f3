package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mediacatalog/catalog/internal/api/respond"
	"github.com/mediacatalog/catalog/internal/core"
	"github.com/mediacatalog/catalog/internal/services"
)

// UserHandler is the HTTP transport for the user aggregate.
type UserHandler struct {
	svc   *services.UserService
	works *services.WorkService
}

// Create POST /api/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req core.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON")
		return
	}
	out, err := h.svc.Create(r.Context(), req)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// Get GET /api/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Get(r.Context(), actingUser(r), mux.Vars(r)["id"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// GetByAlias GET /api/users/alias/{alias}
func (h *UserHandler) GetByAlias(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetByAlias(r.Context(), actingUser(r), mux.Vars(r)["alias"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// Update PATCH /api/users/{id}. Absent keys leave fields unchanged;
// a field is cleared by sending "", since the decoder reads a body
// null the same as an absent key.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req core.UpdateUserInput
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

// ListWorks GET /api/users/{id}/works
func (h *UserHandler) ListWorks(w http.ResponseWriter, r *http.Request) {
	out, err := h.works.ListByOwnerUser(r.Context(), actingUser(r), mux.Vars(r)["id"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"works": out, "count": len(out)})
}
