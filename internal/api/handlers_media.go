package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mediacatalog/catalog/internal/api/respond"
	"github.com/mediacatalog/catalog/internal/core"
	"github.com/mediacatalog/catalog/internal/services"
)

// MediaHandler is the HTTP transport for the media aggregate.
type MediaHandler struct {
	svc *services.MediaService
}

// Create POST /api/media
func (h *MediaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req core.CreateMediaInput
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

// Get GET /api/media/{id}
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Get(r.Context(), actingUser(r), mux.Vars(r)["id"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// Delete DELETE /api/media/{id}
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), actingUser(r), mux.Vars(r)["id"], expectedVersion(r)); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events GET /api/media/{id}/events
func (h *MediaHandler) Events(w http.ResponseWriter, r *http.Request) {
	batches, err := h.svc.Events(r.Context(), actingUser(r), mux.Vars(r)["id"], eventLimit(r))
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": batches, "count": len(batches)})
}
