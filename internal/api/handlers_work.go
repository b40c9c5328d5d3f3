package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mediacatalog/catalog/internal/api/respond"
	"github.com/mediacatalog/catalog/internal/core"
	"github.com/mediacatalog/catalog/internal/services"
)

// WorkHandler is the HTTP transport for the work aggregate.
type WorkHandler struct {
	svc *services.WorkService
}

// Create POST /api/works
func (h *WorkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req core.CreateWorkInput
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

// Get GET /api/works/{id}
func (h *WorkHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Get(r.Context(), actingUser(r), mux.Vars(r)["id"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// GetByAlias GET /api/works/alias/{alias}
func (h *WorkHandler) GetByAlias(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetByAlias(r.Context(), actingUser(r), mux.Vars(r)["alias"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// Update PATCH /api/works/{id}. Absent keys leave fields unchanged.
// The plain JSON decoder reads a body null the same as an absent key,
// so clients clear a field by sending its zero value ("" or false).
func (h *WorkHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req core.UpdateWorkInput
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

// Delete DELETE /api/works/{id}
func (h *WorkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), actingUser(r), mux.Vars(r)["id"], expectedVersion(r)); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events GET /api/works/{id}/events
func (h *WorkHandler) Events(w http.ResponseWriter, r *http.Request) {
	batches, err := h.svc.Events(r.Context(), actingUser(r), mux.Vars(r)["id"], eventLimit(r))
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": batches, "count": len(batches)})
}

// AddSource POST /api/works/{id}/sources
func (h *WorkHandler) AddSource(w http.ResponseWriter, r *http.Request) {
	var req core.SourceInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON")
		return
	}
	out, err := h.svc.AddSource(r.Context(), actingUser(r), mux.Vars(r)["id"], expectedVersion(r), req)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// RemoveSource DELETE /api/works/{id}/sources/{subId}
func (h *WorkHandler) RemoveSource(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	out, err := h.svc.RemoveSource(r.Context(), actingUser(r), vars["id"], expectedVersion(r), vars["subId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// RemoveAllSources DELETE /api/works/{id}/sources
func (h *WorkHandler) RemoveAllSources(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.RemoveAllSources(r.Context(), actingUser(r), mux.Vars(r)["id"], expectedVersion(r))
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// AddAnnotation POST /api/works/{id}/annotations
func (h *WorkHandler) AddAnnotation(w http.ResponseWriter, r *http.Request) {
	var req core.AnnotationInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON")
		return
	}
	out, err := h.svc.AddAnnotation(r.Context(), actingUser(r), mux.Vars(r)["id"], expectedVersion(r), req)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// RemoveAnnotation DELETE /api/works/{id}/annotations/{subId}
func (h *WorkHandler) RemoveAnnotation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	out, err := h.svc.RemoveAnnotation(r.Context(), actingUser(r), vars["id"], expectedVersion(r), vars["subId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// RemoveAllAnnotations DELETE /api/works/{id}/annotations
func (h *WorkHandler) RemoveAllAnnotations(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.RemoveAllAnnotations(r.Context(), actingUser(r), mux.Vars(r)["id"], expectedVersion(r))
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// AddMedia PUT /api/works/{id}/media/{mediaId}
func (h *WorkHandler) AddMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	out, err := h.svc.AddMedia(r.Context(), actingUser(r), vars["id"], expectedVersion(r), vars["mediaId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// RemoveMedia DELETE /api/works/{id}/media/{mediaId}
func (h *WorkHandler) RemoveMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	out, err := h.svc.RemoveMedia(r.Context(), actingUser(r), vars["id"], expectedVersion(r), vars["mediaId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}
