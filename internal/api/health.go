package api

import (
	"net/http"
	"time"

	"github.com/mediacatalog/catalog/internal/api/respond"
)

// HealthHandler reports service health. Always 200; the body carries
// healthy/unhealthy so load balancers and humans see the same signal.
type HealthHandler struct {
	healthy func() bool
}

// CheckHealth handles GET /api/health.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	if h.healthy == nil || h.healthy() {
		status = "healthy"
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
