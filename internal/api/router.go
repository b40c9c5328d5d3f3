package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mediacatalog/catalog/internal/api/recovery"
	"github.com/mediacatalog/catalog/internal/services"
)

// actingUserHeader names the trusted header carrying the acting user
// id. Authentication happens upstream; the service trusts the value.
const actingUserHeader = "X-Catalog-User"

// NewRouter wires all catalog routes.
func NewRouter(svcs *services.Services, health func() bool) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware)

	healthHandler := &HealthHandler{healthy: health}
	workHandler := &WorkHandler{svc: svcs.Works}
	mediaHandler := &MediaHandler{svc: svcs.Media}
	userHandler := &UserHandler{svc: svcs.Users, works: svcs.Works}
	orgHandler := &OrganisationHandler{svc: svcs.Organisations, works: svcs.Works}

	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	// Work endpoints
	router.HandleFunc("/api/works", workHandler.Create).Methods("POST")
	router.HandleFunc("/api/works/{id}", workHandler.Get).Methods("GET")
	router.HandleFunc("/api/works/{id}", workHandler.Update).Methods("PATCH")
	router.HandleFunc("/api/works/{id}", workHandler.Delete).Methods("DELETE")
	router.HandleFunc("/api/works/alias/{alias}", workHandler.GetByAlias).Methods("GET")
	router.HandleFunc("/api/works/{id}/events", workHandler.Events).Methods("GET")

	// Work sub-entity endpoints
	router.HandleFunc("/api/works/{id}/sources", workHandler.AddSource).Methods("POST")
	router.HandleFunc("/api/works/{id}/sources", workHandler.RemoveAllSources).Methods("DELETE")
	router.HandleFunc("/api/works/{id}/sources/{subId}", workHandler.RemoveSource).Methods("DELETE")
	router.HandleFunc("/api/works/{id}/annotations", workHandler.AddAnnotation).Methods("POST")
	router.HandleFunc("/api/works/{id}/annotations", workHandler.RemoveAllAnnotations).Methods("DELETE")
	router.HandleFunc("/api/works/{id}/annotations/{subId}", workHandler.RemoveAnnotation).Methods("DELETE")
	router.HandleFunc("/api/works/{id}/media/{mediaId}", workHandler.AddMedia).Methods("PUT")
	router.HandleFunc("/api/works/{id}/media/{mediaId}", workHandler.RemoveMedia).Methods("DELETE")

	// Media endpoints
	router.HandleFunc("/api/media", mediaHandler.Create).Methods("POST")
	router.HandleFunc("/api/media/{id}", mediaHandler.Get).Methods("GET")
	router.HandleFunc("/api/media/{id}", mediaHandler.Delete).Methods("DELETE")
	router.HandleFunc("/api/media/{id}/events", mediaHandler.Events).Methods("GET")

	// User endpoints
	router.HandleFunc("/api/users", userHandler.Create).Methods("POST")
	router.HandleFunc("/api/users/{id}", userHandler.Get).Methods("GET")
	router.HandleFunc("/api/users/{id}", userHandler.Update).Methods("PATCH")
	router.HandleFunc("/api/users/alias/{alias}", userHandler.GetByAlias).Methods("GET")
	router.HandleFunc("/api/users/{id}/works", userHandler.ListWorks).Methods("GET")

	// Organisation endpoints
	router.HandleFunc("/api/orgs", orgHandler.Create).Methods("POST")
	router.HandleFunc("/api/orgs/{id}", orgHandler.Get).Methods("GET")
	router.HandleFunc("/api/orgs/{id}", orgHandler.Update).Methods("PATCH")
	router.HandleFunc("/api/orgs/alias/{alias}", orgHandler.GetByAlias).Methods("GET")
	router.HandleFunc("/api/orgs/{id}/works", orgHandler.ListWorks).Methods("GET")
	router.HandleFunc("/api/orgs/{id}/events", orgHandler.Events).Methods("GET")

	return router
}

func actingUser(r *http.Request) string {
	return r.Header.Get(actingUserHeader)
}

// expectedVersion reads the optional optimistic-concurrency version
// from the "version" query parameter.
func expectedVersion(r *http.Request) *int64 {
	raw := r.URL.Query().Get("version")
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func eventLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
