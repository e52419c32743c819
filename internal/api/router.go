// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"github.com/gorilla/mux"

	"github.com/casaops/backend/internal/api/handlers"
	"github.com/casaops/backend/internal/api/middleware"
	"github.com/casaops/backend/internal/dedupe"
	"github.com/casaops/backend/internal/inventory"
	"github.com/casaops/backend/internal/laundry"
	"github.com/casaops/backend/internal/storage"
	syncengine "github.com/casaops/backend/internal/sync"
	"github.com/casaops/backend/internal/websocket"
)

// Services holds everything the router wires handlers to.
type Services struct {
	DB            *storage.DB
	Exclusions    *storage.ExclusionRepository
	Orchestrator  *syncengine.Orchestrator
	Resolver      *dedupe.Resolver
	Orders        *laundry.OrderService
	Inventory     *inventory.Service
	Hub           *websocket.Hub
	TriggerSecret string
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(s Services) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(s.DB)).Methods("GET")
	api.HandleFunc("/sync/last-report", handlers.LastSyncReport(s.Orchestrator)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Hub)).Methods("GET")

	// Exclusion endpoints
	api.HandleFunc("/exclusions", handlers.ListExclusions(s.Exclusions)).Methods("GET")
	api.HandleFunc("/exclusions", handlers.CreateExclusion(s.Exclusions)).Methods("POST")
	api.HandleFunc("/exclusions/{id}", handlers.DeleteExclusion(s.Exclusions)).Methods("DELETE")

	// Sync triggers and maintenance operations, behind the shared secret
	guarded := api.NewRoute().Subrouter()
	guarded.Use(middleware.RequireSecret(s.TriggerSecret))
	guarded.HandleFunc("/sync/run", handlers.TriggerFleetSync(s.Orchestrator)).Methods("POST")
	guarded.HandleFunc("/sync/properties/{id}/run", handlers.TriggerPropertySync(s.Orchestrator)).Methods("POST")
	guarded.HandleFunc("/maintenance/duplicates", handlers.ResolveDuplicates(s.Resolver)).Methods("POST")
	guarded.HandleFunc("/maintenance/pickup/{propertyId}", handlers.RecomputePickup(s.Orders, s.Inventory)).Methods("POST")
	guarded.HandleFunc("/maintenance/inventory/repair", handlers.RepairInventory(s.Inventory)).Methods("POST")

	return r
}
