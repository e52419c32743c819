package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/casaops/backend/internal/api/middleware"
	"github.com/casaops/backend/internal/dedupe"
	"github.com/casaops/backend/internal/inventory"
	"github.com/casaops/backend/internal/laundry"
)

// ResolveDuplicates runs a duplicate-resolution pass. Dry-run is the
// default; pass apply=true to merge and delete.
func ResolveDuplicates(resolver *dedupe.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := dedupe.ParseKind(r.URL.Query().Get("kind"))
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "kind must be one of: bookings, cleanings, orders")
			return
		}

		apply := r.URL.Query().Get("apply") == "true"

		report, err := resolver.Resolve(r.Context(), kind, apply)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Duplicate resolution failed")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	}
}

// RecomputePickup rebuilds a property's laundry pickup aggregate.
func RecomputePickup(orders *laundry.OrderService, inv *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		propertyID := mux.Vars(r)["propertyId"]

		catalog, err := inv.LoadCatalog(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to load inventory catalog")
			return
		}

		agg, err := orders.RecomputePickup(r.Context(), propertyID, catalog)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Pickup recomputation failed")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(agg)
	}
}

// RepairInventory recreates missing system inventory items and fixes
// category drift.
func RepairInventory(inv *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repaired, err := inv.EnsureSystemItems(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Inventory repair failed")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"repaired": repaired})
	}
}
