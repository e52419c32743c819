package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/casaops/backend/internal/api/middleware"
	syncengine "github.com/casaops/backend/internal/sync"
)

// TriggerFleetSync runs a full-fleet sync and returns the run report.
func TriggerFleetSync(orchestrator *syncengine.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := orchestrator.Run(r.Context(), syncengine.Options{})
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	}
}

// TriggerPropertySync runs a sync for a single property.
func TriggerPropertySync(orchestrator *syncengine.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		propertyID := mux.Vars(r)["id"]

		report, err := orchestrator.Run(r.Context(), syncengine.Options{PropertyID: propertyID})
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	}
}

// LastSyncReport returns the most recent run report.
func LastSyncReport(orchestrator *syncengine.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := orchestrator.LastReport()
		if report == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "No sync run recorded yet")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	}
}
