package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/casaops/backend/internal/api/middleware"
	"github.com/casaops/backend/internal/storage"
	"github.com/casaops/backend/internal/storage/models"
)

// CreateExclusionRequest records a durable manual-cancellation override.
type CreateExclusionRequest struct {
	PropertyID string  `json:"property_id"`
	Day        string  `json:"day"`
	Source     *string `json:"source,omitempty"`
	Reason     string  `json:"reason"`
}

// ListExclusions returns exclusions, optionally filtered by property.
func ListExclusions(repo *storage.ExclusionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			exclusions []models.SyncExclusion
			err        error
		)

		if propertyID := r.URL.Query().Get("propertyId"); propertyID != "" {
			exclusions, err = repo.ListByProperty(r.Context(), propertyID)
		} else {
			exclusions, err = repo.List(r.Context())
		}
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query exclusions")
			return
		}

		if exclusions == nil {
			exclusions = []models.SyncExclusion{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(exclusions)
	}
}

// CreateExclusion records a new exclusion so the next sync cannot resurrect
// a manually cancelled booking or cleaning.
func CreateExclusion(repo *storage.ExclusionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateExclusionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.PropertyID == "" || req.Day == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "property_id and day are required")
			return
		}
		if _, err := time.Parse(models.DayFormat, req.Day); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "day must be YYYY-MM-DD")
			return
		}

		e := &models.SyncExclusion{
			PropertyID: req.PropertyID,
			Day:        req.Day,
			Source:     req.Source,
			Reason:     req.Reason,
		}
		if err := repo.Create(r.Context(), e); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create exclusion")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(e)
	}
}

// DeleteExclusion removes an exclusion, re-enabling sync for its key.
func DeleteExclusion(repo *storage.ExclusionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if err := repo.Delete(r.Context(), id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Exclusion not found")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete exclusion")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
