// Package handlers contains the REST endpoint handlers.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"screengraph-backend/interfaces/http/rest/dto"
	pkgerrors "screengraph-backend/pkg/errors"
)

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, logger *zap.Logger, status int, message string) {
	respondJSON(w, logger, status, dto.ErrorResponse{Error: message})
}

// respondDomainError maps domain error types onto HTTP statuses. Internal
// errors get the generic fallback message so internals do not leak.
func respondDomainError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	switch {
	case pkgerrors.IsValidation(err):
		respondError(w, logger, http.StatusBadRequest, err.Error())
	case pkgerrors.IsNotFound(err):
		respondError(w, logger, http.StatusNotFound, err.Error())
	case pkgerrors.IsConflict(err):
		respondError(w, logger, http.StatusConflict, err.Error())
	case pkgerrors.IsCancelled(err):
		// Client went away or the build was superseded
		respondError(w, logger, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, logger, http.StatusInternalServerError, fallback)
	}
}
