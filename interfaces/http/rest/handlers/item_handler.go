package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appservices "screengraph-backend/application/services"
	"screengraph-backend/domain/core/entities"
	"screengraph-backend/domain/core/valueobjects"
	"screengraph-backend/interfaces/http/rest/dto"
)

// ItemHandler handles content item HTTP requests
type ItemHandler struct {
	orchestrator *appservices.GraphOrchestrator
	logger       *zap.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(orchestrator *appservices.GraphOrchestrator, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// UpsertItems handles POST /items. Items are registered and a debounced
// rebuild is scheduled; the response returns before the graph is rebuilt.
func (h *ItemHandler) UpsertItems(w http.ResponseWriter, r *http.Request) {
	var req dto.UpsertItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := dto.Validate(req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	items := make([]*entities.ContentItem, 0, len(req.Items))
	for _, payload := range req.Items {
		item, err := payload.ToContentItem()
		if err != nil {
			respondError(w, h.logger, http.StatusBadRequest, "Invalid item "+payload.ID+": "+err.Error())
			return
		}
		items = append(items, item)
	}

	if err := h.orchestrator.UpsertItems(items); err != nil {
		h.logger.Error("failed to upsert items",
			zap.Int("count", len(items)),
			zap.Error(err))
		respondDomainError(w, h.logger, err, "Failed to upsert items")
		return
	}

	respondJSON(w, h.logger, http.StatusAccepted, dto.UpsertItemsResponse{
		Accepted: len(items),
		State:    string(h.orchestrator.Status().State),
	})
}

// DeleteItem handles DELETE /items/{itemID}
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Item ID is required")
		return
	}

	if err := h.orchestrator.DeleteItem(id); err != nil {
		respondDomainError(w, h.logger, err, "Failed to delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
