package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appservices "screengraph-backend/application/services"
	"screengraph-backend/domain/core/valueobjects"
	"screengraph-backend/interfaces/http/rest/dto"
)

// GraphHandler handles relationship graph HTTP requests
type GraphHandler struct {
	orchestrator *appservices.GraphOrchestrator
	logger       *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(orchestrator *appservices.GraphOrchestrator, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// GetGraph handles GET /graph. With ?rebuild=now any pending changes are
// rebuilt synchronously before responding.
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("rebuild") == "now" {
		if err := h.orchestrator.RebuildNow(r.Context()); err != nil {
			h.logger.Error("eager rebuild failed", zap.Error(err))
			respondDomainError(w, h.logger, err, "Failed to rebuild graph")
			return
		}
	}

	respondJSON(w, h.logger, http.StatusOK, dto.NewGraphResponse(h.orchestrator.Snapshot()))
}

// GetPositions handles GET /graph/positions
func (h *GraphHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.orchestrator.Positions(r.Context())
	if err != nil {
		h.logger.Error("failed to compute positions", zap.Error(err))
		respondDomainError(w, h.logger, err, "Failed to compute positions")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, dto.NewPositionsResponse(positions))
}

// GetStatus handles GET /graph/status
func (h *GraphHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, dto.NewStatusResponse(h.orchestrator.Status()))
}

// PinNode handles POST /graph/nodes/{itemID}/pin
func (h *GraphHandler) PinNode(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Item ID is required")
		return
	}

	if err := h.orchestrator.PinNode(id); err != nil {
		respondDomainError(w, h.logger, err, "Failed to pin node")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnpinNode handles DELETE /graph/nodes/{itemID}/pin. Unpinning relaxes
// the node's neighborhood back into the force simulation.
func (h *GraphHandler) UnpinNode(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Item ID is required")
		return
	}

	if err := h.orchestrator.UnpinNode(r.Context(), id); err != nil {
		respondDomainError(w, h.logger, err, "Failed to unpin node")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MoveNode handles PUT /graph/nodes/{itemID}/position. Only pinned nodes
// can be moved; the position is clamped to the layout bounds.
func (h *GraphHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Item ID is required")
		return
	}

	var req dto.MoveNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := dto.Validate(req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	pos, err := valueobjects.NewPosition(*req.X, *req.Y)
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orchestrator.MoveNode(id, pos); err != nil {
		respondDomainError(w, h.logger, err, "Failed to move node")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
