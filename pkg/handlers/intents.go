package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
	"github.com/sqlhaven/sqlhaven-engine/pkg/services"
)

// IntentsHandler serves the per-project query intent history.
type IntentsHandler struct {
	ledger services.IntentLedgerService
	logger *zap.Logger
}

// NewIntentsHandler creates a new intents handler.
func NewIntentsHandler(ledger services.IntentLedgerService, logger *zap.Logger) *IntentsHandler {
	return &IntentsHandler{ledger: ledger, logger: logger}
}

// RegisterRoutes registers the intents handler's routes on the given mux.
func (h *IntentsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /context/intents/{projectId}", h.List)
	mux.HandleFunc("GET /context/intents/{projectId}/stats", h.Stats)
}

// List handles GET /context/intents/{projectId}?limit=
// Returns retained intent records, newest first.
func (h *IntentsHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.parseProjectID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		limit = parsed
	}

	intents, err := h.ledger.List(r.Context(), projectID, limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string][]models.QueryIntent{"intents": intents}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Stats handles GET /context/intents/{projectId}/stats?hours=
// Aggregates the retained ledger over a trailing window, default 24 hours.
func (h *IntentsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.parseProjectID(w, r)
	if !ok {
		return
	}

	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "hours must be a positive integer"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		hours = parsed
	}

	stats, err := h.ledger.Stats(r.Context(), projectID, hours)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, stats); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *IntentsHandler) parseProjectID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	projectID, err := uuid.Parse(r.PathValue("projectId"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "Invalid project ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return projectID, true
}
