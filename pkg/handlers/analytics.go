package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sqlhaven/sqlhaven-engine/pkg/services"
)

// AnalyticsHandler serves aggregated query pattern reports.
type AnalyticsHandler struct {
	analytics services.AnalyticsService
	logger    *zap.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(analytics services.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

// RegisterRoutes registers the analytics handler's routes on the given mux.
func (h *AnalyticsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /analytics/query-patterns", h.QueryPatterns)
}

// QueryPatterns handles GET /analytics/query-patterns?project_id=&hours=
// Returns performance, type, complexity, and table-access aggregates over the
// trailing window, default 24 hours. An empty project_id covers all projects.
func (h *AnalyticsHandler) QueryPatterns(w http.ResponseWriter, r *http.Request) {
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

	report, err := h.analytics.Report(r.Context(), r.URL.Query().Get("project_id"), hours)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, report); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
