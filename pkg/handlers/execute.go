package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
	"github.com/sqlhaven/sqlhaven-engine/pkg/services"
)

// ExecuteRequest is the body of POST /execute/{engine}.
type ExecuteRequest struct {
	Query string `json:"query"`
	// Database is accepted for compatibility with older clients. The
	// project's configured database wins; ad-hoc statements run against the
	// backend's default.
	Database  string `json:"database,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	Params    []any  `json:"params,omitempty"`
	Question  string `json:"question,omitempty"`
	// EstimatedBytes hints the analytics dialect's engine choice on a
	// project's first execution.
	EstimatedBytes int64 `json:"estimatedBytes,omitempty"`
}

// ExecuteHandler handles SQL execution requests.
type ExecuteHandler struct {
	execution services.ExecutionService
	logger    *zap.Logger
}

// NewExecuteHandler creates a new execute handler.
func NewExecuteHandler(execution services.ExecutionService, logger *zap.Logger) *ExecuteHandler {
	return &ExecuteHandler{execution: execution, logger: logger}
}

// RegisterRoutes registers the execute handler's routes on the given mux.
func (h *ExecuteHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /execute/{engine}", h.Execute)
}

// Execute handles POST /execute/{engine}
// Runs a SQL statement against the named dialect, with isolation rewriting
// and intent recording when a project is given.
func (h *ExecuteHandler) Execute(w http.ResponseWriter, r *http.Request) {
	dialect, ok := models.ParseDialect(r.PathValue("engine"))
	if !ok {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "Unknown engine: "+r.PathValue("engine")); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var projectID *uuid.UUID
	if req.ProjectID != "" {
		id, err := uuid.Parse(req.ProjectID)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "Invalid project ID format"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		projectID = &id
	}

	response, err := h.execution.Execute(r.Context(), dialect, &services.ExecuteRequest{
		ProjectID:      projectID,
		SQL:            req.Query,
		Params:         req.Params,
		Question:       req.Question,
		EstimatedBytes: req.EstimatedBytes,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
