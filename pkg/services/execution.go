package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sqlhaven/sqlhaven-engine/pkg/adapters/datasource"
	"github.com/sqlhaven/sqlhaven-engine/pkg/apperrors"
	"github.com/sqlhaven/sqlhaven-engine/pkg/logging"
	"github.com/sqlhaven/sqlhaven-engine/pkg/metrics"
	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
	sqlutil "github.com/sqlhaven/sqlhaven-engine/pkg/sql"
)

// ExecuteRequest is one statement submitted to the gateway.
type ExecuteRequest struct {
	// ProjectID selects the tenant. Nil means an ad-hoc statement: no
	// isolation rewriting and no intent ledger, the statement runs verbatim.
	ProjectID *uuid.UUID
	SQL       string
	Params    []any
	// Question is the natural-language question behind the statement, if the
	// caller has one. Stored on the intent record only.
	Question string
	// EstimatedBytes hints the umbrella dialect resolution for a project's
	// first execution. Ignored once the project has a resolved engine.
	EstimatedBytes int64
}

// ExecuteResponse is the gateway's execution result.
type ExecuteResponse struct {
	Success           bool             `json:"success"`
	QueryType         string           `json:"queryType"`
	Engine            models.Dialect   `json:"engine"`
	Columns           []string         `json:"columns,omitempty"`
	Results           []map[string]any `json:"results,omitempty"`
	RowCount          int              `json:"rowCount"`
	AffectedRows      int64            `json:"affectedRows"`
	Message           string           `json:"message,omitempty"`
	Tables            []string         `json:"tables,omitempty"`
	ExecutionTimeMs   int64            `json:"executionTimeMs"`
	SchemaInvalidated bool             `json:"schemaInvalidated,omitempty"`
}

// ExecutionService coordinates one statement through the full pipeline:
// validation, parameter screening, isolation rewriting, dialect routing,
// bounded execution, schema invalidation, intent ledger, and analytics.
type ExecutionService interface {
	Execute(ctx context.Context, dialect models.Dialect, req *ExecuteRequest) (*ExecuteResponse, error)
}

type executionService struct {
	projects  ProjectService
	schemas   SchemaService
	ledger    IntentLedgerService
	analytics AnalyticsService
	router    *datasource.Router
	timeout   time.Duration
	logger    *zap.Logger
}

// NewExecutionService creates the execution coordinator.
func NewExecutionService(
	projects ProjectService,
	schemas SchemaService,
	ledger IntentLedgerService,
	analytics AnalyticsService,
	router *datasource.Router,
	timeout time.Duration,
	logger *zap.Logger,
) ExecutionService {
	return &executionService{
		projects:  projects,
		schemas:   schemas,
		ledger:    ledger,
		analytics: analytics,
		router:    router,
		timeout:   timeout,
		logger:    logger.Named("execution-service"),
	}
}

var _ ExecutionService = (*executionService)(nil)

func (s *executionService) Execute(ctx context.Context, dialect models.Dialect, req *ExecuteRequest) (*ExecuteResponse, error) {
	if req.SQL == "" {
		return nil, fmt.Errorf("%w: sql is required", apperrors.ErrValidation)
	}
	if _, ok := models.ParseDialect(string(dialect)); !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownDialect, dialect)
	}

	if hits := sqlutil.CheckParameters(req.Params); len(hits) > 0 {
		metrics.IncrementInjectionRejection()
		return nil, fmt.Errorf("%w: parameter %d matches injection fingerprint %s",
			apperrors.ErrValidation, hits[0].Position, hits[0].Fingerprint)
	}

	var project *models.Project
	if req.ProjectID != nil {
		var err error
		project, err = s.projects.Get(ctx, *req.ProjectID)
		if err != nil {
			return nil, err
		}
		if dialect != project.Dialect && dialect != project.Engine() {
			return nil, fmt.Errorf("%w: project uses dialect %q, not %q",
				apperrors.ErrValidation, project.Dialect, dialect)
		}
	}

	backendSQL := req.SQL
	var tables []string
	if project != nil {
		rewritten, err := sqlutil.Rewrite(project.ID, project.Database, req.SQL)
		if err != nil {
			return nil, err
		}
		backendSQL = rewritten.SQL
		tables = rewritten.Tables
	} else {
		// Best effort for analytics attribution; ad-hoc SQL that defeats the
		// walker just records no tables.
		tables, _ = sqlutil.ExtractTables(req.SQL)
	}

	routeDialect := dialect
	actual := models.Dialect("")
	var hint *datasource.ResolutionHint
	if project != nil {
		routeDialect = project.Dialect
		actual = project.ActualEngine
		if req.EstimatedBytes > 0 {
			hint = &datasource.ResolutionHint{EstimatedBytes: req.EstimatedBytes}
		}
	}

	engine, concrete, err := s.router.Resolve(ctx, routeDialect, actual, hint)
	if err != nil {
		return nil, err
	}

	if project != nil && project.Dialect == models.DialectAnalytics && project.ActualEngine == "" {
		if err := s.projects.SetActualEngine(ctx, project.ID, concrete); err != nil {
			s.logger.Warn("Failed to persist engine resolution",
				zap.String("project_id", project.ID.String()),
				zap.Error(err))
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := engine.Execute(execCtx, backendSQL, req.Params...)
	elapsed := time.Since(start)
	metrics.ObserveQuery(string(concrete), err == nil, elapsed)

	statementType := sqlutil.Classify(req.SQL)
	queryType := "Query"
	if statementType.ReturnsRows() {
		queryType = "Select"
	}

	if err != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", apperrors.ErrTimeout, s.timeout)
		} else {
			err = apperrors.NewExecutionError(string(concrete), err)
		}

		s.logger.Warn("Statement failed",
			zap.String("dialect", string(concrete)),
			zap.String("query", logging.SanitizeQuery(req.SQL)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		s.record(project, req, queryType, tables, elapsed, false, err.Error())
		return nil, err
	}

	response := &ExecuteResponse{
		Success:         true,
		QueryType:       queryType,
		Engine:          concrete,
		Columns:         result.Columns,
		Results:         result.Rows,
		RowCount:        result.RowCount,
		AffectedRows:    result.AffectedRows,
		Tables:          tables,
		ExecutionTimeMs: elapsed.Milliseconds(),
	}
	if !result.HasRows {
		response.Message = fmt.Sprintf("Statement executed, %d rows affected", result.AffectedRows)
	}

	if statementType.IsDDL() && project != nil {
		if err := s.schemas.Invalidate(ctx, project.ID); err != nil {
			s.logger.Warn("Failed to invalidate schema cache",
				zap.String("project_id", project.ID.String()),
				zap.Error(err))
		} else {
			response.SchemaInvalidated = true
		}
	}

	s.record(project, req, queryType, tables, elapsed, true, "")

	s.logger.Info("Statement executed",
		zap.String("dialect", string(concrete)),
		zap.String("query_type", queryType),
		zap.Int("rows", result.RowCount),
		zap.Duration("elapsed", elapsed))
	return response, nil
}

// record writes the intent ledger entry synchronously (best effort) and the
// analytics observation asynchronously. Both run detached from the request
// context: an abandoned request still gets its outcome logged.
func (s *executionService) record(project *models.Project, req *ExecuteRequest, queryType string, tables []string, elapsed time.Duration, success bool, errMsg string) {
	projectID := ""
	if project != nil {
		projectID = project.ID.String()
		ledgerCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.ledger.Append(ledgerCtx, project.ID, &models.QueryIntent{
			SQL:             req.SQL,
			Question:        req.Question,
			QueryType:       queryType,
			ExecutedAt:      time.Now().UTC(),
			Success:         success,
			Error:           errMsg,
			Tables:          tables,
			ExecutionTimeMs: elapsed.Milliseconds(),
		})
	}

	record := QueryPatternRecord{
		ProjectID:       projectID,
		SQL:             req.SQL,
		ExecutionTimeMs: float64(elapsed.Microseconds()) / 1000.0,
		Success:         success,
		ErrorMessage:    errMsg,
		Tables:          tables,
	}
	go func() {
		recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.analytics.Record(recordCtx, record)
	}()
}
