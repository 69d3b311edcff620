package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sqlhaven/sqlhaven-engine/pkg/adapters/datasource"
	"github.com/sqlhaven/sqlhaven-engine/pkg/config"
	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
	"github.com/sqlhaven/sqlhaven-engine/pkg/repositories"
	"github.com/sqlhaven/sqlhaven-engine/pkg/services"
)

// stubEngine serves canned results and records executed statements.
type stubEngine struct {
	mu       sync.Mutex
	dialect  models.Dialect
	executed []string
	result   *datasource.ExecuteResult
	execErr  error
	tables   []models.TableSchema
}

func (e *stubEngine) Dialect() models.Dialect { return e.dialect }

func (e *stubEngine) Execute(_ context.Context, sqlText string, _ ...any) (*datasource.ExecuteResult, error) {
	e.mu.Lock()
	e.executed = append(e.executed, sqlText)
	e.mu.Unlock()
	if e.execErr != nil {
		return nil, e.execErr
	}
	return e.result, nil
}

func (e *stubEngine) DiscoverTables(_ context.Context, _ string) ([]models.TableSchema, error) {
	return e.tables, nil
}

func (e *stubEngine) Ping(_ context.Context) error { return nil }
func (e *stubEngine) Close() error                 { return nil }

// stubAnalytics satisfies services.AnalyticsService without a SQLite store.
type stubAnalytics struct {
	mu      sync.Mutex
	records []services.QueryPatternRecord
	report  *models.QueryPatternReport
}

func (a *stubAnalytics) Record(_ context.Context, record services.QueryPatternRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, record)
}

func (a *stubAnalytics) Report(_ context.Context, _ string, _ int) (*models.QueryPatternReport, error) {
	if a.report != nil {
		return a.report, nil
	}
	return &models.QueryPatternReport{}, nil
}

func (a *stubAnalytics) Sweep(_ context.Context) (int64, error) { return 0, nil }
func (a *stubAnalytics) Close() error                           { return nil }

// testServer wires the full handler stack over in-memory repositories and a
// stub MySQL engine.
type testServer struct {
	mux       *http.ServeMux
	engine    *stubEngine
	projects  services.ProjectService
	schemas   services.SchemaService
	ledger    services.IntentLedgerService
	analytics *stubAnalytics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store := repositories.NewMemoryStore()
	projectRepo := repositories.NewMemoryProjectRepository(store)
	schemaRepo := repositories.NewMemorySchemaRepository(store)
	intentRepo := repositories.NewMemoryIntentRepository(store)

	router := datasource.NewRouter(512*1024*1024, logger)
	engine := &stubEngine{dialect: models.DialectMySQL, result: &datasource.ExecuteResult{}}
	router.Register(models.DialectMySQL, func(_ context.Context) (datasource.Engine, error) {
		return engine, nil
	})

	analytics := &stubAnalytics{}
	projects := services.NewProjectService(projectRepo, schemaRepo, router, logger)
	schemas := services.NewSchemaService(projectRepo, schemaRepo, router, logger)
	ledger := services.NewIntentLedgerService(intentRepo, 200, logger)
	execution := services.NewExecutionService(
		projects, schemas, ledger, analytics, router, 5*time.Second, logger)
	ingest := services.NewIngestService(projects, execution, logger)

	cfg := &config.Config{Version: "test", Env: "test"}

	mux := http.NewServeMux()
	NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	NewExecuteHandler(execution, logger).RegisterRoutes(mux)
	NewProjectsHandler(projects, logger).RegisterRoutes(mux)
	NewSchemaHandler(schemas, logger).RegisterRoutes(mux)
	NewIntentsHandler(ledger, logger).RegisterRoutes(mux)
	NewAnalyticsHandler(analytics, logger).RegisterRoutes(mux)
	NewUploadHandler(ingest, logger).RegisterRoutes(mux)

	return &testServer{
		mux:       mux,
		engine:    engine,
		projects:  projects,
		schemas:   schemas,
		ledger:    ledger,
		analytics: analytics,
	}
}

// doJSON sends a request with an optional JSON body and returns the recorder.
func (s *testServer) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals the recorder body into out.
func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

// createProject provisions a MySQL project through the API and returns its ID.
func (s *testServer) createProject(t *testing.T, name string) string {
	t.Helper()

	rec := s.doJSON(t, http.MethodPost, "/projects", map[string]string{
		"name":     name,
		"dialect":  "mysql",
		"database": "sales",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var response struct {
		Project struct {
			ID string `json:"id"`
		} `json:"project"`
	}
	decode(t, rec, &response)
	require.NotEmpty(t, response.Project.ID)
	return response.Project.ID
}
