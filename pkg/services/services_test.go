package services

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/sqlhaven/sqlhaven-engine/pkg/adapters/datasource"
	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
	"github.com/sqlhaven/sqlhaven-engine/pkg/repositories"
)

// stubEngine records executed statements and serves canned results.
type stubEngine struct {
	mu       sync.Mutex
	dialect  models.Dialect
	executed []string
	result   *datasource.ExecuteResult
	execErr  error
	tables   []models.TableSchema

	discoveries int
	// discoverGate, when set, blocks DiscoverTables until the gate closes.
	discoverGate chan struct{}
}

func newStubEngine(dialect models.Dialect) *stubEngine {
	return &stubEngine{
		dialect: dialect,
		result:  &datasource.ExecuteResult{},
	}
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

func (e *stubEngine) DiscoverTables(ctx context.Context, _ string) ([]models.TableSchema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.discoveries++
	gate := e.discoverGate
	tables := e.tables
	e.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return tables, nil
}

func (e *stubEngine) Ping(_ context.Context) error { return nil }
func (e *stubEngine) Close() error                 { return nil }

func (e *stubEngine) statements() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.executed...)
}

func (e *stubEngine) discoverCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.discoveries
}

// stubAnalytics satisfies AnalyticsService without a SQLite store.
type stubAnalytics struct {
	mu      sync.Mutex
	records []QueryPatternRecord
}

func (a *stubAnalytics) Record(_ context.Context, record QueryPatternRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, record)
}

func (a *stubAnalytics) Report(_ context.Context, _ string, _ int) (*models.QueryPatternReport, error) {
	return &models.QueryPatternReport{}, nil
}

func (a *stubAnalytics) Sweep(_ context.Context) (int64, error) { return 0, nil }
func (a *stubAnalytics) Close() error                           { return nil }

// testEnv wires the service stack over in-memory repositories and stub
// engines.
type testEnv struct {
	store       *repositories.MemoryStore
	projectRepo repositories.ProjectRepository
	schemaRepo  repositories.SchemaRepository
	intentRepo  repositories.IntentRepository
	router      *datasource.Router
	projects    ProjectService
	schemas     SchemaService
	ledger      IntentLedgerService
	analytics   *stubAnalytics
}

func newTestEnv(t *testing.T) *testEnv {
	logger := zaptest.NewLogger(t)
	store := repositories.NewMemoryStore()
	projectRepo := repositories.NewMemoryProjectRepository(store)
	schemaRepo := repositories.NewMemorySchemaRepository(store)
	intentRepo := repositories.NewMemoryIntentRepository(store)
	router := datasource.NewRouter(512*1024*1024, logger)

	return &testEnv{
		store:       store,
		projectRepo: projectRepo,
		schemaRepo:  schemaRepo,
		intentRepo:  intentRepo,
		router:      router,
		projects:    NewProjectService(projectRepo, schemaRepo, router, logger),
		schemas:     NewSchemaService(projectRepo, schemaRepo, router, logger),
		ledger:      NewIntentLedgerService(intentRepo, 200, logger),
		analytics:   &stubAnalytics{},
	}
}

func (env *testEnv) registerEngine(dialect models.Dialect) *stubEngine {
	engine := newStubEngine(dialect)
	env.router.Register(dialect, func(_ context.Context) (datasource.Engine, error) {
		return engine, nil
	})
	return engine
}
