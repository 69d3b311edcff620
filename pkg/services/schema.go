package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sqlhaven/sqlhaven-engine/pkg/adapters/datasource"
	"github.com/sqlhaven/sqlhaven-engine/pkg/apperrors"
	"github.com/sqlhaven/sqlhaven-engine/pkg/metrics"
	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
	"github.com/sqlhaven/sqlhaven-engine/pkg/repositories"
	sqlutil "github.com/sqlhaven/sqlhaven-engine/pkg/sql"
)

// SchemaService maintains the per-project schema snapshot: discovery against
// the backend catalog, caching in the context store, and invalidation after
// DDL.
type SchemaService interface {
	// Get returns the cached snapshot. A missing snapshot triggers a
	// synchronous discovery; a stale one (invalidated by DDL) is returned
	// as-is while a refresh runs in the background.
	Get(ctx context.Context, projectID uuid.UUID) (*models.SchemaSnapshot, error)
	// Refresh forces discovery against the backend. Concurrent refreshes of
	// the same project collapse into one catalog round trip, which runs
	// detached from any single caller's context.
	Refresh(ctx context.Context, projectID uuid.UUID) (*models.SchemaSnapshot, error)
	// Invalidate marks the snapshot stale without discarding it.
	Invalidate(ctx context.Context, projectID uuid.UUID) error
	// Cached returns the stored snapshot without touching the backend.
	// Returns nil when the project has never been discovered.
	Cached(ctx context.Context, projectID uuid.UUID) (*models.SchemaSnapshot, error)
}

type schemaService struct {
	projectRepo repositories.ProjectRepository
	schemaRepo  repositories.SchemaRepository
	router      *datasource.Router
	group       singleflight.Group
	logger      *zap.Logger
}

// NewSchemaService creates a new schema service.
func NewSchemaService(
	projectRepo repositories.ProjectRepository,
	schemaRepo repositories.SchemaRepository,
	router *datasource.Router,
	logger *zap.Logger,
) SchemaService {
	return &schemaService{
		projectRepo: projectRepo,
		schemaRepo:  schemaRepo,
		router:      router,
		logger:      logger.Named("schema-service"),
	}
}

var _ SchemaService = (*schemaService)(nil)

func (s *schemaService) Get(ctx context.Context, projectID uuid.UUID) (*models.SchemaSnapshot, error) {
	snapshot, err := s.schemaRepo.Get(ctx, projectID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return s.Refresh(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}

	if !snapshot.Discovered {
		s.refreshInBackground(projectID)
	}
	return snapshot, nil
}

// discoveryTimeout bounds one catalog round trip.
const discoveryTimeout = 30 * time.Second

func (s *schemaService) Refresh(_ context.Context, projectID uuid.UUID) (*models.SchemaSnapshot, error) {
	result, err, _ := s.group.Do(projectID.String(), func() (any, error) {
		// The flight is shared; a canceled caller must not fail the
		// callers piggy-backed on it.
		discoverCtx, cancel := context.WithTimeout(context.Background(), discoveryTimeout)
		defer cancel()
		return s.discover(discoverCtx, projectID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.SchemaSnapshot), nil
}

func (s *schemaService) Cached(ctx context.Context, projectID uuid.UUID) (*models.SchemaSnapshot, error) {
	if _, err := s.projectRepo.Get(ctx, projectID); err != nil {
		return nil, err
	}

	snapshot, err := s.schemaRepo.Get(ctx, projectID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *schemaService) Invalidate(ctx context.Context, projectID uuid.UUID) error {
	snapshot, err := s.schemaRepo.Get(ctx, projectID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	snapshot.Discovered = false
	return s.schemaRepo.Put(ctx, projectID, snapshot)
}

// refreshInBackground kicks off a refresh without blocking the stale read.
// The singleflight group keeps concurrent stale reads from piling up
// discovery round trips.
func (s *schemaService) refreshInBackground(projectID uuid.UUID) {
	go func() {
		if _, err := s.Refresh(context.Background(), projectID); err != nil {
			s.logger.Warn("Background schema refresh failed",
				zap.String("project_id", projectID.String()),
				zap.Error(err))
		}
	}()
}

func (s *schemaService) discover(ctx context.Context, projectID uuid.UUID) (*models.SchemaSnapshot, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	engine, _, err := s.router.Resolve(ctx, project.Dialect, project.ActualEngine, nil)
	if err != nil {
		return nil, err
	}

	prefix := sqlutil.TablePrefix(projectID)
	physical, err := engine.DiscoverTables(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("discover tables: %w", err)
	}
	metrics.IncrementSchemaRefresh()

	tables := make([]models.TableSchema, 0, len(physical))
	for _, table := range physical {
		// Discovery matches on a LIKE pattern; only names carrying this
		// project's exact prefix are ours.
		if !strings.HasPrefix(table.Name, prefix) {
			continue
		}
		logical := strings.TrimPrefix(table.Name, prefix)
		if logical == "" {
			continue
		}
		table.Name = logical
		table.EntityName = entityName(logical)
		tables = append(tables, table)
	}

	snapshot := &models.SchemaSnapshot{
		Tables:     tables,
		LastSynced: time.Now().UTC(),
		Discovered: true,
	}
	if err := s.schemaRepo.Put(ctx, projectID, snapshot); err != nil {
		return nil, err
	}

	s.logger.Info("Discovered project schema",
		zap.String("project_id", projectID.String()),
		zap.Int("tables", len(tables)))
	return snapshot, nil
}

// entityName derives a display name from a logical table name: singularized,
// underscores replaced, title-cased. "order_items" becomes "Order Item".
func entityName(logical string) string {
	words := strings.Split(inflection.Singular(logical), "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
