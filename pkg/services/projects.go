package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sqlhaven/sqlhaven-engine/pkg/adapters/datasource"
	"github.com/sqlhaven/sqlhaven-engine/pkg/apperrors"
	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
	"github.com/sqlhaven/sqlhaven-engine/pkg/repositories"
	sqlutil "github.com/sqlhaven/sqlhaven-engine/pkg/sql"
)

// CreateProjectInput carries the user-supplied fields of a new project.
type CreateProjectInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Dialect     models.Dialect `json:"dialect"`
	Database    string         `json:"database"`
}

// UpdateProjectInput carries the mutable project fields. Dialect and database
// are fixed at creation; changing them would orphan the isolated tables.
type UpdateProjectInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ProjectService defines the interface for project operations.
type ProjectService interface {
	Create(ctx context.Context, input CreateProjectInput) (*models.Project, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context) ([]*models.Project, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProjectInput) (*models.Project, error)
	// Delete removes the project and, best effort, drops its isolated tables
	// on the backend. Backend failures are logged, not returned; the context
	// store delete is what decides the outcome.
	Delete(ctx context.Context, id uuid.UUID) error
	// SetActualEngine records the umbrella dialect resolution. The first
	// recorded engine wins; later calls with a different engine are ignored.
	SetActualEngine(ctx context.Context, id uuid.UUID, engine models.Dialect) error
}

type projectService struct {
	repo       repositories.ProjectRepository
	schemaRepo repositories.SchemaRepository
	router     *datasource.Router
	logger     *zap.Logger
}

// NewProjectService creates a new project service.
func NewProjectService(
	repo repositories.ProjectRepository,
	schemaRepo repositories.SchemaRepository,
	router *datasource.Router,
	logger *zap.Logger,
) ProjectService {
	return &projectService{
		repo:       repo,
		schemaRepo: schemaRepo,
		router:     router,
		logger:     logger.Named("project-service"),
	}
}

var _ ProjectService = (*projectService)(nil)

func (s *projectService) Create(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: project name is required", apperrors.ErrValidation)
	}
	if input.Database == "" {
		return nil, fmt.Errorf("%w: project database is required", apperrors.ErrValidation)
	}
	if _, ok := models.ParseDialect(string(input.Dialect)); !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownDialect, input.Dialect)
	}

	project := &models.Project{
		Name:        input.Name,
		Description: input.Description,
		Dialect:     input.Dialect,
		Database:    input.Database,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("Created project",
		zap.String("project_id", project.ID.String()),
		zap.String("dialect", string(project.Dialect)))
	return project, nil
}

func (s *projectService) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.repo.Get(ctx, id)
}

func (s *projectService) List(ctx context.Context) ([]*models.Project, error) {
	return s.repo.List(ctx)
}

func (s *projectService) Update(ctx context.Context, id uuid.UUID, input UpdateProjectInput) (*models.Project, error) {
	project, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, fmt.Errorf("%w: project name cannot be empty", apperrors.ErrValidation)
		}
		project.Name = *input.Name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectService) Delete(ctx context.Context, id uuid.UUID) error {
	project, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	s.dropIsolatedTables(ctx, project)

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Deleted project", zap.String("project_id", id.String()))
	return nil
}

// dropIsolatedTables issues DROP TABLE for every table in the last known
// schema snapshot. Failures leave orphaned physical tables behind, which is
// acceptable: the isolation prefix keeps them invisible to other projects.
func (s *projectService) dropIsolatedTables(ctx context.Context, project *models.Project) {
	snapshot, err := s.schemaRepo.Get(ctx, project.ID)
	if err != nil || len(snapshot.Tables) == 0 {
		return
	}

	engine, _, err := s.router.Resolve(ctx, project.Dialect, project.ActualEngine, nil)
	if err != nil {
		s.logger.Warn("Skipping table cleanup, backend unavailable",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		return
	}

	for _, table := range snapshot.Tables {
		physical, err := sqlutil.IsolatedName(project.ID, table.Name)
		if err != nil {
			continue
		}
		if _, err := engine.Execute(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", physical)); err != nil {
			s.logger.Warn("Failed to drop isolated table",
				zap.String("project_id", project.ID.String()),
				zap.String("table", table.Name),
				zap.Error(err))
		}
	}
}

func (s *projectService) SetActualEngine(ctx context.Context, id uuid.UUID, engine models.Dialect) error {
	project, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if project.ActualEngine != "" {
		return nil
	}

	project.ActualEngine = engine
	if err := s.repo.Update(ctx, project); err != nil {
		return fmt.Errorf("failed to persist engine resolution: %w", err)
	}

	s.logger.Info("Recorded engine resolution",
		zap.String("project_id", id.String()),
		zap.String("engine", string(engine)))
	return nil
}
