package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sqlhaven/sqlhaven-engine/pkg/apperrors"
	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
)

// ProjectRepository defines the interface for project metadata access.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context) ([]*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// redisProjectRepository implements ProjectRepository on the Redis context
// store. Project metadata is a JSON blob per project.
type redisProjectRepository struct {
	client *redis.Client
}

// NewRedisProjectRepository creates a Redis-backed project repository.
func NewRedisProjectRepository(client *redis.Client) ProjectRepository {
	return &redisProjectRepository{client: client}
}

var _ ProjectRepository = (*redisProjectRepository)(nil)

func (r *redisProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}

	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	return r.put(ctx, project)
}

func (r *redisProjectRepository) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	data, err := r.client.Get(ctx, metadataKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	var project models.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project: %w", err)
	}
	return &project, nil
}

func (r *redisProjectRepository) List(ctx context.Context) ([]*models.Project, error) {
	projects := make([]*models.Project, 0)

	iter := r.client.Scan(ctx, 0, "project:*:metadata", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			// Deleted between SCAN and GET.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get project: %w", err)
		}

		var project models.Project
		if err := json.Unmarshal(data, &project); err != nil {
			return nil, fmt.Errorf("failed to unmarshal project: %w", err)
		}
		projects = append(projects, &project)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan projects: %w", err)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})
	return projects, nil
}

func (r *redisProjectRepository) Update(ctx context.Context, project *models.Project) error {
	if _, err := r.Get(ctx, project.ID); err != nil {
		return err
	}

	project.UpdatedAt = time.Now().UTC()
	return r.put(ctx, project)
}

// Delete removes the project's metadata along with its schema snapshot and
// intent history.
func (r *redisProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := r.client.Del(ctx, metadataKey(id), schemaKey(id), intentsKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if deleted == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *redisProjectRepository) put(ctx context.Context, project *models.Project) error {
	data, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}
	if err := r.client.Set(ctx, metadataKey(project.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store project: %w", err)
	}
	return nil
}

// memoryProjectRepository is the single-process fallback used when Redis is
// not configured, and the default in tests.
type memoryProjectRepository struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]*models.Project
	store    *MemoryStore
}

// NewMemoryProjectRepository creates an in-memory project repository. The
// shared store lets a delete cascade to the schema and intent repositories.
func NewMemoryProjectRepository(store *MemoryStore) ProjectRepository {
	return &memoryProjectRepository{
		projects: make(map[uuid.UUID]*models.Project),
		store:    store,
	}
}

var _ ProjectRepository = (*memoryProjectRepository)(nil)

func (r *memoryProjectRepository) Create(_ context.Context, project *models.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}

	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *project
	r.projects[project.ID] = &clone
	return nil
}

func (r *memoryProjectRepository) Get(_ context.Context, id uuid.UUID) (*models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, ok := r.projects[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *project
	return &clone, nil
}

func (r *memoryProjectRepository) List(_ context.Context) ([]*models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	projects := make([]*models.Project, 0, len(r.projects))
	for _, project := range r.projects {
		clone := *project
		projects = append(projects, &clone)
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})
	return projects, nil
}

func (r *memoryProjectRepository) Update(_ context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[project.ID]; !ok {
		return apperrors.ErrNotFound
	}

	project.UpdatedAt = time.Now().UTC()
	clone := *project
	r.projects[project.ID] = &clone
	return nil
}

func (r *memoryProjectRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.projects, id)
	if r.store != nil {
		r.store.drop(id)
	}
	return nil
}
