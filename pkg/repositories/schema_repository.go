package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sqlhaven/sqlhaven-engine/pkg/apperrors"
	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
)

// SchemaRepository stores the per-project schema snapshot. Put replaces the
// whole snapshot, so readers never see a half-refreshed one.
type SchemaRepository interface {
	Get(ctx context.Context, projectID uuid.UUID) (*models.SchemaSnapshot, error)
	Put(ctx context.Context, projectID uuid.UUID, snapshot *models.SchemaSnapshot) error
	Delete(ctx context.Context, projectID uuid.UUID) error
}

type redisSchemaRepository struct {
	client *redis.Client
}

// NewRedisSchemaRepository creates a Redis-backed schema repository.
func NewRedisSchemaRepository(client *redis.Client) SchemaRepository {
	return &redisSchemaRepository{client: client}
}

var _ SchemaRepository = (*redisSchemaRepository)(nil)

func (r *redisSchemaRepository) Get(ctx context.Context, projectID uuid.UUID) (*models.SchemaSnapshot, error) {
	data, err := r.client.Get(ctx, schemaKey(projectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schema snapshot: %w", err)
	}

	var snapshot models.SchemaSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema snapshot: %w", err)
	}
	return &snapshot, nil
}

func (r *redisSchemaRepository) Put(ctx context.Context, projectID uuid.UUID, snapshot *models.SchemaSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal schema snapshot: %w", err)
	}
	if err := r.client.Set(ctx, schemaKey(projectID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store schema snapshot: %w", err)
	}
	return nil
}

func (r *redisSchemaRepository) Delete(ctx context.Context, projectID uuid.UUID) error {
	if err := r.client.Del(ctx, schemaKey(projectID)).Err(); err != nil {
		return fmt.Errorf("failed to delete schema snapshot: %w", err)
	}
	return nil
}

type memorySchemaRepository struct {
	store *MemoryStore
}

// NewMemorySchemaRepository creates an in-memory schema repository over the
// shared store.
func NewMemorySchemaRepository(store *MemoryStore) SchemaRepository {
	return &memorySchemaRepository{store: store}
}

var _ SchemaRepository = (*memorySchemaRepository)(nil)

func (r *memorySchemaRepository) Get(_ context.Context, projectID uuid.UUID) (*models.SchemaSnapshot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	snapshot, ok := r.store.schemas[projectID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *snapshot
	clone.Tables = append([]models.TableSchema(nil), snapshot.Tables...)
	return &clone, nil
}

func (r *memorySchemaRepository) Put(_ context.Context, projectID uuid.UUID, snapshot *models.SchemaSnapshot) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	clone := *snapshot
	clone.Tables = append([]models.TableSchema(nil), snapshot.Tables...)
	r.store.schemas[projectID] = &clone
	return nil
}

func (r *memorySchemaRepository) Delete(_ context.Context, projectID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.schemas, projectID)
	return nil
}
