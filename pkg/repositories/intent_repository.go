package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
)

// IntentRepository stores the per-project query intent history, newest
// first, capped at maxRecords. Appending past the cap evicts the oldest
// record.
type IntentRepository interface {
	Append(ctx context.Context, projectID uuid.UUID, intent *models.QueryIntent, maxRecords int) error
	// List returns up to limit records, newest first. limit <= 0 returns all
	// retained records.
	List(ctx context.Context, projectID uuid.UUID, limit int) ([]models.QueryIntent, error)
	Delete(ctx context.Context, projectID uuid.UUID) error
}

// redisIntentRepository keeps intents in a Redis list. LPUSH prepends and
// LTRIM enforces the cap, both in one pipeline so the list never grows past
// maxRecords.
type redisIntentRepository struct {
	client *redis.Client
}

// NewRedisIntentRepository creates a Redis-backed intent repository.
func NewRedisIntentRepository(client *redis.Client) IntentRepository {
	return &redisIntentRepository{client: client}
}

var _ IntentRepository = (*redisIntentRepository)(nil)

func (r *redisIntentRepository) Append(ctx context.Context, projectID uuid.UUID, intent *models.QueryIntent, maxRecords int) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}

	key := intentsKey(projectID)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	if maxRecords > 0 {
		pipe.LTrim(ctx, key, 0, int64(maxRecords-1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append intent: %w", err)
	}
	return nil
}

func (r *redisIntentRepository) List(ctx context.Context, projectID uuid.UUID, limit int) ([]models.QueryIntent, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	raw, err := r.client.LRange(ctx, intentsKey(projectID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list intents: %w", err)
	}

	intents := make([]models.QueryIntent, 0, len(raw))
	for _, item := range raw {
		var intent models.QueryIntent
		if err := json.Unmarshal([]byte(item), &intent); err != nil {
			return nil, fmt.Errorf("failed to unmarshal intent: %w", err)
		}
		intents = append(intents, intent)
	}
	return intents, nil
}

func (r *redisIntentRepository) Delete(ctx context.Context, projectID uuid.UUID) error {
	if err := r.client.Del(ctx, intentsKey(projectID)).Err(); err != nil {
		return fmt.Errorf("failed to delete intents: %w", err)
	}
	return nil
}

type memoryIntentRepository struct {
	store *MemoryStore
}

// NewMemoryIntentRepository creates an in-memory intent repository over the
// shared store.
func NewMemoryIntentRepository(store *MemoryStore) IntentRepository {
	return &memoryIntentRepository{store: store}
}

var _ IntentRepository = (*memoryIntentRepository)(nil)

func (r *memoryIntentRepository) Append(_ context.Context, projectID uuid.UUID, intent *models.QueryIntent, maxRecords int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	history := append([]models.QueryIntent{*intent}, r.store.intents[projectID]...)
	if maxRecords > 0 && len(history) > maxRecords {
		history = history[:maxRecords]
	}
	r.store.intents[projectID] = history
	return nil
}

func (r *memoryIntentRepository) List(_ context.Context, projectID uuid.UUID, limit int) ([]models.QueryIntent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	history := r.store.intents[projectID]
	if limit > 0 && limit < len(history) {
		history = history[:limit]
	}
	return append([]models.QueryIntent(nil), history...), nil
}

func (r *memoryIntentRepository) Delete(_ context.Context, projectID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.intents, projectID)
	return nil
}
