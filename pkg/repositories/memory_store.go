package repositories

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
)

// MemoryStore backs the in-memory repositories when Redis is not configured.
// It is shared across the project, schema, and intent repositories so a
// project delete drops everything that hangs off the project, mirroring the
// Redis key-namespace cascade.
type MemoryStore struct {
	mu      sync.RWMutex
	schemas map[uuid.UUID]*models.SchemaSnapshot
	intents map[uuid.UUID][]models.QueryIntent
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schemas: make(map[uuid.UUID]*models.SchemaSnapshot),
		intents: make(map[uuid.UUID][]models.QueryIntent),
	}
}

func (s *MemoryStore) drop(projectID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.schemas, projectID)
	delete(s.intents, projectID)
}
