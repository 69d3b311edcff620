package repositories

import (
	"fmt"

	"github.com/google/uuid"
)

// Redis key layout for the per-project context store. Everything that belongs
// to a project hangs off the same "project:{id}:" namespace so a cascade
// delete is a handful of DELs.
func metadataKey(projectID uuid.UUID) string {
	return fmt.Sprintf("project:%s:metadata", projectID)
}

func schemaKey(projectID uuid.UUID) string {
	return fmt.Sprintf("project:%s:schema", projectID)
}

func intentsKey(projectID uuid.UUID) string {
	return fmt.Sprintf("project:%s:intents", projectID)
}
