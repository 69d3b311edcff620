package datasource

import (
	"context"

	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
)

// Engine is the capability every concrete backend implements. The execution
// coordinator never branches on dialect; it talks to whichever Engine the
// router hands back.
type Engine interface {
	// Dialect returns the concrete dialect this engine serves.
	Dialect() models.Dialect

	// Execute runs a single statement. Row-returning statements come back
	// with HasRows set and the scanned row set; everything else reports the
	// affected-row count.
	Execute(ctx context.Context, sqlText string, params ...any) (*ExecuteResult, error)

	// DiscoverTables returns the schema of every table whose physical name
	// starts with prefix. Table names are returned as stored (physical).
	DiscoverTables(ctx context.Context, prefix string) ([]models.TableSchema, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the engine's connection pool.
	Close() error
}

// ExecuteResult is the normalized outcome of one statement.
type ExecuteResult struct {
	HasRows      bool
	Columns      []string
	Rows         []map[string]any
	RowCount     int
	AffectedRows int64
}
