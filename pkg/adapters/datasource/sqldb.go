package datasource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
	sqlutil "github.com/sqlhaven/sqlhaven-engine/pkg/sql"
)

// DiscoverFunc queries a backend's catalog metadata for tables matching the
// isolation prefix. Each dialect supplies its own implementation.
type DiscoverFunc func(ctx context.Context, db *sql.DB, prefix string) ([]models.TableSchema, error)

// SQLEngine implements Engine on top of database/sql. The MySQL, Trino, and
// Spark engines are all instances of it with dialect-specific drivers and
// discovery queries; only Postgres uses a native pool instead.
type SQLEngine struct {
	dialect  models.Dialect
	db       *sql.DB
	maxRows  int
	discover DiscoverFunc
}

// NewSQLEngine wraps an open database handle as an Engine. maxRows caps the
// rows scanned from a row-returning statement.
func NewSQLEngine(dialect models.Dialect, db *sql.DB, maxRows int, discover DiscoverFunc) *SQLEngine {
	return &SQLEngine{
		dialect:  dialect,
		db:       db,
		maxRows:  maxRows,
		discover: discover,
	}
}

var _ Engine = (*SQLEngine)(nil)

// DB exposes the underlying handle for tests.
func (e *SQLEngine) DB() *sql.DB {
	return e.db
}

func (e *SQLEngine) Dialect() models.Dialect {
	return e.dialect
}

func (e *SQLEngine) Execute(ctx context.Context, sqlText string, params ...any) (*ExecuteResult, error) {
	if sqlutil.Classify(sqlText).ReturnsRows() {
		return e.query(ctx, sqlText, params...)
	}
	return e.exec(ctx, sqlText, params...)
}

func (e *SQLEngine) query(ctx context.Context, sqlText string, params ...any) (*ExecuteResult, error) {
	rows, err := e.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		if e.maxRows > 0 && len(resultRows) >= e.maxRows {
			break
		}

		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			val := values[i]
			// Drivers hand text columns back as []byte; JSON encoding
			// needs strings.
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			rowMap[col] = val
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return &ExecuteResult{
		HasRows:  true,
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

func (e *SQLEngine) exec(ctx context.Context, sqlText string, params ...any) (*ExecuteResult, error) {
	result, err := e.db.ExecContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}

	// Not every driver reports affected rows for DDL; treat that as zero.
	affected, err := result.RowsAffected()
	if err != nil {
		affected = 0
	}

	return &ExecuteResult{AffectedRows: affected}, nil
}

func (e *SQLEngine) DiscoverTables(ctx context.Context, prefix string) ([]models.TableSchema, error) {
	return e.discover(ctx, e.db, prefix)
}

func (e *SQLEngine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

func (e *SQLEngine) Close() error {
	return e.db.Close()
}

// EscapeLikePattern escapes LIKE wildcards in a literal prefix so isolation
// prefixes (which contain underscores) match exactly. Callers append the
// trailing "%" themselves and must use ESCAPE '\'.
func EscapeLikePattern(literal string) string {
	var out []byte
	for i := 0; i < len(literal); i++ {
		switch literal[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, literal[i])
	}
	return string(out)
}
