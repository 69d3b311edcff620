package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sqlhaven/sqlhaven-engine/pkg/adapters/datasource"
	"github.com/sqlhaven/sqlhaven-engine/pkg/config"
	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
)

// Engine executes statements against PostgreSQL through a native pgx pool.
// Unlike the database/sql engines it reads column metadata from field
// descriptions, which lets a single Query path serve both row-returning
// statements and DDL.
type Engine struct {
	pool    *pgxpool.Pool
	schema  string
	maxRows int
}

var _ datasource.Engine = (*Engine)(nil)

// New connects a pgx pool for the configured database.
func New(ctx context.Context, cfg config.PostgresConfig, maxRows int) (datasource.Engine, error) {
	connStr := buildConnectionString(cfg)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &Engine{pool: pool, schema: cfg.Schema, maxRows: maxRows}, nil
}

func buildConnectionString(cfg config.PostgresConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (e *Engine) Dialect() models.Dialect {
	return models.DialectPostgres
}

func (e *Engine) Execute(ctx context.Context, sqlText string, params ...any) (*datasource.ExecuteResult, error) {
	rows, err := e.pool.Query(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	defer rows.Close()

	result := &datasource.ExecuteResult{}

	fieldDescs := rows.FieldDescriptions()
	if len(fieldDescs) > 0 {
		result.HasRows = true
		result.Columns = make([]string, len(fieldDescs))
		for i, fd := range fieldDescs {
			result.Columns[i] = string(fd.Name)
		}

		result.Rows = make([]map[string]any, 0)
		for rows.Next() {
			if e.maxRows > 0 && len(result.Rows) >= e.maxRows {
				break
			}

			values, err := rows.Values()
			if err != nil {
				return nil, fmt.Errorf("read row values: %w", err)
			}

			rowMap := make(map[string]any, len(result.Columns))
			for i, col := range result.Columns {
				rowMap[col] = values[i]
			}
			result.Rows = append(result.Rows, rowMap)
		}
		result.RowCount = len(result.Rows)
	} else {
		// pgx defers execution until rows are consumed, so DDL and DML
		// without RETURNING still need the iteration.
		for rows.Next() {
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}

	if !result.HasRows {
		result.AffectedRows = rows.CommandTag().RowsAffected()
	}

	return result, nil
}

// DiscoverTables lists tables in the configured schema whose names start
// with the given prefix. Primary keys come from pg_index so keys created as
// unique indexes are still reported.
func (e *Engine) DiscoverTables(ctx context.Context, prefix string) ([]models.TableSchema, error) {
	const query = `
		SELECT c.table_name, c.column_name, c.data_type, c.is_nullable, c.column_default,
		       EXISTS (
		           SELECT 1
		           FROM pg_index i
		           JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		           WHERE i.indrelid = format('%I.%I', c.table_schema, c.table_name)::regclass
		             AND i.indisprimary
		             AND a.attname = c.column_name
		       ) AS is_primary
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE c.table_schema = $1
		  AND t.table_type = 'BASE TABLE'
		  AND c.table_name LIKE $2 ESCAPE '\'
		ORDER BY c.table_name, c.ordinal_position`

	rows, err := e.pool.Query(ctx, query, e.schema, datasource.EscapeLikePattern(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var tables []models.TableSchema
	byName := make(map[string]int)
	for rows.Next() {
		var tableName, columnName, dataType, nullable string
		var columnDefault *string
		var isPrimary bool
		if err := rows.Scan(&tableName, &columnName, &dataType, &nullable, &columnDefault, &isPrimary); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}

		idx, ok := byName[tableName]
		if !ok {
			idx = len(tables)
			byName[tableName] = idx
			tables = append(tables, models.TableSchema{Name: tableName})
		}

		col := models.ColumnSchema{
			Name:     columnName,
			Type:     dataType,
			Nullable: nullable == "YES",
			Default:  columnDefault,
		}
		if isPrimary {
			col.Key = "PRI"
		}
		tables[idx].Columns = append(tables[idx].Columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return tables, nil
}

func (e *Engine) Ping(ctx context.Context) error {
	return e.pool.Ping(ctx)
}

func (e *Engine) Close() error {
	e.pool.Close()
	return nil
}
