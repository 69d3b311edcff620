package trino

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trinodb/trino-go-client/trino"

	"github.com/sqlhaven/sqlhaven-engine/pkg/adapters/datasource"
	"github.com/sqlhaven/sqlhaven-engine/pkg/config"
	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
)

// New opens an engine against a Trino coordinator. The configured catalog
// and schema become the session defaults, so unqualified table names resolve
// the same way they do on the other engines.
func New(ctx context.Context, cfg config.TrinoConfig, maxRows int) (datasource.Engine, error) {
	dsnCfg := trino.Config{
		ServerURI: fmt.Sprintf("http://%s@%s:%d", cfg.User, cfg.Host, cfg.Port),
		Source:    "sqlhaven-engine",
		Catalog:   cfg.Catalog,
		Schema:    cfg.Schema,
	}

	dsn, err := dsnCfg.FormatDSN()
	if err != nil {
		return nil, fmt.Errorf("build trino dsn: %w", err)
	}

	db, err := sql.Open("trino", dsn)
	if err != nil {
		return nil, fmt.Errorf("open trino: %w", err)
	}

	schema := cfg.Schema
	discover := func(ctx context.Context, db *sql.DB, prefix string) ([]models.TableSchema, error) {
		return discoverTables(ctx, db, schema, prefix)
	}

	return datasource.NewSQLEngine(models.DialectTrino, db, maxRows, discover), nil
}

// discoverTables lists tables in the session schema whose names start with
// the given prefix. Trino's information_schema has no key metadata, so Key
// is always empty here.
func discoverTables(ctx context.Context, db *sql.DB, schema, prefix string) ([]models.TableSchema, error) {
	const query = `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = ?
		  AND table_name LIKE ? ESCAPE '\'
		ORDER BY table_name, ordinal_position`

	rows, err := db.QueryContext(ctx, query, schema, datasource.EscapeLikePattern(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var tables []models.TableSchema
	byName := make(map[string]int)
	for rows.Next() {
		var tableName, columnName, dataType, nullable string
		if err := rows.Scan(&tableName, &columnName, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}

		idx, ok := byName[tableName]
		if !ok {
			idx = len(tables)
			byName[tableName] = idx
			tables = append(tables, models.TableSchema{Name: tableName})
		}

		tables[idx].Columns = append(tables[idx].Columns, models.ColumnSchema{
			Name:     columnName,
			Type:     dataType,
			Nullable: nullable == "YES",
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return tables, nil
}
