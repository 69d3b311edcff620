package spark

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	dbsql "github.com/databricks/databricks-sql-go"

	"github.com/sqlhaven/sqlhaven-engine/pkg/adapters/datasource"
	"github.com/sqlhaven/sqlhaven-engine/pkg/config"
	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
)

// New opens an engine against a Spark SQL warehouse endpoint.
func New(ctx context.Context, cfg config.SparkConfig, maxRows int) (datasource.Engine, error) {
	connector, err := dbsql.NewConnector(
		dbsql.WithServerHostname(cfg.Host),
		dbsql.WithPort(cfg.Port),
		dbsql.WithHTTPPath(cfg.HTTPPath),
		dbsql.WithAccessToken(cfg.AccessToken),
		dbsql.WithInitialNamespace("", cfg.Schema),
	)
	if err != nil {
		return nil, fmt.Errorf("build spark connector: %w", err)
	}

	db := sql.OpenDB(connector)

	schema := cfg.Schema
	discover := func(ctx context.Context, db *sql.DB, prefix string) ([]models.TableSchema, error) {
		return discoverTables(ctx, db, schema, prefix)
	}

	return datasource.NewSQLEngine(models.DialectSpark, db, maxRows, discover), nil
}

// discoverTables lists matching tables with SHOW TABLES and describes each
// one. Spark's SHOW TABLES pattern is a glob, not SQL LIKE, so underscores in
// the prefix match literally and only the trailing "*" is a wildcard.
func discoverTables(ctx context.Context, db *sql.DB, schema, prefix string) ([]models.TableSchema, error) {
	showSQL := fmt.Sprintf("SHOW TABLES IN %s LIKE '%s*'", quoteIdent(schema), prefix)
	rows, err := db.QueryContext(ctx, showSQL)
	if err != nil {
		return nil, fmt.Errorf("show tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var namespace, tableName string
		var isTemporary bool
		if err := rows.Scan(&namespace, &tableName, &isTemporary); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		if !isTemporary {
			names = append(names, tableName)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	tables := make([]models.TableSchema, 0, len(names))
	for _, name := range names {
		columns, err := describeTable(ctx, db, schema, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, models.TableSchema{Name: name, Columns: columns})
	}

	return tables, nil
}

func describeTable(ctx context.Context, db *sql.DB, schema, table string) ([]models.ColumnSchema, error) {
	describeSQL := fmt.Sprintf("DESCRIBE TABLE %s.%s", quoteIdent(schema), quoteIdent(table))
	rows, err := db.QueryContext(ctx, describeSQL)
	if err != nil {
		return nil, fmt.Errorf("describe table %s: %w", table, err)
	}
	defer rows.Close()

	var columns []models.ColumnSchema
	for rows.Next() {
		var colName, dataType, comment sql.NullString
		if err := rows.Scan(&colName, &dataType, &comment); err != nil {
			return nil, fmt.Errorf("scan describe row %s: %w", table, err)
		}
		// Partition and metadata sections follow a blank separator row.
		if !colName.Valid || colName.String == "" || strings.HasPrefix(colName.String, "#") {
			break
		}
		columns = append(columns, models.ColumnSchema{
			Name:     colName.String,
			Type:     dataType.String,
			Nullable: true,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate describe rows %s: %w", table, err)
	}

	return columns, nil
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
