package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/sqlhaven/sqlhaven-engine/pkg/adapters/datasource"
	"github.com/sqlhaven/sqlhaven-engine/pkg/config"
	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
)

// New opens a MySQL-backed engine.
func New(ctx context.Context, cfg config.MySQLConfig, maxRows int) (datasource.Engine, error) {
	dsnCfg := gomysql.NewConfig()
	dsnCfg.Net = "tcp"
	dsnCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dsnCfg.User = cfg.User
	dsnCfg.Passwd = cfg.Password
	dsnCfg.DBName = cfg.Database
	dsnCfg.ParseTime = true

	db, err := sql.Open("mysql", dsnCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return datasource.NewSQLEngine(models.DialectMySQL, db, maxRows, discoverTables), nil
}

// discoverTables lists tables whose names start with the given prefix,
// with their column definitions, from information_schema.
func discoverTables(ctx context.Context, db *sql.DB, prefix string) ([]models.TableSchema, error) {
	const query = `
		SELECT c.table_name, c.column_name, c.column_type, c.is_nullable, c.column_key, c.column_default
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE c.table_schema = DATABASE()
		  AND t.table_type = 'BASE TABLE'
		  AND c.table_name LIKE ? ESCAPE '\\'
		ORDER BY c.table_name, c.ordinal_position`

	rows, err := db.QueryContext(ctx, query, datasource.EscapeLikePattern(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var tables []models.TableSchema
	byName := make(map[string]int)
	for rows.Next() {
		var tableName, columnName, columnType, nullable, key string
		var columnDefault sql.NullString
		if err := rows.Scan(&tableName, &columnName, &columnType, &nullable, &key, &columnDefault); err != nil {
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
			Type:     columnType,
			Nullable: nullable == "YES",
			Key:      key,
		}
		if columnDefault.Valid {
			def := columnDefault.String
			col.Default = &def
		}
		tables[idx].Columns = append(tables[idx].Columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return tables, nil
}
