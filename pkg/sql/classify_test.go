package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want StatementType
	}{
		{"select", "SELECT * FROM users", StatementSelect},
		{"select lowercase", "select 1", StatementSelect},
		{"select with leading whitespace", "  \n\tSELECT 1", StatementSelect},
		{"cte", "WITH t AS (SELECT 1) SELECT * FROM t", StatementSelect},
		{"show", "SHOW TABLES", StatementSelect},
		{"describe", "DESCRIBE users", StatementSelect},
		{"explain", "EXPLAIN SELECT 1", StatementSelect},
		{"create table", "CREATE TABLE users (id INT)", StatementDDL},
		{"alter", "ALTER TABLE users ADD COLUMN age INT", StatementDDL},
		{"drop", "DROP TABLE users", StatementDDL},
		{"truncate", "TRUNCATE TABLE users", StatementDDL},
		{"rename", "RENAME TABLE a TO b", StatementDDL},
		{"insert", "INSERT INTO users VALUES (1)", StatementWrite},
		{"update", "UPDATE users SET name = 'x'", StatementWrite},
		{"delete", "DELETE FROM users", StatementWrite},
		{"merge", "MERGE INTO t USING s ON t.id = s.id", StatementWrite},
		{"use", "USE sales", StatementOther},
		{"grant", "GRANT SELECT ON users TO bob", StatementOther},
		{"empty", "", StatementOther},
		{"line comment then select", "-- latest orders\nSELECT * FROM orders", StatementSelect},
		{"block comment then ddl", "/* rebuild */ CREATE TABLE t (id INT)", StatementDDL},
		{"only a comment", "-- nothing here", StatementOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.sql))
		})
	}
}

func TestStatementType_ReturnsRows(t *testing.T) {
	assert.True(t, StatementSelect.ReturnsRows())
	assert.False(t, StatementDDL.ReturnsRows())
	assert.False(t, StatementWrite.ReturnsRows())
	assert.False(t, StatementOther.ReturnsRows())
}

func TestStatementType_IsDDL(t *testing.T) {
	assert.True(t, StatementDDL.IsDDL())
	assert.False(t, StatementSelect.IsDDL())
}
