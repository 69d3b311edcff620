package sql

import "strings"

// reservedWords covers the keywords of all four dialects that can appear
// where a table name is expected. An identifier matching one of these is
// never rewritten.
var reservedWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"ALL", "ALTER", "AND", "ANY", "AS", "ASC", "BETWEEN", "BY", "CASE",
		"CAST", "COLUMN", "CREATE", "CROSS", "CURRENT", "DATABASE", "DEFAULT",
		"DELETE", "DESC", "DESCRIBE", "DISTINCT", "DROP", "DUAL", "ELSE",
		"END", "EXCEPT", "EXISTS", "EXPLAIN", "FALSE", "FETCH", "FILTER",
		"FOR", "FOREIGN", "FROM", "FULL", "GROUP", "HAVING", "IF", "IN",
		"INDEX", "INNER", "INSERT", "INTERSECT", "INTO", "IS", "JOIN", "KEY",
		"LATERAL", "LEFT", "LIKE", "LIMIT", "MERGE", "NATURAL", "NOT", "NULL",
		"OFFSET", "ON", "OR", "ORDER", "OUTER", "OVER", "PARTITION",
		"PRIMARY", "REFERENCES", "RENAME", "REPLACE", "RETURNING", "RIGHT", "ROLLUP",
		"SCHEMA", "SELECT", "SET", "SHOW", "TABLE", "THEN", "TO", "TRUE",
		"TRUNCATE", "UNION", "UNIQUE", "UPDATE", "USING", "VALUES", "VIEW",
		"WHEN", "WHERE", "WINDOW", "WITH",
	} {
		reservedWords[w] = struct{}{}
	}
}

// isReservedWord reports whether a bare identifier is a SQL keyword.
// Quoted identifiers are never keywords.
func isReservedWord(t token) bool {
	if t.quote != 0 {
		return false
	}
	_, ok := reservedWords[strings.ToUpper(t.value)]
	return ok
}
