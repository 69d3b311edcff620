// Package sql provides the lexical SQL utilities the execution gateway needs:
// statement classification, project table isolation rewriting, complexity
// scoring, and parameter injection checks. None of this is a full SQL parser;
// statements are treated as token streams.
package sql

import "strings"

// StatementType is the coarse category of a SQL statement.
type StatementType string

const (
	// StatementSelect covers row-returning statements (SELECT, WITH, SHOW, ...).
	StatementSelect StatementType = "select"
	// StatementDDL covers schema-changing statements; executing one
	// invalidates the project's schema cache.
	StatementDDL StatementType = "ddl"
	// StatementWrite covers DML writes (INSERT/UPDATE/DELETE/...).
	StatementWrite StatementType = "write"
	// StatementOther covers everything else (SET, USE, GRANT, ...).
	StatementOther StatementType = "other"
)

// Classify determines the statement category with a cheap keyword check on
// the first significant word. Leading comments are skipped.
func Classify(sqlText string) StatementType {
	switch firstKeyword(sqlText) {
	case "SELECT", "WITH", "SHOW", "DESCRIBE", "DESC", "EXPLAIN", "VALUES":
		return StatementSelect
	case "CREATE", "ALTER", "DROP", "RENAME", "TRUNCATE":
		return StatementDDL
	case "INSERT", "UPDATE", "DELETE", "MERGE", "REPLACE":
		return StatementWrite
	default:
		return StatementOther
	}
}

// ReturnsRows reports whether the statement is expected to produce a row set
// rather than an affected-row count.
func (t StatementType) ReturnsRows() bool {
	return t == StatementSelect
}

// IsDDL reports whether the statement changes schema.
func (t StatementType) IsDDL() bool {
	return t == StatementDDL
}

// firstKeyword returns the first word of the statement, uppercased, with
// leading whitespace and comments stripped.
func firstKeyword(sqlText string) string {
	s := sqlText
	for {
		s = strings.TrimLeft(s, " \t\r\n")
		switch {
		case strings.HasPrefix(s, "--"):
			if idx := strings.IndexByte(s, '\n'); idx >= 0 {
				s = s[idx+1:]
			} else {
				return ""
			}
		case strings.HasPrefix(s, "/*"):
			if idx := strings.Index(s, "*/"); idx >= 0 {
				s = s[idx+2:]
			} else {
				return ""
			}
		default:
			end := 0
			for end < len(s) && isWordByte(s[end]) {
				end++
			}
			return strings.ToUpper(s[:end])
		}
	}
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
