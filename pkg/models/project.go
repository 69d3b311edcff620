package models

import (
	"time"

	"github.com/google/uuid"
)

// Dialect identifies a SQL engine family.
type Dialect string

const (
	// DialectMySQL is the MySQL-compatible relational engine.
	DialectMySQL Dialect = "mysql"
	// DialectPostgres is the PostgreSQL-compatible relational engine.
	DialectPostgres Dialect = "postgres"
	// DialectTrino is the distributed query engine.
	DialectTrino Dialect = "trino"
	// DialectSpark is the big-data engine.
	DialectSpark Dialect = "spark"
	// DialectAnalytics is an umbrella dialect that resolves to Trino or Spark
	// the first time the project touches a backend. The resolution is recorded
	// on the project and never changes afterwards.
	DialectAnalytics Dialect = "analytics"
)

// ParseDialect validates a dialect string from user input.
func ParseDialect(s string) (Dialect, bool) {
	switch Dialect(s) {
	case DialectMySQL, DialectPostgres, DialectTrino, DialectSpark, DialectAnalytics:
		return Dialect(s), true
	}
	return "", false
}

// IsConcrete reports whether the dialect maps directly to a backend engine.
func (d Dialect) IsConcrete() bool {
	switch d {
	case DialectMySQL, DialectPostgres, DialectTrino, DialectSpark:
		return true
	}
	return false
}

// Project is the tenant unit. Every isolated table, schema snapshot, and
// query intent is keyed by the project ID.
type Project struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Dialect     Dialect   `json:"dialect"`

	// Database is the logical catalog/schema name the project's tables live in.
	Database string `json:"database"`

	// ActualEngine is set once for umbrella-dialect projects, recording which
	// concrete engine the analytics dialect resolved to. Empty otherwise.
	ActualEngine Dialect `json:"actualEngine,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Engine returns the concrete dialect the project routes to, or the umbrella
// dialect itself when resolution has not happened yet.
func (p *Project) Engine() Dialect {
	if p.Dialect == DialectAnalytics && p.ActualEngine != "" {
		return p.ActualEngine
	}
	return p.Dialect
}
