package models

import (
	"time"

	"github.com/google/uuid"
)

// QueryIntent records one execution attempt, successful or not. The SQL field
// holds the statement as the user submitted it, before isolation rewriting,
// so history displays logical table names.
type QueryIntent struct {
	ID              uuid.UUID `json:"id"`
	SQL             string    `json:"sql"`
	Question        string    `json:"question,omitempty"`
	QueryType       string    `json:"queryType"`
	ExecutedAt      time.Time `json:"executedAt"`
	Success         bool      `json:"success"`
	Error           string    `json:"error,omitempty"`
	Tables          []string  `json:"tables,omitempty"`
	ExecutionTimeMs int64     `json:"executionTimeMs"`
}

// IntentStats aggregates a project's intent records over a trailing window.
// An empty window produces the zero value, not an error.
type IntentStats struct {
	TotalQueries       int     `json:"totalQueries"`
	SuccessRate        float64 `json:"successRate"`
	AvgExecutionTimeMs float64 `json:"avgExecutionTimeMs"`
	P50ExecutionTimeMs int64   `json:"p50ExecutionTimeMs"`
	P95ExecutionTimeMs int64   `json:"p95ExecutionTimeMs"`
	AvgComplexityScore float64 `json:"avgComplexityScore"`
	WindowHours        int     `json:"windowHours"`
}
