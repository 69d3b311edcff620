package models

import "time"

// QueryTypeCount is one row of the query-type distribution.
type QueryTypeCount struct {
	Type      string  `json:"type"`
	Count     int     `json:"count"`
	AvgTimeMs float64 `json:"avgTimeMs"`
}

// TableAccessStat is one row of the most-accessed-tables report.
type TableAccessStat struct {
	Table      string    `json:"table"`
	Accesses   int       `json:"accesses"`
	AvgTimeMs  float64   `json:"avgTimeMs"`
	LastAccess time.Time `json:"lastAccess"`
}

// ComplexityLevelCount is one row of the complexity distribution.
type ComplexityLevelCount struct {
	Level     string  `json:"level"`
	Count     int     `json:"count"`
	AvgTimeMs float64 `json:"avgTimeMs"`
}

// AnalyticsStats summarizes query patterns over a trailing window.
type AnalyticsStats struct {
	TotalQueries  int     `json:"totalQueries"`
	SuccessRate   float64 `json:"successRate"`
	AvgTimeMs     float64 `json:"avgTimeMs"`
	AvgJoins      float64 `json:"avgJoins"`
	AvgComplexity float64 `json:"avgComplexity"`
	WindowHours   int     `json:"windowHours"`
}

// QueryPatternReport is the combined analytics payload.
type QueryPatternReport struct {
	Stats        *AnalyticsStats        `json:"stats"`
	QueryTypes   []QueryTypeCount       `json:"queryTypes"`
	Complexity   []ComplexityLevelCount `json:"complexity"`
	MostAccessed []TableAccessStat      `json:"mostAccessedTables"`
	PeriodHours  int                    `json:"periodHours"`
	ProjectID    string                 `json:"projectId,omitempty"`
	GeneratedAt  time.Time              `json:"generatedAt"`
}
