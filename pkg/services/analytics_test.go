package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sqlhaven/sqlhaven-engine/pkg/database"
)

func newAnalytics(t *testing.T) AnalyticsService {
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)

	schema, err := os.ReadFile("../../migrations/001_query_patterns.up.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	svc, err := NewAnalyticsService(db, 30, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestAnalyticsRecordAndReport(t *testing.T) {
	svc := newAnalytics(t)
	ctx := context.Background()

	svc.Record(ctx, QueryPatternRecord{
		ProjectID:       "p1",
		SQL:             "SELECT * FROM users JOIN orders ON users.id = orders.user_id WHERE users.active = 1",
		ExecutionTimeMs: 12.5,
		Success:         true,
		Tables:          []string{"users", "orders"},
	})
	svc.Record(ctx, QueryPatternRecord{
		ProjectID:       "p1",
		SQL:             "INSERT INTO users (name) VALUES ('x')",
		ExecutionTimeMs: 3.0,
		Success:         true,
		Tables:          []string{"users"},
	})
	svc.Record(ctx, QueryPatternRecord{
		ProjectID:       "p1",
		SQL:             "SELECT nope FROM users",
		ExecutionTimeMs: 1.0,
		Success:         false,
		ErrorMessage:    "unknown column",
		Tables:          []string{"users"},
	})

	report, err := svc.Report(ctx, "p1", 24)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Stats.TotalQueries)
	assert.InDelta(t, 66.66, report.Stats.SuccessRate, 0.1)

	types := make(map[string]int)
	for _, tc := range report.QueryTypes {
		types[tc.Type] = tc.Count
	}
	assert.Equal(t, 2, types["SELECT"])
	assert.Equal(t, 1, types["INSERT"])

	// Failed executions never count toward table access.
	var usersAccesses int
	for _, ta := range report.MostAccessed {
		if ta.Table == "users" {
			usersAccesses = ta.Accesses
		}
	}
	assert.Equal(t, 2, usersAccesses)

	require.NotEmpty(t, report.Complexity)
}

func TestAnalyticsReportScopedToProject(t *testing.T) {
	svc := newAnalytics(t)
	ctx := context.Background()

	svc.Record(ctx, QueryPatternRecord{ProjectID: "p1", SQL: "SELECT 1", Success: true})
	svc.Record(ctx, QueryPatternRecord{ProjectID: "p2", SQL: "SELECT 2", Success: true})

	report, err := svc.Report(ctx, "p1", 24)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stats.TotalQueries)

	all, err := svc.Report(ctx, "", 24)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Stats.TotalQueries)
}

func TestAnalyticsSweepDeletesOldPatterns(t *testing.T) {
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)

	schema, err := os.ReadFile("../../migrations/001_query_patterns.up.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	svc, err := NewAnalyticsService(db, 30, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	ctx := context.Background()
	svc.Record(ctx, QueryPatternRecord{ProjectID: "p1", SQL: "SELECT 1", Success: true})

	_, err = db.Exec(`
		INSERT INTO query_patterns (project_id, query_type, query_text, was_successful, timestamp)
		VALUES ('p1', 'SELECT', 'SELECT old', 1, ?)`,
		time.Now().UTC().AddDate(0, 0, -60))
	require.NoError(t, err)

	deleted, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	report, err := svc.Report(ctx, "p1", 24)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stats.TotalQueries)
}

func TestAnalyticsRejectsBadSweepSchedule(t *testing.T) {
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = NewAnalyticsService(db, 30, "not a cron expr", zaptest.NewLogger(t))
	assert.Error(t, err)
}
