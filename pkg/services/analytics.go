package services

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
	sqlutil "github.com/sqlhaven/sqlhaven-engine/pkg/sql"
)

// QueryPatternRecord is one execution observation fed to the analytics store.
type QueryPatternRecord struct {
	ProjectID       string
	SQL             string
	ExecutionTimeMs float64
	Success         bool
	ErrorMessage    string
	Tables          []string
}

// AnalyticsService aggregates query patterns in the local SQLite store:
// per-statement complexity metrics, type distributions, and table access
// counts. Recording is best effort and never fails an execution.
type AnalyticsService interface {
	Record(ctx context.Context, record QueryPatternRecord)
	Report(ctx context.Context, projectID string, hours int) (*models.QueryPatternReport, error)
	// Sweep deletes patterns older than the retention window. Returns the
	// number of rows removed.
	Sweep(ctx context.Context) (int64, error)
	Close() error
}

type analyticsService struct {
	db            *sql.DB
	retentionDays int
	cron          *cron.Cron
	logger        *zap.Logger
}

// NewAnalyticsService creates the analytics service and, when schedule is
// non-empty, starts the cron retention sweep.
func NewAnalyticsService(db *sql.DB, retentionDays int, schedule string, logger *zap.Logger) (AnalyticsService, error) {
	s := &analyticsService{
		db:            db,
		retentionDays: retentionDays,
		logger:        logger.Named("analytics-service"),
	}

	if schedule != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(schedule, s.runSweep); err != nil {
			return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
		}
		s.cron.Start()
	}

	return s, nil
}

var _ AnalyticsService = (*analyticsService)(nil)

func (s *analyticsService) Record(ctx context.Context, record QueryPatternRecord) {
	complexity := sqlutil.AnalyzeComplexity(record.SQL)
	queryType := analyticsQueryType(record.SQL)
	hash := md5.Sum([]byte(record.SQL))
	queryHash := hex.EncodeToString(hash[:])[:12]

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_patterns
		(project_id, query_hash, query_type, query_text, execution_time_ms,
		 was_successful, error_message, tables_accessed, join_count, subquery_count,
		 aggregate_functions, has_where_clause, has_group_by, has_order_by,
		 complexity_score, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ProjectID, queryHash, queryType, record.SQL, record.ExecutionTimeMs,
		record.Success, nullable(record.ErrorMessage), strings.Join(record.Tables, ","),
		complexity.JoinCount, complexity.SubqueryCount, strings.Join(complexity.Aggregates, ","),
		complexity.HasWhere, complexity.HasGroupBy, complexity.HasOrderBy,
		complexity.Score, time.Now().UTC(),
	)
	if err != nil {
		s.logger.Warn("Failed to record query pattern", zap.Error(err))
		return
	}

	if !record.Success {
		return
	}

	now := time.Now().UTC()
	for _, table := range record.Tables {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO table_access (project_id, table_name, access_type, access_count, last_accessed, avg_execution_time_ms)
			VALUES (?, ?, ?, 1, ?, ?)
			ON CONFLICT(project_id, table_name, access_type) DO UPDATE SET
				access_count = access_count + 1,
				last_accessed = excluded.last_accessed,
				avg_execution_time_ms = (avg_execution_time_ms * access_count + excluded.avg_execution_time_ms) / (access_count + 1)`,
			record.ProjectID, table, queryType, now, record.ExecutionTimeMs,
		)
		if err != nil {
			s.logger.Warn("Failed to record table access",
				zap.String("table", table),
				zap.Error(err))
		}
	}
}

func (s *analyticsService) Report(ctx context.Context, projectID string, hours int) (*models.QueryPatternReport, error) {
	if hours <= 0 {
		hours = 24
	}

	stats, err := s.performanceStats(ctx, projectID, hours)
	if err != nil {
		return nil, err
	}
	types, err := s.queryTypeDistribution(ctx, projectID, hours)
	if err != nil {
		return nil, err
	}
	complexity, err := s.complexityDistribution(ctx, projectID, hours)
	if err != nil {
		return nil, err
	}
	accessed, err := s.mostAccessedTables(ctx, projectID, 10)
	if err != nil {
		return nil, err
	}

	stats.WindowHours = hours
	return &models.QueryPatternReport{
		Stats:        stats,
		QueryTypes:   types,
		Complexity:   complexity,
		MostAccessed: accessed,
		PeriodHours:  hours,
		ProjectID:    projectID,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}

func (s *analyticsService) queryTypeDistribution(ctx context.Context, projectID string, hours int) ([]models.QueryTypeCount, error) {
	query := `
		SELECT query_type, COUNT(*) as count, COALESCE(AVG(execution_time_ms), 0) as avg_time
		FROM query_patterns
		WHERE timestamp >= ?`
	args := []any{since(hours)}
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	query += " GROUP BY query_type ORDER BY count DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query type distribution: %w", err)
	}
	defer rows.Close()

	results := make([]models.QueryTypeCount, 0)
	for rows.Next() {
		var r models.QueryTypeCount
		if err := rows.Scan(&r.Type, &r.Count, &r.AvgTimeMs); err != nil {
			return nil, fmt.Errorf("scan type distribution: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *analyticsService) complexityDistribution(ctx context.Context, projectID string, hours int) ([]models.ComplexityLevelCount, error) {
	query := `
		SELECT
			CASE
				WHEN complexity_score < 20 THEN 'Simple'
				WHEN complexity_score < 50 THEN 'Medium'
				WHEN complexity_score < 80 THEN 'Complex'
				ELSE 'Very Complex'
			END as level,
			COUNT(*) as count,
			COALESCE(AVG(execution_time_ms), 0) as avg_time
		FROM query_patterns
		WHERE timestamp >= ?`
	args := []any{since(hours)}
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	query += " GROUP BY level"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query complexity distribution: %w", err)
	}
	defer rows.Close()

	results := make([]models.ComplexityLevelCount, 0)
	for rows.Next() {
		var r models.ComplexityLevelCount
		if err := rows.Scan(&r.Level, &r.Count, &r.AvgTimeMs); err != nil {
			return nil, fmt.Errorf("scan complexity distribution: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *analyticsService) mostAccessedTables(ctx context.Context, projectID string, limit int) ([]models.TableAccessStat, error) {
	query := `
		SELECT table_name, SUM(access_count) as total_accesses,
		       COALESCE(AVG(avg_execution_time_ms), 0) as avg_time, MAX(last_accessed) as last_access
		FROM table_access`
	var args []any
	if projectID != "" {
		query += " WHERE project_id = ?"
		args = append(args, projectID)
	}
	query += " GROUP BY table_name ORDER BY total_accesses DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query table access: %w", err)
	}
	defer rows.Close()

	results := make([]models.TableAccessStat, 0)
	for rows.Next() {
		var r models.TableAccessStat
		if err := rows.Scan(&r.Table, &r.Accesses, &r.AvgTimeMs, &r.LastAccess); err != nil {
			return nil, fmt.Errorf("scan table access: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *analyticsService) performanceStats(ctx context.Context, projectID string, hours int) (*models.AnalyticsStats, error) {
	query := `
		SELECT
			COUNT(*) as total_queries,
			COALESCE(SUM(CASE WHEN was_successful THEN 1 ELSE 0 END) * 100.0 / COUNT(*), 0) as success_rate,
			COALESCE(AVG(execution_time_ms), 0) as avg_time,
			COALESCE(AVG(join_count), 0) as avg_joins,
			COALESCE(AVG(complexity_score), 0) as avg_complexity
		FROM query_patterns
		WHERE timestamp >= ?`
	args := []any{since(hours)}
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}

	var stats models.AnalyticsStats
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalQueries, &stats.SuccessRate, &stats.AvgTimeMs, &stats.AvgJoins, &stats.AvgComplexity,
	)
	if err != nil {
		return nil, fmt.Errorf("query performance stats: %w", err)
	}
	return &stats, nil
}

func (s *analyticsService) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	result, err := s.db.ExecContext(ctx, "DELETE FROM query_patterns WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep query patterns: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}

func (s *analyticsService) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("Retention sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("Retention sweep completed", zap.Int64("deleted", deleted))
}

func (s *analyticsService) Close() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	return s.db.Close()
}

// analyticsQueryType keeps the finer-grained classification the analytics
// store reports on, distinguishing the DML verbs that Classify folds into a
// single write category.
func analyticsQueryType(sqlText string) string {
	upper := strings.ToUpper(strings.TrimSpace(sqlText))
	switch {
	case strings.HasPrefix(upper, "SELECT"):
		return "SELECT"
	case strings.HasPrefix(upper, "INSERT"):
		return "INSERT"
	case strings.HasPrefix(upper, "UPDATE"):
		return "UPDATE"
	case strings.HasPrefix(upper, "DELETE"):
		return "DELETE"
	case strings.HasPrefix(upper, "CREATE"),
		strings.HasPrefix(upper, "ALTER"),
		strings.HasPrefix(upper, "DROP"),
		strings.HasPrefix(upper, "TRUNCATE"):
		return "DDL"
	default:
		return "OTHER"
	}
}

func since(hours int) time.Time {
	return time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
