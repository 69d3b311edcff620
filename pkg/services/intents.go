package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
	"github.com/sqlhaven/sqlhaven-engine/pkg/repositories"
	sqlutil "github.com/sqlhaven/sqlhaven-engine/pkg/sql"
)

// IntentLedgerService records every execution attempt against a project and
// serves the recent history back, newest first. The ledger is capped;
// appending past the cap evicts the oldest record.
type IntentLedgerService interface {
	// Append stores an intent record. Ledger failures never fail the
	// execution that produced them; errors are logged and swallowed.
	Append(ctx context.Context, projectID uuid.UUID, intent *models.QueryIntent)
	List(ctx context.Context, projectID uuid.UUID, limit int) ([]models.QueryIntent, error)
	// Stats aggregates retained records over a trailing window.
	Stats(ctx context.Context, projectID uuid.UUID, windowHours int) (*models.IntentStats, error)
}

type intentLedgerService struct {
	repo       repositories.IntentRepository
	maxRecords int
	logger     *zap.Logger
}

// NewIntentLedgerService creates a new intent ledger service.
func NewIntentLedgerService(repo repositories.IntentRepository, maxRecords int, logger *zap.Logger) IntentLedgerService {
	return &intentLedgerService{
		repo:       repo,
		maxRecords: maxRecords,
		logger:     logger.Named("intent-ledger"),
	}
}

var _ IntentLedgerService = (*intentLedgerService)(nil)

func (s *intentLedgerService) Append(ctx context.Context, projectID uuid.UUID, intent *models.QueryIntent) {
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	if intent.ExecutedAt.IsZero() {
		intent.ExecutedAt = time.Now().UTC()
	}

	if err := s.repo.Append(ctx, projectID, intent, s.maxRecords); err != nil {
		s.logger.Warn("Failed to append query intent",
			zap.String("project_id", projectID.String()),
			zap.Error(err))
	}
}

func (s *intentLedgerService) List(ctx context.Context, projectID uuid.UUID, limit int) ([]models.QueryIntent, error) {
	return s.repo.List(ctx, projectID, limit)
}

func (s *intentLedgerService) Stats(ctx context.Context, projectID uuid.UUID, windowHours int) (*models.IntentStats, error) {
	intents, err := s.repo.List(ctx, projectID, 0)
	if err != nil {
		return nil, err
	}

	since := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)
	stats := &models.IntentStats{WindowHours: windowHours}

	var (
		successes  int
		totalTime  int64
		complexity int
		durations  []int64
	)
	for _, intent := range intents {
		if intent.ExecutedAt.Before(since) {
			continue
		}
		stats.TotalQueries++
		if intent.Success {
			successes++
		}
		totalTime += intent.ExecutionTimeMs
		complexity += sqlutil.AnalyzeComplexity(intent.SQL).Score
		durations = append(durations, intent.ExecutionTimeMs)
	}

	if stats.TotalQueries == 0 {
		return stats, nil
	}

	n := stats.TotalQueries
	stats.SuccessRate = float64(successes) * 100.0 / float64(n)
	stats.AvgExecutionTimeMs = float64(totalTime) / float64(n)
	stats.AvgComplexityScore = float64(complexity) / float64(n)

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	stats.P50ExecutionTimeMs = percentile(durations, 50)
	stats.P95ExecutionTimeMs = percentile(durations, 95)

	return stats, nil
}

// percentile returns the nearest-rank percentile of a sorted slice.
func percentile(sorted []int64, p int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
