package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/streambet/streambet/internal/domain"
	"github.com/streambet/streambet/internal/repository"
)

// statsPeriod is the reporting window for the rolling aggregates.
const statsPeriod = 24 * time.Hour

// StatsService maintains the denormalized period aggregates. The rebuild is a
// best-effort background task: wagers and ledger rows stay authoritative, so
// a failed rebuild only delays the dashboard numbers.
type StatsService struct {
	statsRepo *repository.StatsRepository
}

// NewStatsService creates a StatsService.
func NewStatsService(statsRepo *repository.StatsRepository) *StatsService {
	return &StatsService{statsRepo: statsRepo}
}

// RebuildCurrentPeriod recomputes the aggregates for the current UTC day.
func (s *StatsService) RebuildCurrentPeriod(ctx context.Context) (*domain.PeriodStats, error) {
	start := time.Now().UTC().Truncate(statsPeriod)
	stats, err := s.statsRepo.Rebuild(ctx, start, start.Add(statsPeriod))
	if err != nil {
		return nil, fmt.Errorf("stats_service.RebuildCurrentPeriod: %w", err)
	}
	return stats, nil
}

// RebuildLogged is the scheduler entry point: rebuilds and logs failures
// instead of returning them.
func (s *StatsService) RebuildLogged(ctx context.Context) {
	if _, err := s.RebuildCurrentPeriod(ctx); err != nil {
		log.Printf("[stats] ERROR rebuilding period stats: %v", err)
	}
}

// GetLatest returns the most recent aggregates.
func (s *StatsService) GetLatest(ctx context.Context) (*domain.PeriodStats, error) {
	stats, err := s.statsRepo.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats_service.GetLatest: %w", err)
	}
	return stats, nil
}
