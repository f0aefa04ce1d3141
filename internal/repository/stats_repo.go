package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/streambet/streambet/internal/domain"
)

// StatsRepository persists rolling period aggregates. Stats are derived data,
// rebuilt from wagers and the ledger, so the table is a plain upsert target.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Rebuild recomputes the aggregates for one period directly in SQL and
// upserts the row. Safe to call repeatedly; the latest rebuild wins.
func (r *StatsRepository) Rebuild(ctx context.Context, periodStart, periodEnd time.Time) (*domain.PeriodStats, error) {
	var s domain.PeriodStats
	err := r.db.GetContext(ctx, &s, `
		INSERT INTO period_stats
			(period_start, period_end, total_stake_volume, largest_win, total_backers, active_backers, rebuilt_at)
		SELECT
			$1, $2,
			COALESCE((SELECT SUM(stake) FROM wagers WHERE placed_at >= $1 AND placed_at < $2), 0),
			COALESCE((SELECT MAX(amount) FROM transactions
			          WHERE kind = 'win' AND created_at >= $1 AND created_at < $2), 0),
			(SELECT COUNT(*) FROM wallets),
			COALESCE((SELECT COUNT(DISTINCT bettor_id) FROM wagers
			          WHERE placed_at >= $1 AND placed_at < $2), 0),
			now()
		ON CONFLICT (period_start) DO UPDATE SET
			period_end         = EXCLUDED.period_end,
			total_stake_volume = EXCLUDED.total_stake_volume,
			largest_win        = EXCLUDED.largest_win,
			total_backers      = EXCLUDED.total_backers,
			active_backers     = EXCLUDED.active_backers,
			rebuilt_at         = EXCLUDED.rebuilt_at
		RETURNING *`,
		periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("stats_repo.Rebuild: %w", err)
	}
	return &s, nil
}

// GetLatest returns the most recently rebuilt period row.
func (r *StatsRepository) GetLatest(ctx context.Context) (*domain.PeriodStats, error) {
	var s domain.PeriodStats
	err := r.db.GetContext(ctx, &s,
		`SELECT * FROM period_stats ORDER BY period_start DESC LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrStatsNotFound
		}
		return nil, fmt.Errorf("stats_repo.GetLatest: %w", err)
	}
	return &s, nil
}
