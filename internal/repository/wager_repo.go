package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/streambet/streambet/internal/domain"
)

// WagerRepository handles all database operations for Wagers.
type WagerRepository struct {
	db *sqlx.DB
}

// NewWagerRepository creates a new WagerRepository.
func NewWagerRepository(db *sqlx.DB) *WagerRepository {
	return &WagerRepository{db: db}
}

// Create inserts a new wager inside the placement transaction.
func (r *WagerRepository) Create(ctx context.Context, tx *sqlx.Tx, w *domain.Wager) error {
	query := `
		INSERT INTO wagers
			(id, bettor_id, question_id, side, stake, matched_stake, potential_payout,
			 status, settled, placed_at)
		VALUES
			(:id, :bettor_id, :question_id, :side, :stake, :matched_stake, :potential_payout,
			 :status, :settled, :placed_at)`
	if _, err := tx.NamedExecContext(ctx, query, w); err != nil {
		return fmt.Errorf("wager_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a wager by its primary key.
func (r *WagerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wager, error) {
	var w domain.Wager
	err := r.db.GetContext(ctx, &w, `SELECT * FROM wagers WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWagerNotFound
		}
		return nil, fmt.Errorf("wager_repo.GetByID: %w", err)
	}
	return &w, nil
}

// GetByBettor returns a bettor's wagers, newest first.
func (r *WagerRepository) GetByBettor(ctx context.Context, bettorID uuid.UUID, limit, offset int) ([]*domain.Wager, error) {
	var wagers []*domain.Wager
	err := r.db.SelectContext(ctx, &wagers, `
		SELECT * FROM wagers
		WHERE bettor_id = $1
		ORDER BY placed_at DESC
		LIMIT $2 OFFSET $3`,
		bettorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("wager_repo.GetByBettor: %w", err)
	}
	return wagers, nil
}

// GetOpenOpposing returns the resting wagers an incoming wager on `side` can
// match against: opposite side, not fully matched, oldest first. Rows are
// locked because the caller mutates their matched_stake in the same
// transaction. The question row lock already serializes matchers per
// question, so this FOR UPDATE never deadlocks against a sibling placement.
func (r *WagerRepository) GetOpenOpposing(ctx context.Context, tx *sqlx.Tx, questionID uuid.UUID, side domain.Side) ([]*domain.Wager, error) {
	var wagers []*domain.Wager
	err := tx.SelectContext(ctx, &wagers, `
		SELECT * FROM wagers
		WHERE question_id = $1
		  AND side = $2
		  AND status IN ('pending','partially_matched')
		ORDER BY placed_at ASC
		FOR UPDATE`,
		questionID, string(side.Opposite()))
	if err != nil {
		return nil, fmt.Errorf("wager_repo.GetOpenOpposing: %w", err)
	}
	return wagers, nil
}

// UpdateMatch writes back a wager's matching state after fills were applied.
func (r *WagerRepository) UpdateMatch(ctx context.Context, tx *sqlx.Tx, w *domain.Wager) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wagers
		SET matched_stake    = $1,
		    potential_payout = $2,
		    status           = $3
		WHERE id = $4`,
		w.MatchedStake, w.PotentialPayout, w.Status, w.ID)
	if err != nil {
		return fmt.Errorf("wager_repo.UpdateMatch: %w", err)
	}
	return nil
}

// GetByQuestion returns every wager on a question, oldest first.
func (r *WagerRepository) GetByQuestion(ctx context.Context, questionID uuid.UUID) ([]*domain.Wager, error) {
	var wagers []*domain.Wager
	err := r.db.SelectContext(ctx, &wagers,
		`SELECT * FROM wagers WHERE question_id = $1 ORDER BY placed_at ASC`,
		questionID)
	if err != nil {
		return nil, fmt.Errorf("wager_repo.GetByQuestion: %w", err)
	}
	return wagers, nil
}

// GetUnsettledByQuestion returns the wagers settlement still has to process.
// Settlement re-runs call this, so a crash mid-way leaves a resumable set.
func (r *WagerRepository) GetUnsettledByQuestion(ctx context.Context, questionID uuid.UUID) ([]*domain.Wager, error) {
	var wagers []*domain.Wager
	err := r.db.SelectContext(ctx, &wagers,
		`SELECT * FROM wagers WHERE question_id = $1 AND settled = false ORDER BY placed_at ASC`,
		questionID)
	if err != nil {
		return nil, fmt.Errorf("wager_repo.GetUnsettledByQuestion: %w", err)
	}
	return wagers, nil
}

// CountByQuestion reports how many wagers a question attracted. Zero means
// the question expires instead of resolving.
func (r *WagerRepository) CountByQuestion(ctx context.Context, questionID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM wagers WHERE question_id = $1`, questionID)
	if err != nil {
		return 0, fmt.Errorf("wager_repo.CountByQuestion: %w", err)
	}
	return n, nil
}

// MarkSettled flips a wager's settled flag and records its terminal status.
// The WHERE settled = false clause makes the flip exactly-once; a second
// attempt reports ErrWagerAlreadySettled and the caller skips the wager.
func (r *WagerRepository) MarkSettled(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status domain.WagerStatus, at time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE wagers
		SET settled    = true,
		    status     = $1,
		    settled_at = $2
		WHERE id = $3 AND settled = false`,
		status, at, id)
	if err != nil {
		return fmt.Errorf("wager_repo.MarkSettled: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrWagerAlreadySettled
	}
	return nil
}

// CountDistinctBackers counts unique bettors on one side of a question.
// Percentages are derived from backer counts, not stake volume.
func (r *WagerRepository) CountDistinctBackers(ctx context.Context, tx *sqlx.Tx, questionID uuid.UUID, side domain.Side) (int, error) {
	var n int
	err := tx.GetContext(ctx, &n,
		`SELECT COUNT(DISTINCT bettor_id) FROM wagers WHERE question_id = $1 AND side = $2`,
		questionID, string(side))
	if err != nil {
		return 0, fmt.Errorf("wager_repo.CountDistinctBackers: %w", err)
	}
	return n, nil
}
