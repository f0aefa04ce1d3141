package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/streambet/streambet/internal/domain"
)

// QuestionRepository handles all database operations for Questions.
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Create inserts a new question row. The partial unique index on
// (stream_ref) WHERE status = 'active' enforces the single-active invariant;
// a violation maps to domain.ErrActiveQuestionExists so concurrent scheduler
// invocations can detect the lost race and fetch the winner instead.
func (r *QuestionRepository) Create(ctx context.Context, q *domain.Question) error {
	query := `
		INSERT INTO questions
			(id, stream_ref, prompt_text, subject, condition, status, yes_stake, no_stake,
			 yes_pct, no_pct, yes_backers, no_backers, start_time, end_time, created_at, updated_at)
		VALUES
			(:id, :stream_ref, :prompt_text, :subject, :condition, :status, :yes_stake, :no_stake,
			 :yes_pct, :no_pct, :yes_backers, :no_backers, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, q); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return domain.ErrActiveQuestionExists
		}
		return fmt.Errorf("question_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a question by its primary key.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	var q domain.Question
	err := r.db.GetContext(ctx, &q, `SELECT * FROM questions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("question_repo.GetByID: %w", err)
	}
	return &q, nil
}

// GetActiveByStream returns the single active question for a stream.
// Returns ErrNoActiveQuestion when none exists.
func (r *QuestionRepository) GetActiveByStream(ctx context.Context, streamRef string) (*domain.Question, error) {
	var q domain.Question
	err := r.db.GetContext(ctx, &q,
		`SELECT * FROM questions WHERE stream_ref = $1 AND status = 'active' LIMIT 1`,
		streamRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoActiveQuestion
		}
		return nil, fmt.Errorf("question_repo.GetActiveByStream: %w", err)
	}
	return &q, nil
}

// LockForWagering loads a question row under FOR UPDATE inside a transaction.
// All matching for one question serializes on this lock, so two concurrent
// placements can never consume the same resting liquidity.
func (r *QuestionRepository) LockForWagering(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Question, error) {
	var q domain.Question
	err := tx.GetContext(ctx, &q, `SELECT * FROM questions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("question_repo.LockForWagering: %w", err)
	}
	return &q, nil
}

// GetDueUnresolved returns all questions that are still active but whose
// countdown has elapsed (i.e. due for resolution). Used by the scanner that
// backstops the per-question resolution timers.
func (r *QuestionRepository) GetDueUnresolved(ctx context.Context, now time.Time) ([]*domain.Question, error) {
	var questions []*domain.Question
	err := r.db.SelectContext(ctx, &questions,
		`SELECT * FROM questions WHERE status = 'active' AND end_time <= $1 ORDER BY end_time ASC`,
		now)
	if err != nil {
		return nil, fmt.Errorf("question_repo.GetDueUnresolved: %w", err)
	}
	return questions, nil
}

// GetActiveAll returns every currently active question across streams.
// Used by the early-decision check against the truth feed.
func (r *QuestionRepository) GetActiveAll(ctx context.Context) ([]*domain.Question, error) {
	var questions []*domain.Question
	err := r.db.SelectContext(ctx, &questions,
		`SELECT * FROM questions WHERE status = 'active' ORDER BY end_time ASC`)
	if err != nil {
		return nil, fmt.Errorf("question_repo.GetActiveAll: %w", err)
	}
	return questions, nil
}

// GetResolvedWithUnsettled returns resolved questions that still carry
// unsettled wagers, so a crashed settlement run can resume.
func (r *QuestionRepository) GetResolvedWithUnsettled(ctx context.Context) ([]*domain.Question, error) {
	var questions []*domain.Question
	err := r.db.SelectContext(ctx, &questions, `
		SELECT q.* FROM questions q
		WHERE q.status = 'resolved'
		  AND EXISTS (SELECT 1 FROM wagers w WHERE w.question_id = q.id AND w.settled = false)
		ORDER BY q.resolved_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("question_repo.GetResolvedWithUnsettled: %w", err)
	}
	return questions, nil
}

// UpdateAggregates writes the stake totals, backer counts and percentages back
// to the question row inside the placement transaction.
func (r *QuestionRepository) UpdateAggregates(ctx context.Context, tx *sqlx.Tx, q *domain.Question) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE questions
		SET yes_stake   = $1,
		    no_stake    = $2,
		    yes_pct     = $3,
		    no_pct      = $4,
		    yes_backers = $5,
		    no_backers  = $6,
		    updated_at  = now()
		WHERE id = $7`,
		q.YesStake, q.NoStake, q.YesPct, q.NoPct, q.YesBackers, q.NoBackers, q.ID)
	if err != nil {
		return fmt.Errorf("question_repo.UpdateAggregates: %w", err)
	}
	return nil
}

// MarkResolved transitions active → resolved and records the outcome.
// The WHERE status = 'active' clause is the single state-transition guard:
// exactly one caller (timer, early signal, or scanner) can win it.
func (r *QuestionRepository) MarkResolved(ctx context.Context, id uuid.UUID, outcome domain.Side) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE questions
		SET status      = 'resolved',
		    outcome     = $1,
		    resolved_at = now(),
		    updated_at  = now()
		WHERE id = $2 AND status = 'active'`,
		string(outcome), id)
	if err != nil {
		return fmt.Errorf("question_repo.MarkResolved: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuestionAlreadyResolved
	}
	return nil
}

// MarkExpired transitions active → expired. Used when the countdown elapsed
// with zero wagers; outcome stays NULL and settlement is skipped.
func (r *QuestionRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE questions
		SET status      = 'expired',
		    resolved_at = now(),
		    updated_at  = now()
		WHERE id = $1 AND status = 'active'`,
		id)
	if err != nil {
		return fmt.Errorf("question_repo.MarkExpired: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuestionAlreadyResolved
	}
	return nil
}

// GetHistory returns resolved/expired questions for a stream in descending
// time order.
func (r *QuestionRepository) GetHistory(ctx context.Context, streamRef string, limit, offset int) ([]*domain.Question, error) {
	var questions []*domain.Question
	err := r.db.SelectContext(ctx, &questions, `
		SELECT * FROM questions
		WHERE stream_ref = $1 AND status IN ('resolved','expired')
		ORDER BY end_time DESC
		LIMIT $2 OFFSET $3`,
		streamRef, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("question_repo.GetHistory: %w", err)
	}
	return questions, nil
}
