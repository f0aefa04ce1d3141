package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/streambet/streambet/internal/config"
	"github.com/streambet/streambet/internal/domain"
	"github.com/streambet/streambet/internal/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// WagerService
// ──────────────────────────────────────────────────────────────────────────────

// WagerService orchestrates wager placement and matching. All money movement
// and matching for one placement happens inside a single PostgreSQL
// transaction, serialized per question by the question row lock.
type WagerService struct {
	db           *sqlx.DB
	wagerRepo    *repository.WagerRepository
	questionRepo *repository.QuestionRepository
	walletRepo   *repository.WalletRepository
	cfg          *config.Config
	publisher    Publisher // injected after the WS hub is built
}

// NewWagerService creates a WagerService.
func NewWagerService(
	db *sqlx.DB,
	wagerRepo *repository.WagerRepository,
	questionRepo *repository.QuestionRepository,
	walletRepo *repository.WalletRepository,
	cfg *config.Config,
) *WagerService {
	return &WagerService{
		db:           db,
		wagerRepo:    wagerRepo,
		questionRepo: questionRepo,
		walletRepo:   walletRepo,
		cfg:          cfg,
	}
}

// SetPublisher injects the WS hub dependency post-construction.
func (s *WagerService) SetPublisher(p Publisher) { s.publisher = p }

// ──────────────────────────────────────────────────────────────────────────────
// PlaceWager
// ──────────────────────────────────────────────────────────────────────────────

// PlaceWager validates the request, atomically debits the bettor's wallet,
// records the wager, matches it FIFO against resting opposite-side wagers,
// and refreshes the question's aggregates — all inside one transaction.
//
// The question row is locked first, which serializes every matcher for that
// question: two concurrent placements can never both consume the same resting
// liquidity. The active/endTime gate is re-checked under that lock immediately
// before any write, so a placement racing the resolution timer aborts with
// ErrQuestionClosed instead of matching into a closing round.
//
// After a successful commit the updated odds and wallet balance are broadcast
// asynchronously.
func (s *WagerService) PlaceWager(ctx context.Context, req domain.PlaceWagerRequest) (*domain.Wager, error) {
	// ── 1. Input validation (no side effects on failure) ─────────────────────
	if !req.Side.IsValid() {
		return nil, domain.ErrInvalidSide
	}
	minStake := decimal.NewFromFloat(s.cfg.Betting.MinStake)
	if !req.Stake.IsPositive() || req.Stake.LessThan(minStake) {
		return nil, domain.ErrInvalidStake
	}
	feeRate := decimal.NewFromFloat(s.cfg.Betting.FeeRate)

	// ── 2. Begin transaction ─────────────────────────────────────────────────
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("wager_service.PlaceWager: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// ── 3. Lock question, last gate before any write ─────────────────────────
	question, err := s.questionRepo.LockForWagering(ctx, tx, req.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("wager_service.PlaceWager: lock question: %w", err)
	}
	now := time.Now().UTC()
	if !question.AcceptsWagers(now) {
		err = domain.ErrQuestionClosed
		return nil, err
	}

	// ── 4. Debit wallet (locked read, atomic funds check) ────────────────────
	// First contact may arrive on the betting path: provision the wallet with
	// the starting balance before the funds check, inside the same tx.
	startingBalance := decimal.NewFromFloat(s.cfg.Betting.StartingBalance)
	if err = s.walletRepo.EnsureExists(ctx, tx, req.BettorID, startingBalance); err != nil {
		return nil, fmt.Errorf("wager_service.PlaceWager: %w", err)
	}
	newBalance, err := s.walletRepo.Debit(ctx, tx, req.BettorID, req.Stake)
	if err != nil {
		return nil, fmt.Errorf("wager_service.PlaceWager: debit: %w", err)
	}

	// ── 5. Build and match the wager ─────────────────────────────────────────
	wager := &domain.Wager{
		ID:           uuid.New(),
		BettorID:     req.BettorID,
		QuestionID:   req.QuestionID,
		Side:         req.Side,
		Stake:        req.Stake,
		MatchedStake: decimal.Zero,
		Status:       domain.WagerPending,
		PlacedAt:     now,
	}

	resting, err := s.wagerRepo.GetOpenOpposing(ctx, tx, req.QuestionID, req.Side)
	if err != nil {
		return nil, fmt.Errorf("wager_service.PlaceWager: %w", err)
	}
	fills := domain.MatchIncoming(wager, resting)
	wager.RefreshPotentialPayout(feeRate)

	if err = s.wagerRepo.Create(ctx, tx, wager); err != nil {
		return nil, fmt.Errorf("wager_service.PlaceWager: %w", err)
	}
	for _, fill := range fills {
		fill.Resting.RefreshPotentialPayout(feeRate)
		if err = s.wagerRepo.UpdateMatch(ctx, tx, fill.Resting); err != nil {
			return nil, fmt.Errorf("wager_service.PlaceWager: update resting %s: %w", fill.Resting.ID, err)
		}
	}

	// ── 6. Ledger entry for the stake debit ──────────────────────────────────
	wagerIDCopy := wager.ID
	questionIDCopy := question.ID
	txn := &domain.Transaction{
		ID:           uuid.New(),
		BettorID:     req.BettorID,
		Kind:         domain.TxPlace,
		Amount:       req.Stake.Neg(),
		BalanceAfter: newBalance,
		WagerRef:     &wagerIDCopy,
		QuestionRef:  &questionIDCopy,
		Description:  fmt.Sprintf("Wager placed: %s %s", string(req.Side), req.Stake.StringFixed(4)),
		CreatedAt:    now,
	}
	if err = s.walletRepo.LogTransaction(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("wager_service.PlaceWager: log tx: %w", err)
	}

	// ── 7. Refresh question aggregates ───────────────────────────────────────
	if req.Side == domain.SideYes {
		question.YesStake = question.YesStake.Add(req.Stake)
	} else {
		question.NoStake = question.NoStake.Add(req.Stake)
	}
	// Backer counts are unique bettors per side, recomputed inside the tx so
	// a bettor adding a second wager on the same side counts once.
	if question.YesBackers, err = s.wagerRepo.CountDistinctBackers(ctx, tx, question.ID, domain.SideYes); err != nil {
		return nil, fmt.Errorf("wager_service.PlaceWager: %w", err)
	}
	if question.NoBackers, err = s.wagerRepo.CountDistinctBackers(ctx, tx, question.ID, domain.SideNo); err != nil {
		return nil, fmt.Errorf("wager_service.PlaceWager: %w", err)
	}
	question.RecomputePercentages()
	if err = s.questionRepo.UpdateAggregates(ctx, tx, question); err != nil {
		return nil, fmt.Errorf("wager_service.PlaceWager: %w", err)
	}

	// ── 8. Commit ────────────────────────────────────────────────────────────
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("wager_service.PlaceWager: commit: %w", err)
	}

	// ── 9. Async: odds + wallet broadcast ────────────────────────────────────
	go s.postWagerAsync(question.ToSummary(), req.BettorID, newBalance, req.Stake.Neg())

	return wager, nil
}

// postWagerAsync broadcasts the refreshed odds and the bettor's new balance.
// Runs in a goroutine; delivery is at-most-once and never retried — clients
// poll authoritative state to recover from missed events.
func (s *WagerService) postWagerAsync(summary domain.QuestionSummary, bettorID uuid.UUID, newBalance, delta decimal.Decimal) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishOddsUpdated(summary)
	s.publisher.PublishWalletChanged(bettorID, newBalance.StringFixed(4), delta.StringFixed(4))
}

// ──────────────────────────────────────────────────────────────────────────────
// Query helpers
// ──────────────────────────────────────────────────────────────────────────────

// GetMyWagers returns paginated wagers for a bettor.
func (s *WagerService) GetMyWagers(ctx context.Context, bettorID uuid.UUID, limit, offset int) ([]*domain.Wager, error) {
	wagers, err := s.wagerRepo.GetByBettor(ctx, bettorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("wager_service.GetMyWagers: %w", err)
	}
	return wagers, nil
}

// GetWagerByID returns a single wager only if it belongs to bettorID.
func (s *WagerService) GetWagerByID(ctx context.Context, wagerID, bettorID uuid.UUID) (*domain.Wager, error) {
	wager, err := s.wagerRepo.GetByID(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("wager_service.GetWagerByID: %w", err)
	}
	if wager.BettorID != bettorID {
		return nil, domain.ErrForbidden
	}
	return wager, nil
}
