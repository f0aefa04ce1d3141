package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/streambet/streambet/internal/config"
	"github.com/streambet/streambet/internal/domain"
	"github.com/streambet/streambet/internal/oracle"
	"github.com/streambet/streambet/internal/repository"
)

// TruthSource is the minimal interface ResolutionService needs from the truth
// feed. Implemented by oracle.Client.
type TruthSource interface {
	GroundTruth(ctx context.Context, subject, condition string, windowStart, windowEnd time.Time) (oracle.Verdict, error)
}

// ──────────────────────────────────────────────────────────────────────────────
// ResolutionService
// ──────────────────────────────────────────────────────────────────────────────

// ResolutionService finishes betting rounds: it obtains the outcome from the
// truth feed, performs the single active→resolved (or active→expired)
// transition, and settles every wager exactly once.
//
// Every trigger path — the per-question timer, the early-decision check, and
// the missed-resolution scanner — funnels through ResolveQuestion, which is
// guarded by a conditional UPDATE so the transition happens exactly once no
// matter how many triggers fire.
type ResolutionService struct {
	db              *sqlx.DB
	questionRepo    *repository.QuestionRepository
	wagerRepo       *repository.WagerRepository
	walletRepo      *repository.WalletRepository
	questionService *QuestionService
	truth           TruthSource
	cfg             *config.Config
	publisher       Publisher // injected after the WS hub is built
}

// NewResolutionService builds a ResolutionService.
func NewResolutionService(
	db *sqlx.DB,
	questionRepo *repository.QuestionRepository,
	wagerRepo *repository.WagerRepository,
	walletRepo *repository.WalletRepository,
	questionService *QuestionService,
	truth TruthSource,
	cfg *config.Config,
) *ResolutionService {
	return &ResolutionService{
		db:              db,
		questionRepo:    questionRepo,
		wagerRepo:       wagerRepo,
		walletRepo:      walletRepo,
		questionService: questionService,
		truth:           truth,
		cfg:             cfg,
	}
}

// SetPublisher injects the WS hub dependency post-construction.
func (s *ResolutionService) SetPublisher(p Publisher) { s.publisher = p }

// ──────────────────────────────────────────────────────────────────────────────
// ResolveQuestion — the single authoritative trigger path
// ──────────────────────────────────────────────────────────────────────────────

// ResolveQuestion finishes one round. Safe to call from any trigger at any
// time: if the question already left the active state the call is a no-op.
//
// Steps: zero wagers → expire with no outcome and no settlement; otherwise
// fetch the verdict from the truth feed (retrying with backoff, never
// guessing), win the active→resolved transition, then settle every wager.
// A feed failure leaves the question active — placement is still gated by
// endTime, so no new matches slip in while we retry.
func (s *ResolutionService) ResolveQuestion(ctx context.Context, question *domain.Question) error {
	if !question.IsActive() {
		return nil
	}

	// ── Zero wagers → expire, skip settlement ────────────────────────────────
	count, err := s.wagerRepo.CountByQuestion(ctx, question.ID)
	if err != nil {
		return fmt.Errorf("resolution_service.ResolveQuestion: count: %w", err)
	}
	if count == 0 {
		if err := s.questionRepo.MarkExpired(ctx, question.ID); err != nil {
			if errors.Is(err, domain.ErrQuestionAlreadyResolved) {
				return nil // another trigger won
			}
			return fmt.Errorf("resolution_service.ResolveQuestion: expire: %w", err)
		}
		s.questionService.InvalidateActiveCache(question.StreamRef)
		if s.publisher != nil {
			s.publisher.PublishQuestionResolved(question.ID, nil)
		}
		log.Printf("[resolution] question %s expired with zero wagers", question.ID)
		return nil
	}

	// ── Obtain the verdict, never guess ──────────────────────────────────────
	verdict, err := s.fetchVerdictWithBackoff(ctx, question)
	if err != nil {
		return fmt.Errorf("resolution_service.ResolveQuestion %s: %w", question.ID, err)
	}
	outcome := verdict.Side()

	// ── Exactly-once state transition ────────────────────────────────────────
	if err := s.questionRepo.MarkResolved(ctx, question.ID, outcome); err != nil {
		if errors.Is(err, domain.ErrQuestionAlreadyResolved) {
			return nil // another trigger won; it runs settlement
		}
		return fmt.Errorf("resolution_service.ResolveQuestion: resolve: %w", err)
	}
	s.questionService.InvalidateActiveCache(question.StreamRef)
	if s.publisher != nil {
		s.publisher.PublishQuestionResolved(question.ID, &outcome)
	}
	log.Printf("[resolution] question %s resolved: outcome=%s", question.ID, outcome)

	// ── Settlement ───────────────────────────────────────────────────────────
	s.settleQuestion(ctx, question, outcome)
	return nil
}

// fetchVerdictWithBackoff asks the truth feed for the outcome, retrying
// transient failures and pending answers with exponential backoff. Gives up
// after the backoff cap is reached; the missed-resolution scanner retries the
// whole question later.
func (s *ResolutionService) fetchVerdictWithBackoff(ctx context.Context, q *domain.Question) (oracle.Verdict, error) {
	delay := s.cfg.Oracle.RetryBase
	for {
		verdict, err := s.truth.GroundTruth(ctx, q.Subject, q.Condition, q.StartTime, q.EndTime)
		if err == nil {
			return verdict, nil
		}
		if delay > s.cfg.Oracle.RetryMax {
			return "", err
		}
		log.Printf("[resolution] question %s: truth feed not ready (%v), retrying in %s", q.ID, err, delay)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────────────────────────────────

// settleQuestion settles every unsettled wager of a resolved question, each in
// its own transaction. A per-wager failure is logged and skipped, never fatal:
// the unsettled-wager scanner re-runs the batch until all wagers are settled.
func (s *ResolutionService) settleQuestion(ctx context.Context, question *domain.Question, outcome domain.Side) {
	wagers, err := s.wagerRepo.GetUnsettledByQuestion(ctx, question.ID)
	if err != nil {
		log.Printf("[resolution] ERROR fetching unsettled wagers for question %s: %v", question.ID, err)
		return
	}

	for _, w := range wagers {
		if err := s.settleWager(ctx, question, w, outcome); err != nil {
			if errors.Is(err, domain.ErrWagerAlreadySettled) {
				continue // another pass got there first
			}
			log.Printf("[resolution] ERROR settling wager %s: %v", w.ID, err)
			// Continue: do not block other wagers because one failed.
		}
	}
}

// settleWager applies one wager's terminal state and wallet movements in a
// single transaction. The settled flag flips first under a WHERE settled=false
// guard, so two concurrent passes cannot both credit the same wager: the
// loser's transaction rolls back with no wallet writes at all.
func (s *ResolutionService) settleWager(ctx context.Context, question *domain.Question, w *domain.Wager, outcome domain.Side) error {
	feeRate := decimal.NewFromFloat(s.cfg.Betting.FeeRate)
	now := time.Now().UTC()

	// Terminal status and credits, decided up front.
	decision := w.Settle(outcome, feeRate)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("settleWager: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Idempotency guard first: losing this means the wager is already done.
	if err = s.wagerRepo.MarkSettled(ctx, tx, w.ID, decision.FinalStatus, now); err != nil {
		return err
	}

	wagerIDCopy := w.ID
	questionIDCopy := question.ID
	newBalance := decimal.Zero

	if decision.Refund.IsPositive() {
		if newBalance, err = s.walletRepo.Credit(ctx, tx, w.BettorID, decision.Refund); err != nil {
			return fmt.Errorf("settleWager: refund credit: %w", err)
		}
		txn := &domain.Transaction{
			ID:           uuid.New(),
			BettorID:     w.BettorID,
			Kind:         domain.TxRefund,
			Amount:       decision.Refund,
			BalanceAfter: newBalance,
			WagerRef:     &wagerIDCopy,
			QuestionRef:  &questionIDCopy,
			Description:  fmt.Sprintf("Unmatched stake refunded: %s", decision.Refund.StringFixed(4)),
			CreatedAt:    now,
		}
		if err = s.walletRepo.LogTransaction(ctx, tx, txn); err != nil {
			return fmt.Errorf("settleWager: log refund: %w", err)
		}
	}

	if decision.Winnings.IsPositive() {
		if newBalance, err = s.walletRepo.Credit(ctx, tx, w.BettorID, decision.Winnings); err != nil {
			return fmt.Errorf("settleWager: win credit: %w", err)
		}
		txn := &domain.Transaction{
			ID:           uuid.New(),
			BettorID:     w.BettorID,
			Kind:         domain.TxWin,
			Amount:       decision.Winnings,
			BalanceAfter: newBalance,
			WagerRef:     &wagerIDCopy,
			QuestionRef:  &questionIDCopy,
			Description:  fmt.Sprintf("Winnings: question %s, %s", question.ID, decision.Winnings.StringFixed(4)),
			CreatedAt:    now,
		}
		if err = s.walletRepo.LogTransaction(ctx, tx, txn); err != nil {
			return fmt.Errorf("settleWager: log win: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("settleWager: commit: %w", err)
	}

	credited := decision.TotalCredit()
	if s.publisher != nil && credited.IsPositive() {
		s.publisher.PublishWalletChanged(w.BettorID, newBalance.StringFixed(4), credited.StringFixed(4))
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Scanners — called by the Scheduler on a low-frequency tick
// ──────────────────────────────────────────────────────────────────────────────

// ResolveDue resolves every question whose countdown elapsed while it was
// still active. This backstops the per-question timers: a crashed or missed
// timer only delays resolution until the next scan. A single failing question
// does NOT abort the others.
func (s *ResolutionService) ResolveDue(ctx context.Context) error {
	questions, err := s.questionRepo.GetDueUnresolved(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("resolution_service.ResolveDue: fetch: %w", err)
	}
	for _, q := range questions {
		if err := s.ResolveQuestion(ctx, q); err != nil {
			log.Printf("[resolution] ERROR resolving due question %s: %v", q.ID, err)
		}
	}
	return nil
}

// CheckEarlyDecisions asks the truth feed about every active question and
// resolves any whose condition is already decided before the countdown
// elapses. A pending answer is the normal case and is ignored.
func (s *ResolutionService) CheckEarlyDecisions(ctx context.Context) error {
	questions, err := s.questionRepo.GetActiveAll(ctx)
	if err != nil {
		return fmt.Errorf("resolution_service.CheckEarlyDecisions: fetch: %w", err)
	}
	for _, q := range questions {
		if _, err := s.truth.GroundTruth(ctx, q.Subject, q.Condition, q.StartTime, q.EndTime); err != nil {
			continue // pending or feed down: the endTime timer will handle it
		}
		if err := s.ResolveQuestion(ctx, q); err != nil {
			log.Printf("[resolution] ERROR early-resolving question %s: %v", q.ID, err)
		}
	}
	return nil
}

// SettleUnsettled re-runs settlement for resolved questions that still have
// unsettled wagers, recovering from crashes or per-wager failures. Safe to
// run any number of times: every settlement write sits behind the per-wager
// settled guard.
func (s *ResolutionService) SettleUnsettled(ctx context.Context) error {
	questions, err := s.questionRepo.GetResolvedWithUnsettled(ctx)
	if err != nil {
		return fmt.Errorf("resolution_service.SettleUnsettled: fetch: %w", err)
	}
	for _, q := range questions {
		if !q.IsResolved() || q.Outcome == nil {
			log.Printf("[resolution] WARN question %s is not settleable (status=%s), skipping", q.ID, q.Status)
			continue
		}
		s.settleQuestion(ctx, q, *q.Outcome)
	}
	return nil
}
