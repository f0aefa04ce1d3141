// Package scheduler manages the background goroutines that run the betting
// round lifecycle:
//  1. questionLoop (one per stream) – opens a round when none is active and
//     arms a timer at its endTime that triggers resolution.
//  2. resolutionLoop – backstop scan every 5 seconds: resolves due rounds,
//     checks for early oracle decisions, and re-settles leftovers.
//  3. statsLoop – rebuilds the period aggregates every minute.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/streambet/streambet/internal/config"
	"github.com/streambet/streambet/internal/domain"
	"github.com/streambet/streambet/internal/service"
)

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler wires together the services and runs the round lifecycle
// goroutines. Call Start(ctx) once from main(); cancel the context to shut it
// down gracefully.
type Scheduler struct {
	questionSvc   *service.QuestionService
	resolutionSvc *service.ResolutionService
	statsSvc      *service.StatsService
	cfg           *config.Config
	logger        *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	questionSvc *service.QuestionService,
	resolutionSvc *service.ResolutionService,
	statsSvc *service.StatsService,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		questionSvc:   questionSvc,
		resolutionSvc: resolutionSvc,
		statsSvc:      statsSvc,
		cfg:           cfg,
		logger:        logger,
	}
}

// Start launches all background goroutines. It returns immediately; all loops
// run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, streamRef := range s.cfg.Betting.Streams {
		go s.questionLoop(ctx, streamRef)
	}
	go s.resolutionLoop(ctx)
	go s.statsLoop(ctx)
	s.logger.Info("scheduler started", "streams", s.cfg.Betting.Streams)
}

// ──────────────────────────────────────────────────────────────────────────────
// questionLoop — one goroutine per stream
// ──────────────────────────────────────────────────────────────────────────────

// questionLoop keeps exactly one betting round alive for a stream. When no
// round is active and the stream has an eligible subject it opens one, then
// sleeps until the round's endTime and triggers resolution. When the feed
// reports no subject it polls again shortly.
func (s *Scheduler) questionLoop(ctx context.Context, streamRef string) {
	defer s.recoverAndLog("questionLoop")

	const idlePoll = 2 * time.Second

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("questionLoop: shutting down", "stream", streamRef)
			return
		default:
		}

		q, err := s.questionSvc.EnsureActiveQuestion(ctx, streamRef)
		if err != nil {
			if !errors.Is(err, domain.ErrNoSubject) {
				s.logger.Warn("questionLoop: could not open round", "stream", streamRef, "err", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(idlePoll):
			}
			continue
		}

		// Arm the authoritative endTime timer for this round. The early
		// oracle check and the backstop scan can resolve sooner; the
		// conditional transition makes all three safe to race.
		s.logger.Info("round open", "stream", streamRef, "question", q.ID, "ends", q.EndTime.Format(time.RFC3339))
		select {
		case <-ctx.Done():
			return
		case <-time.After(q.TimeLeft()):
		}

		if err := s.resolutionSvc.ResolveQuestion(ctx, q); err != nil {
			s.logger.Error("questionLoop: resolution failed, scan will retry", "question", q.ID, "err", err)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// resolutionLoop
// ──────────────────────────────────────────────────────────────────────────────

// resolutionLoop is the low-frequency backstop: every 5 seconds it resolves
// any round whose timer was missed, resolves rounds the oracle has already
// decided, and re-settles resolved rounds with unsettled wagers.
func (s *Scheduler) resolutionLoop(ctx context.Context) {
	defer s.recoverAndLog("resolutionLoop")

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("resolutionLoop: shutting down")
			return
		case <-ticker.C:
			if err := s.resolutionSvc.ResolveDue(ctx); err != nil {
				s.logger.Error("resolutionLoop: ResolveDue", "err", err)
			}
			if err := s.resolutionSvc.CheckEarlyDecisions(ctx); err != nil {
				s.logger.Error("resolutionLoop: CheckEarlyDecisions", "err", err)
			}
			if err := s.resolutionSvc.SettleUnsettled(ctx); err != nil {
				s.logger.Error("resolutionLoop: SettleUnsettled", "err", err)
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// statsLoop
// ──────────────────────────────────────────────────────────────────────────────

// statsLoop rebuilds the period aggregates once a minute. Best effort: the
// authoritative data lives in wagers and the ledger.
func (s *Scheduler) statsLoop(ctx context.Context) {
	defer s.recoverAndLog("statsLoop")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("statsLoop: shutting down")
			return
		case <-ticker.C:
			s.statsSvc.RebuildLogged(ctx)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
