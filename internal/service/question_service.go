package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streambet/streambet/internal/config"
	"github.com/streambet/streambet/internal/domain"
	"github.com/streambet/streambet/internal/oracle"
	"github.com/streambet/streambet/internal/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into QuestionService
// ──────────────────────────────────────────────────────────────────────────────

// SubjectSource is the minimal interface QuestionService needs from the truth
// feed. Implemented by oracle.Client.
type SubjectSource interface {
	Snapshot(ctx context.Context, streamRef string) (*oracle.StreamSnapshot, error)
}

// Publisher is the broadcast-gateway interface injected into services.
// Implemented by ws.Hub. All methods are fire-and-forget: a publish must
// never block or fail a money-moving operation.
type Publisher interface {
	PublishQuestionOpened(q *domain.Question)
	PublishOddsUpdated(summary domain.QuestionSummary)
	PublishQuestionResolved(questionID uuid.UUID, outcome *domain.Side)
	PublishWalletChanged(bettorID uuid.UUID, newBalance, delta string)
}

// ──────────────────────────────────────────────────────────────────────────────
// QuestionService
// ──────────────────────────────────────────────────────────────────────────────

// QuestionService handles the question lifecycle: scheduling a round when the
// stream has an eligible subject, lookups, and history. Resolution lives in
// ResolutionService.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	subjects     SubjectSource
	cfg          *config.Config
	publisher    Publisher // injected after the WS hub is built

	// short active-question cache, keyed by stream ref
	activeMu        sync.RWMutex
	activeQuestions map[string]*domain.Question
	activeCacheTime map[string]time.Time
}

// NewQuestionService creates a QuestionService. Call SetPublisher() after the
// WS hub is constructed.
func NewQuestionService(
	questionRepo *repository.QuestionRepository,
	subjects SubjectSource,
	cfg *config.Config,
) *QuestionService {
	return &QuestionService{
		questionRepo:    questionRepo,
		subjects:        subjects,
		cfg:             cfg,
		activeQuestions: make(map[string]*domain.Question),
		activeCacheTime: make(map[string]time.Time),
	}
}

// SetPublisher injects the WS hub dependency post-construction.
func (s *QuestionService) SetPublisher(p Publisher) { s.publisher = p }

// ──────────────────────────────────────────────────────────────────────────────
// EnsureActiveQuestion
// ──────────────────────────────────────────────────────────────────────────────

// EnsureActiveQuestion opens a new betting round for the stream if none is
// active. Preconditions: no active question exists for the stream, and the
// truth feed reports an eligible subject (not the "none" sentinel). When a
// precondition fails the call performs no write: it returns the existing
// question, or ErrNoSubject.
//
// Concurrent invocations are serialized by the partial unique index on
// (stream_ref) WHERE status = 'active': the loser of a creation race gets a
// unique violation and simply fetches the winner's question.
func (s *QuestionService) EnsureActiveQuestion(ctx context.Context, streamRef string) (*domain.Question, error) {
	// Existing round wins; lookup never creates.
	if q, err := s.GetActiveQuestion(ctx, streamRef); err == nil {
		return q, nil
	} else if !errors.Is(err, domain.ErrNoActiveQuestion) {
		return nil, err
	}

	snap, err := s.subjects.Snapshot(ctx, streamRef)
	if err != nil {
		// ErrNoSubject and feed failures both mean: no round this tick.
		return nil, fmt.Errorf("question_service.EnsureActiveQuestion: %w", err)
	}

	now := time.Now().UTC()
	q := &domain.Question{
		ID:         uuid.New(),
		StreamRef:  streamRef,
		PromptText: buildPrompt(snap.Subject),
		Subject:    snap.Subject,
		Condition:  fmt.Sprintf("count>%d", snap.Count),
		Status:     domain.QuestionActive,
		YesPct:     50,
		NoPct:      50,
		StartTime:  now,
		EndTime:    now.Add(s.cfg.Betting.QuestionDuration),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.questionRepo.Create(ctx, q); err != nil {
		if errors.Is(err, domain.ErrActiveQuestionExists) {
			// Lost the creation race; return the winner.
			return s.GetActiveQuestion(ctx, streamRef)
		}
		return nil, fmt.Errorf("question_service.EnsureActiveQuestion: %w", err)
	}

	s.invalidateActiveCache(streamRef)

	if s.publisher != nil {
		s.publisher.PublishQuestionOpened(q)
	}
	return q, nil
}

// buildPrompt renders the user-facing question text for a subject.
func buildPrompt(subject string) string {
	return fmt.Sprintf("Will %s score before the timer runs out?", subject)
}

// ──────────────────────────────────────────────────────────────────────────────
// Lookups
// ──────────────────────────────────────────────────────────────────────────────

// GetActiveQuestion returns the currently active question for a stream. The
// result is cached for 500 ms to reduce DB pressure during high-frequency WS
// broadcasts.
func (s *QuestionService) GetActiveQuestion(ctx context.Context, streamRef string) (*domain.Question, error) {
	const cacheDuration = 500 * time.Millisecond

	s.activeMu.RLock()
	if q, ok := s.activeQuestions[streamRef]; ok && time.Since(s.activeCacheTime[streamRef]) < cacheDuration {
		s.activeMu.RUnlock()
		return q, nil
	}
	s.activeMu.RUnlock()

	q, err := s.questionRepo.GetActiveByStream(ctx, streamRef)
	if err != nil {
		return nil, err
	}

	s.activeMu.Lock()
	s.activeQuestions[streamRef] = q
	s.activeCacheTime[streamRef] = time.Now()
	s.activeMu.Unlock()

	return q, nil
}

// FindQuestion resolves a question reference to a question, or
// ErrQuestionNotFound. Lookup is strictly read-only: an unknown reference
// never spawns a new round.
func (s *QuestionService) FindQuestion(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	q, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("question_service.FindQuestion: %w", err)
	}
	return q, nil
}

// GetHistory returns finished rounds for a stream, newest first.
func (s *QuestionService) GetHistory(ctx context.Context, streamRef string, limit, offset int) ([]*domain.Question, error) {
	questions, err := s.questionRepo.GetHistory(ctx, streamRef, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("question_service.GetHistory: %w", err)
	}
	return questions, nil
}

// InvalidateActiveCache drops the cached active question for a stream. Called
// by ResolutionService after a round finishes.
func (s *QuestionService) InvalidateActiveCache(streamRef string) {
	s.invalidateActiveCache(streamRef)
}

func (s *QuestionService) invalidateActiveCache(streamRef string) {
	s.activeMu.Lock()
	delete(s.activeQuestions, streamRef)
	delete(s.activeCacheTime, streamRef)
	s.activeMu.Unlock()
}
