package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Question errors
var (
	// ErrQuestionNotFound is returned when no question matches the given reference.
	// A stale or unknown reference never implicitly spawns a new round.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrQuestionClosed is returned when a wager is placed against a question
	// that is not active or whose countdown has elapsed.
	ErrQuestionClosed = errors.New("question is closed for wagers")

	// ErrQuestionAlreadyResolved is returned when trying to resolve an already-
	// resolved or expired question.
	ErrQuestionAlreadyResolved = errors.New("question is already resolved")

	// ErrNoActiveQuestion is returned when the stream has no open question.
	ErrNoActiveQuestion = errors.New("no active question for stream")

	// ErrNoSubject is returned by the scheduler when the truth feed reports no
	// eligible subject, so no question can open.
	ErrNoSubject = errors.New("no eligible subject available")

	// ErrActiveQuestionExists is returned when question creation loses the
	// single-active-per-stream race; the caller should fetch the winner.
	ErrActiveQuestionExists = errors.New("an active question already exists for this stream")
)

// Wager errors
var (
	// ErrInvalidSide is returned when the side is not Yes or No.
	ErrInvalidSide = errors.New("invalid wager side: must be Yes or No")

	// ErrInvalidStake is returned when the stake is zero, negative, or below
	// the configured minimum.
	ErrInvalidStake = errors.New("stake must be a positive amount")

	// ErrWagerNotFound is returned when no wager matches the given id.
	ErrWagerNotFound = errors.New("wager not found")

	// ErrWagerAlreadySettled is returned when a settlement pass finds the
	// wager's settled flag already flipped; the wager is skipped, never re-paid.
	ErrWagerAlreadySettled = errors.New("wager is already settled")
)

// Wallet errors
var (
	// ErrWalletNotFound is returned when no wallet exists for the bettor.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInsufficientFunds is returned when the bettor's balance cannot cover
	// the stake. Rejected before any write.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// ErrStatsNotFound is returned when no period stats have been built yet.
	ErrStatsNotFound = errors.New("period stats not found")
)

// Oracle errors
var (
	// ErrOracleUnavailable is returned when the truth feed cannot be reached.
	// Resolution retries with backoff; an outcome is never guessed.
	ErrOracleUnavailable = errors.New("truth oracle is unavailable")

	// ErrOraclePending is returned when the truth feed has not yet decided the
	// condition for the window.
	ErrOraclePending = errors.New("truth oracle has not decided the outcome yet")
)

// Auth boundary errors
var (
	// ErrUnauthorized is returned when a valid bearer token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the bettor does not own the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrTokenInvalid is returned when a token cannot be parsed or its
	// signature does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound can stay in sync automatically.
var notFoundErrors = []error{
	ErrQuestionNotFound,
	ErrNoActiveQuestion,
	ErrWagerNotFound,
	ErrWalletNotFound,
	ErrStatsNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this instead of comparing error values
// directly when translating domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a state conflict (e.g.
// double-resolution or a closed betting window). Translated to HTTP 409.
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrQuestionClosed,
		ErrQuestionAlreadyResolved,
		ErrWagerAlreadySettled,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
