// Package domain defines the core business entities and types for the
// stream-tied Yes/No betting system.
package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// QuestionStatus represents the lifecycle state of a betting round.
type QuestionStatus string

const (
	QuestionActive   QuestionStatus = "active"   // accepting wagers
	QuestionResolved QuestionStatus = "resolved" // outcome known, payouts sent
	QuestionExpired  QuestionStatus = "expired"  // closed with zero wagers, no outcome
)

// Side represents the outcome a bettor backs.
type Side string

const (
	SideYes Side = "Yes"
	SideNo  Side = "No"
)

// IsValid returns true if the side is a recognised outcome.
func (s Side) IsValid() bool {
	return s == SideYes || s == SideNo
}

// Opposite returns the opposing side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// SubjectNone is the sentinel reported by the truth feed when a stream has no
// eligible subject; no question may open while it is current.
const SubjectNone = "none"

// ──────────────────────────────────────────────────────────────────────────────
// Question
// ──────────────────────────────────────────────────────────────────────────────

// Question represents a single betting round tied to one stream.
type Question struct {
	ID         uuid.UUID       `json:"id"          db:"id"`
	StreamRef  string          `json:"stream_ref"  db:"stream_ref"`
	PromptText string          `json:"prompt_text" db:"prompt_text"`
	Subject    string          `json:"subject"     db:"subject"`
	Condition  string          `json:"condition"   db:"condition"`
	Status     QuestionStatus  `json:"status"      db:"status"`
	Outcome    *Side           `json:"outcome"     db:"outcome"`
	YesStake   decimal.Decimal `json:"yes_stake"   db:"yes_stake"`
	NoStake    decimal.Decimal `json:"no_stake"    db:"no_stake"`
	YesPct     int             `json:"yes_pct"     db:"yes_pct"`
	NoPct      int             `json:"no_pct"      db:"no_pct"`
	YesBackers int             `json:"yes_backers" db:"yes_backers"`
	NoBackers  int             `json:"no_backers"  db:"no_backers"`
	StartTime  time.Time       `json:"start_time"  db:"start_time"`
	EndTime    time.Time       `json:"end_time"    db:"end_time"`
	ResolvedAt *time.Time      `json:"resolved_at" db:"resolved_at"`
	CreatedAt  time.Time       `json:"created_at"  db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"  db:"updated_at"`
}

// TotalStake returns the sum of both sides' stakes.
func (q *Question) TotalStake() decimal.Decimal {
	return q.YesStake.Add(q.NoStake)
}

// TotalBackers returns the number of unique backers across both sides.
func (q *Question) TotalBackers() int {
	return q.YesBackers + q.NoBackers
}

// IsActive returns true while the question may still accept wagers
// (subject to the EndTime check, see AcceptsWagers).
func (q *Question) IsActive() bool {
	return q.Status == QuestionActive
}

// IsResolved returns true after the question has been settled.
func (q *Question) IsResolved() bool {
	return q.Status == QuestionResolved
}

// AcceptsWagers is the placement gate: the question must be active AND the
// countdown must not have elapsed. Callers re-check this immediately before
// committing a wager so a firing resolution timer wins the race.
func (q *Question) AcceptsWagers(now time.Time) bool {
	return q.Status == QuestionActive && now.Before(q.EndTime)
}

// TimeLeft returns the duration remaining until the countdown elapses.
// Returns 0 if the end time has already passed.
func (q *Question) TimeLeft() time.Duration {
	remaining := time.Until(q.EndTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ──────────────────────────────────────────────────────────────────────────────
// Crowd percentages
// ──────────────────────────────────────────────────────────────────────────────

// SplitPercentages converts unique backer counts into display percentages.
// The Yes side is rounded and the No side is derived as its complement, so the
// two always sum to exactly 100. With no backers at all the split is 50/50.
//
// Percentages deliberately count backers, not stake: the display reflects
// crowd sentiment while matching economics run on stake amounts.
func SplitPercentages(yesBackers, noBackers int) (yesPct, noPct int) {
	total := yesBackers + noBackers
	if total == 0 {
		return 50, 50
	}
	yesPct = int(math.Round(float64(yesBackers) / float64(total) * 100))
	return yesPct, 100 - yesPct
}

// RecomputePercentages refreshes YesPct/NoPct from the current backer counts.
func (q *Question) RecomputePercentages() {
	q.YesPct, q.NoPct = SplitPercentages(q.YesBackers, q.NoBackers)
}

// ──────────────────────────────────────────────────────────────────────────────
// QuestionSummary — lightweight read model for WS broadcasts and list endpoints
// ──────────────────────────────────────────────────────────────────────────────

// QuestionSummary is a derived, read-only view of a Question used for broadcasting.
type QuestionSummary struct {
	ID          uuid.UUID       `json:"id"`
	StreamRef   string          `json:"stream_ref"`
	PromptText  string          `json:"prompt_text"`
	Status      QuestionStatus  `json:"status"`
	YesPct      int             `json:"yes_pct"`
	NoPct       int             `json:"no_pct"`
	YesStake    decimal.Decimal `json:"yes_stake"`
	NoStake     decimal.Decimal `json:"no_stake"`
	TotalStake  decimal.Decimal `json:"total_stake"`
	TotalBacker int             `json:"total_backers"`
	EndTime     time.Time       `json:"end_time"`
	TimeLeftSec int64           `json:"time_left_sec"`
}

// ToSummary builds a QuestionSummary from the question's current aggregates.
func (q *Question) ToSummary() QuestionSummary {
	return QuestionSummary{
		ID:          q.ID,
		StreamRef:   q.StreamRef,
		PromptText:  q.PromptText,
		Status:      q.Status,
		YesPct:      q.YesPct,
		NoPct:       q.NoPct,
		YesStake:    q.YesStake,
		NoStake:     q.NoStake,
		TotalStake:  q.TotalStake(),
		TotalBacker: q.TotalBackers(),
		EndTime:     q.EndTime,
		TimeLeftSec: int64(q.TimeLeft().Seconds()),
	}
}
