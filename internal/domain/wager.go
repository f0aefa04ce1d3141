package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// WagerStatus represents the current state of a bettor's wager.
type WagerStatus string

const (
	// Pre-settlement statuses, derived from MatchedStake vs Stake.
	WagerPending WagerStatus = "pending"           // nothing matched yet
	WagerPartial WagerStatus = "partially_matched" // 0 < matched < stake
	WagerMatched WagerStatus = "matched"           // fully matched

	// Terminal statuses, set exactly once by the settlement worker. A partial
	// match settles as won or lost; the unmatched remainder is refunded
	// alongside, without its own status.
	WagerWon       WagerStatus = "won"       // matched stake paid out
	WagerLost      WagerStatus = "lost"      // matched stake forfeited
	WagerUnmatched WagerStatus = "unmatched" // nothing ever matched, full refund
)

// DefaultFeeRate is the platform fee withheld from winnings (5 %).
var DefaultFeeRate = decimal.NewFromFloat(0.05)

// ──────────────────────────────────────────────────────────────────────────────
// Wager
// ──────────────────────────────────────────────────────────────────────────────

// Wager represents a single bettor's stake on one side of a Question.
// The stake is debited from the wallet at placement; MatchedStake only ever
// grows until settlement.
type Wager struct {
	ID              uuid.UUID       `json:"id"               db:"id"`
	BettorID        uuid.UUID       `json:"bettor_id"        db:"bettor_id"`
	QuestionID      uuid.UUID       `json:"question_id"      db:"question_id"`
	Side            Side            `json:"side"             db:"side"`
	Stake           decimal.Decimal `json:"stake"            db:"stake"`
	MatchedStake    decimal.Decimal `json:"matched_stake"    db:"matched_stake"`
	PotentialPayout decimal.Decimal `json:"potential_payout" db:"potential_payout"`
	Status          WagerStatus     `json:"status"           db:"status"`
	Settled         bool            `json:"settled"          db:"settled"`
	PlacedAt        time.Time       `json:"placed_at"        db:"placed_at"`
	SettledAt       *time.Time      `json:"settled_at"       db:"settled_at"`
}

// Remaining returns the stake still waiting for an opposing match.
func (w *Wager) Remaining() decimal.Decimal {
	return w.Stake.Sub(w.MatchedStake)
}

// IsOpen returns true while the wager can still gain matches.
func (w *Wager) IsOpen() bool {
	return !w.Settled &&
		(w.Status == WagerPending || w.Status == WagerPartial)
}

// DeriveStatus computes the pre-settlement status from the matched amount.
func (w *Wager) DeriveStatus() WagerStatus {
	switch {
	case w.MatchedStake.IsZero():
		return WagerPending
	case w.MatchedStake.GreaterThanOrEqual(w.Stake):
		return WagerMatched
	default:
		return WagerPartial
	}
}

// PayoutIfWon returns the amount credited to the bettor should their side win:
//
//	payout = matchedStake × 2 × (1 − feeRate)
//
// Each matched unit is backed by an equal opposing unit, so the gross return
// is twice the matched stake; the platform fee is withheld from that.
// The amount is floored to 4 decimal places (matching DB DECIMAL(18,4)).
func (w *Wager) PayoutIfWon(feeRate decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	two := decimal.NewFromInt(2)
	return w.MatchedStake.Mul(two).Mul(one.Sub(feeRate)).RoundDown(4)
}

// RefreshPotentialPayout recomputes the cached potential payout after a
// matching pass.
func (w *Wager) RefreshPotentialPayout(feeRate decimal.Decimal) {
	w.PotentialPayout = w.PayoutIfWon(feeRate)
}

// ──────────────────────────────────────────────────────────────────────────────
// Settlement decision
// ──────────────────────────────────────────────────────────────────────────────

// Settlement is the terminal state and wallet credits owed to one wager once
// its question's outcome is known. Refund and Winnings are separate ledger
// entries; either may be zero.
type Settlement struct {
	FinalStatus WagerStatus
	Refund      decimal.Decimal // unmatched remainder, returned in full
	Winnings    decimal.Decimal // matched stake × 2 × (1−fee), winners only
}

// TotalCredit returns the total amount the settlement moves into the wallet.
func (s Settlement) TotalCredit() decimal.Decimal {
	return s.Refund.Add(s.Winnings)
}

// Settle decides a wager's terminal status and credits. A wager with nothing
// matched is unmatched regardless of the outcome and gets its full stake back;
// otherwise the matched stake either pays out (side == outcome) or is
// forfeited, and any unmatched remainder is refunded either way.
func (w *Wager) Settle(outcome Side, feeRate decimal.Decimal) Settlement {
	s := Settlement{Refund: w.Remaining()}
	switch {
	case w.MatchedStake.IsZero():
		s.FinalStatus = WagerUnmatched
	case w.Side == outcome:
		s.FinalStatus = WagerWon
		s.Winnings = w.PayoutIfWon(feeRate)
	default:
		s.FinalStatus = WagerLost
	}
	return s
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceWagerRequest — value object used by WagerService
// ──────────────────────────────────────────────────────────────────────────────

// PlaceWagerRequest carries the validated inputs for placing a wager.
type PlaceWagerRequest struct {
	BettorID   uuid.UUID
	QuestionID uuid.UUID
	Side       Side
	Stake      decimal.Decimal
}
