package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Wallet
// ──────────────────────────────────────────────────────────────────────────────

// Wallet holds one bettor's balance. It is debited only at wager placement and
// credited only by the settlement worker; no request handler touches it
// directly.
type Wallet struct {
	BettorID  uuid.UUID       `json:"bettor_id"  db:"bettor_id"`
	Balance   decimal.Decimal `json:"balance"    db:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Transaction
// ──────────────────────────────────────────────────────────────────────────────

// TxKind enumerates ledger entry kinds.
type TxKind string

const (
	TxPlace  TxKind = "place"  // stake debit at wager placement (negative amount)
	TxRefund TxKind = "refund" // unmatched stake returned at settlement
	TxWin    TxKind = "win"    // winnings credit at settlement
)

// Transaction is an immutable, append-only ledger entry: exactly one row per
// balance-affecting event. Amount is signed (place entries are negative).
// The sequence of BalanceAfter values reconstructs the balance history.
type Transaction struct {
	ID           uuid.UUID       `json:"id"            db:"id"`
	BettorID     uuid.UUID       `json:"bettor_id"     db:"bettor_id"`
	Kind         TxKind          `json:"kind"          db:"kind"`
	Amount       decimal.Decimal `json:"amount"        db:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after" db:"balance_after"`
	WagerRef     *uuid.UUID      `json:"wager_ref"     db:"wager_ref"`
	QuestionRef  *uuid.UUID      `json:"question_ref"  db:"question_ref"`
	Description  string          `json:"description"   db:"description"`
	CreatedAt    time.Time       `json:"created_at"    db:"created_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// PeriodStats
// ──────────────────────────────────────────────────────────────────────────────

// PeriodStats is a denormalized aggregate over one reporting period, rebuilt
// opportunistically by the stats worker. Wager and Transaction rows remain the
// authoritative record.
type PeriodStats struct {
	PeriodStart      time.Time       `json:"period_start"       db:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"         db:"period_end"`
	TotalStakeVolume decimal.Decimal `json:"total_stake_volume" db:"total_stake_volume"`
	LargestWin       decimal.Decimal `json:"largest_win"        db:"largest_win"`
	TotalBackers     int             `json:"total_backers"      db:"total_backers"`
	ActiveBackers    int             `json:"active_backers"     db:"active_backers"`
	RebuiltAt        time.Time       `json:"rebuilt_at"         db:"rebuilt_at"`
}
