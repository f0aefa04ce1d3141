package domain

import "github.com/shopspring/decimal"

// ──────────────────────────────────────────────────────────────────────────────
// Price-less FIFO matching
// ──────────────────────────────────────────────────────────────────────────────

// Fill records one unit of matching between an incoming wager and a resting
// opposite-side wager.
type Fill struct {
	Resting *Wager
	Amount  decimal.Decimal
}

// MatchIncoming pairs the incoming wager's open stake against the resting
// opposite-side wagers, oldest first. This is a stake-for-stake market — there
// is no price, so FIFO on placement time is the only priority rule.
//
// Both the incoming wager and every touched resting wager have their
// MatchedStake and Status mutated in place; the caller persists them in the
// same transaction that loaded the resting slice under a row lock. Returns one
// Fill per touched resting wager, in match order.
//
// The resting slice must already be filtered to open wagers of the opposite
// side, ordered by PlacedAt ascending.
func MatchIncoming(incoming *Wager, resting []*Wager) []Fill {
	var fills []Fill
	remaining := incoming.Remaining()

	for _, r := range resting {
		if !remaining.IsPositive() {
			break
		}
		available := r.Remaining()
		if !available.IsPositive() {
			continue
		}

		take := decimal.Min(remaining, available)
		r.MatchedStake = r.MatchedStake.Add(take)
		r.Status = r.DeriveStatus()
		incoming.MatchedStake = incoming.MatchedStake.Add(take)
		remaining = remaining.Sub(take)

		fills = append(fills, Fill{Resting: r, Amount: take})
	}

	// An unmatched remainder is not an error: it rests as pending or
	// partially_matched until resolution refunds it.
	incoming.Status = incoming.DeriveStatus()
	return fills
}
