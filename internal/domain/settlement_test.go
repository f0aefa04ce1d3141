package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/streambet/streambet/internal/domain"
)

// The canonical partially-matched round: A backs Yes with 100, B backs No
// with 60, so 60 matches on each side and A keeps 40 unmatched.
func partiallyMatchedRound() (a, b *domain.Wager) {
	t0 := time.Now().UTC()
	a = newWager(domain.SideYes, 100, t0)
	b = newWager(domain.SideNo, 60, t0.Add(time.Second))
	domain.MatchIncoming(b, []*domain.Wager{a})
	return a, b
}

func TestSettle_WinnerWithPartialMatch(t *testing.T) {
	a, _ := partiallyMatchedRound()

	s := a.Settle(domain.SideYes, domain.DefaultFeeRate)

	if s.FinalStatus != domain.WagerWon {
		t.Errorf("final status = %s, want won", s.FinalStatus)
	}
	// Unmatched remainder back in full, fee-free.
	if !s.Refund.Equal(decimal.NewFromInt(40)) {
		t.Errorf("refund = %s, want 40", s.Refund)
	}
	// 60 × 2 × 0.95 = 114
	if !s.Winnings.Equal(decimal.NewFromInt(114)) {
		t.Errorf("winnings = %s, want 114", s.Winnings)
	}
	if !s.TotalCredit().Equal(decimal.NewFromInt(154)) {
		t.Errorf("total credit = %s, want 154", s.TotalCredit())
	}
}

func TestSettle_LoserForfeitsMatchedStakeOnly(t *testing.T) {
	a, b := partiallyMatchedRound()

	// Outcome No: A loses its matched 60 but still gets the 40 remainder back.
	sa := a.Settle(domain.SideNo, domain.DefaultFeeRate)
	if sa.FinalStatus != domain.WagerLost {
		t.Errorf("A final status = %s, want lost", sa.FinalStatus)
	}
	if !sa.Refund.Equal(decimal.NewFromInt(40)) {
		t.Errorf("A refund = %s, want 40", sa.Refund)
	}
	if !sa.Winnings.IsZero() {
		t.Errorf("A winnings = %s, want 0", sa.Winnings)
	}

	// B is fully matched: nothing to refund, winnings on all 60.
	sb := b.Settle(domain.SideNo, domain.DefaultFeeRate)
	if sb.FinalStatus != domain.WagerWon {
		t.Errorf("B final status = %s, want won", sb.FinalStatus)
	}
	if !sb.Refund.IsZero() {
		t.Errorf("B refund = %s, want 0", sb.Refund)
	}
	if !sb.Winnings.Equal(decimal.NewFromInt(114)) {
		t.Errorf("B winnings = %s, want 114", sb.Winnings)
	}
}

func TestSettle_FullyMatchedLoserGetsNothing(t *testing.T) {
	_, b := partiallyMatchedRound()

	s := b.Settle(domain.SideYes, domain.DefaultFeeRate)
	if s.FinalStatus != domain.WagerLost {
		t.Errorf("final status = %s, want lost", s.FinalStatus)
	}
	if !s.TotalCredit().IsZero() {
		t.Errorf("total credit = %s, want 0", s.TotalCredit())
	}
}

// A wager nothing ever matched is unmatched regardless of the outcome: the
// full stake comes back and no winnings are owed, even on the winning side.
func TestSettle_UnmatchedIsFullRefundEitherWay(t *testing.T) {
	for _, outcome := range []domain.Side{domain.SideYes, domain.SideNo} {
		w := newWager(domain.SideYes, 100, time.Now().UTC())
		s := w.Settle(outcome, domain.DefaultFeeRate)

		if s.FinalStatus != domain.WagerUnmatched {
			t.Errorf("outcome %s: final status = %s, want unmatched", outcome, s.FinalStatus)
		}
		if !s.Refund.Equal(decimal.NewFromInt(100)) {
			t.Errorf("outcome %s: refund = %s, want 100", outcome, s.Refund)
		}
		if !s.Winnings.IsZero() {
			t.Errorf("outcome %s: winnings = %s, want 0", outcome, s.Winnings)
		}
	}
}

// TestSettle_RoundConservation checks the round-level money invariant: across
// all wagers, total credits = total refunds + matchedPool × 2 × (1−fee), so
// the platform keeps exactly matchedPool × 2 × fee.
func TestSettle_RoundConservation(t *testing.T) {
	a, b := partiallyMatchedRound()
	totalIn := a.Stake.Add(b.Stake) // 160

	credits := decimal.Zero
	for _, w := range []*domain.Wager{a, b} {
		credits = credits.Add(w.Settle(domain.SideYes, domain.DefaultFeeRate).TotalCredit())
	}

	// 40 refund + 114 winnings = 154; the house keeps 6 = 5% of the 120 pool.
	if !credits.Equal(decimal.NewFromInt(154)) {
		t.Errorf("total credits = %s, want 154", credits)
	}
	feeKept := totalIn.Sub(credits)
	matchedPool := a.MatchedStake.Mul(decimal.NewFromInt(2))
	wantFee := matchedPool.Mul(domain.DefaultFeeRate)
	if !feeKept.Equal(wantFee) {
		t.Errorf("fee kept = %s, want %s", feeKept, wantFee)
	}
}
