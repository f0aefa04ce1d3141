package service_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/streambet/streambet/internal/domain"
)

// TestConcurrentWalletDebit simulates 50 goroutines simultaneously debiting a
// fixed stake from a shared wallet balance — protected by a mutex.
// This test verifies our concurrency guard pattern compiles and passes -race.
//
// In the real WagerService, the DB row-level FOR UPDATE lock on the wallet
// provides this guarantee.  Here we replicate the same guard with sync
// primitives so the race detector can confirm the pattern is sound.
func TestConcurrentWalletDebit(t *testing.T) {
	const workers = 50
	const stakeEach = 10

	balance := decimal.NewFromInt(int64(workers * stakeEach)) // exact total
	var mu sync.Mutex
	var rejected int64 // debits past zero (none expected here)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			stake := decimal.NewFromInt(stakeEach)

			mu.Lock()
			defer mu.Unlock()

			if balance.LessThan(stake) {
				atomic.AddInt64(&rejected, 1)
				return
			}
			balance = balance.Sub(stake)
		}()
	}
	wg.Wait()

	if rejected > 0 {
		t.Errorf("expected 0 rejected debits, got %d", rejected)
	}
	// Balance should be exactly 0 after exactly 50 × 10 debits.
	if !balance.IsZero() {
		t.Errorf("final balance should be 0, got %s", balance)
	}
}

// TestConcurrentSettlementGuard verifies that the settled flag is flipped by
// exactly one of N concurrent settlement passes. In production the conditional
// UPDATE ... WHERE settled = false plays this role; losers see zero rows and
// write nothing to the wallet.
func TestConcurrentSettlementGuard(t *testing.T) {
	const workers = 20
	type wagerState struct {
		mu      sync.Mutex
		settled bool
	}

	var (
		w        wagerState
		credited int64
		skipped  int64
		wg       sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			w.mu.Lock()
			defer w.mu.Unlock()

			if w.settled {
				// Second+ pass: must not touch the wallet again
				atomic.AddInt64(&skipped, 1)
				return
			}
			w.settled = true
			atomic.AddInt64(&credited, 1)
		}()
	}
	wg.Wait()

	if credited != 1 {
		t.Errorf("exactly 1 pass should have settled the wager, got %d", credited)
	}
	if skipped != workers-1 {
		t.Errorf("expected %d skipped passes, got %d", workers-1, skipped)
	}
}

// TestFirstContactDebitProvisionsWallet models the placement path for a bettor
// with no wallet row yet: provisioning (insert-if-absent with the starting
// balance) runs before the funds check in the same critical section, so a
// first wager is judged against the starting balance instead of failing on a
// missing wallet. In production this is EnsureExists + Debit inside one
// transaction, with ON CONFLICT DO NOTHING granting the balance exactly once.
func TestFirstContactDebitProvisionsWallet(t *testing.T) {
	const workers = 20
	const stakeEach = 10
	startingBalance := decimal.NewFromInt(1000)

	var (
		mu       sync.Mutex
		wallet   *decimal.Decimal // nil until first contact
		grants   int64
		notFound int64
		rejected int64
		wg       sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			stake := decimal.NewFromInt(stakeEach)

			mu.Lock()
			defer mu.Unlock()

			// Provision first (insert-if-absent).
			if wallet == nil {
				b := startingBalance
				wallet = &b
				atomic.AddInt64(&grants, 1)
			}
			// Debit: a nil wallet here is the old missing-row rejection.
			if wallet == nil {
				atomic.AddInt64(&notFound, 1)
				return
			}
			if wallet.LessThan(stake) {
				atomic.AddInt64(&rejected, 1)
				return
			}
			*wallet = wallet.Sub(stake)
		}()
	}
	wg.Wait()

	if notFound > 0 {
		t.Errorf("first contact must never fail with a missing wallet, got %d", notFound)
	}
	if rejected > 0 {
		t.Errorf("expected 0 rejected debits against the starting balance, got %d", rejected)
	}
	if grants != 1 {
		t.Errorf("starting balance should be granted exactly once, got %d", grants)
	}
	want := startingBalance.Sub(decimal.NewFromInt(workers * stakeEach))
	if !wallet.Equal(want) {
		t.Errorf("final balance = %s, want %s", wallet, want)
	}
}

// TestConcurrentMatchingIsSerialized models the question-row lock: concurrent
// placements on the same question queue behind one mutex, so the FIFO book
// never double-consumes liquidity even when many wagers arrive at once.
func TestConcurrentMatchingIsSerialized(t *testing.T) {
	const workers = 25
	const stakeEach = 4

	resting := &domain.Wager{
		Side:         domain.SideYes,
		Stake:        decimal.NewFromInt(workers * stakeEach),
		MatchedStake: decimal.Zero,
		Status:       domain.WagerPending,
	}

	var mu sync.Mutex // stands in for SELECT ... FOR UPDATE on the question row
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			incoming := &domain.Wager{
				Side:         domain.SideNo,
				Stake:        decimal.NewFromInt(stakeEach),
				MatchedStake: decimal.Zero,
				Status:       domain.WagerPending,
			}

			mu.Lock()
			defer mu.Unlock()
			domain.MatchIncoming(incoming, []*domain.Wager{resting})

			if !incoming.MatchedStake.Equal(incoming.Stake) {
				t.Errorf("incoming should fully match, got %s of %s",
					incoming.MatchedStake, incoming.Stake)
			}
		}()
	}
	wg.Wait()

	if !resting.MatchedStake.Equal(resting.Stake) {
		t.Errorf("resting wager should be fully consumed, matched %s of %s",
			resting.MatchedStake, resting.Stake)
	}
	if resting.Status != domain.WagerMatched {
		t.Errorf("resting status = %s, want matched", resting.Status)
	}
}
