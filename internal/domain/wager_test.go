package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/streambet/streambet/internal/domain"
)

func TestPayoutIfWon(t *testing.T) {
	tests := []struct {
		name    string
		matched string
		fee     string
		want    string
	}{
		{"sixty at five percent", "60", "0.05", "114"},
		{"full hundred", "100", "0.05", "190"},
		{"zero matched pays nothing", "0", "0.05", "0"},
		{"fractional stake floors to 4dp", "0.3333", "0.05", "0.6332"},
		{"no fee doubles the stake", "25", "0", "50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &domain.Wager{MatchedStake: decimal.RequireFromString(tt.matched)}
			got := w.PayoutIfWon(decimal.RequireFromString(tt.fee))
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("PayoutIfWon(%s, fee %s) = %s, want %s",
					tt.matched, tt.fee, got, tt.want)
			}
		})
	}
}

func TestPayoutIfWon_NeverExceedsGrossReturn(t *testing.T) {
	w := &domain.Wager{MatchedStake: decimal.RequireFromString("123.4567")}
	gross := w.MatchedStake.Mul(decimal.NewFromInt(2))
	payout := w.PayoutIfWon(domain.DefaultFeeRate)
	if payout.GreaterThanOrEqual(gross) {
		t.Errorf("payout %s should be strictly below gross %s with a positive fee",
			payout, gross)
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name    string
		stake   string
		matched string
		want    domain.WagerStatus
	}{
		{"nothing matched", "100", "0", domain.WagerPending},
		{"partially matched", "100", "60", domain.WagerPartial},
		{"fully matched", "100", "100", domain.WagerMatched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &domain.Wager{
				Stake:        decimal.RequireFromString(tt.stake),
				MatchedStake: decimal.RequireFromString(tt.matched),
			}
			if got := w.DeriveStatus(); got != tt.want {
				t.Errorf("DeriveStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRemaining(t *testing.T) {
	w := &domain.Wager{
		Stake:        decimal.NewFromInt(100),
		MatchedStake: decimal.NewFromInt(37),
	}
	if got := w.Remaining(); !got.Equal(decimal.NewFromInt(63)) {
		t.Errorf("Remaining() = %s, want 63", got)
	}
}

func TestIsOpen(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name    string
		status  domain.WagerStatus
		settled bool
		want    bool
	}{
		{"pending is open", domain.WagerPending, false, true},
		{"partial is open", domain.WagerPartial, false, true},
		{"fully matched is closed", domain.WagerMatched, false, false},
		{"settled pending is closed", domain.WagerPending, true, false},
		{"won is closed", domain.WagerWon, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &domain.Wager{
				Stake:    decimal.NewFromInt(10),
				Status:   tt.status,
				Settled:  tt.settled,
				PlacedAt: now,
			}
			if got := w.IsOpen(); got != tt.want {
				t.Errorf("IsOpen() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRefreshPotentialPayout(t *testing.T) {
	w := &domain.Wager{
		Stake:        decimal.NewFromInt(100),
		MatchedStake: decimal.NewFromInt(60),
	}
	w.RefreshPotentialPayout(domain.DefaultFeeRate)
	if !w.PotentialPayout.Equal(decimal.NewFromInt(114)) {
		t.Errorf("PotentialPayout = %s, want 114", w.PotentialPayout)
	}
}
