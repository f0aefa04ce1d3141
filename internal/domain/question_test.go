package domain_test

import (
	"testing"
	"time"

	"github.com/streambet/streambet/internal/domain"
)

// ── Crowd percentages ─────────────────────────────────────────────────────────

func TestSplitPercentages_ComplementAlwaysSums100(t *testing.T) {
	cases := []struct {
		yes, no int
	}{
		{0, 0}, {1, 0}, {0, 1}, {1, 1}, {1, 2}, {2, 1},
		{1, 3}, {3, 7}, {33, 67}, {500, 1}, {1, 500},
	}
	for _, tc := range cases {
		yesPct, noPct := domain.SplitPercentages(tc.yes, tc.no)
		if yesPct+noPct != 100 {
			t.Errorf("SplitPercentages(%d, %d) = %d + %d, want sum 100",
				tc.yes, tc.no, yesPct, noPct)
		}
	}
}

func TestSplitPercentages_EmptyQuestionIsFiftyFifty(t *testing.T) {
	yesPct, noPct := domain.SplitPercentages(0, 0)
	if yesPct != 50 || noPct != 50 {
		t.Errorf("empty question split = %d/%d, want 50/50", yesPct, noPct)
	}
}

func TestSplitPercentages_YesRoundedNoDerived(t *testing.T) {
	// 1 of 3 backers on Yes: 33.33% rounds to 33, No is the complement 67 —
	// never independently rounded to 33+33 or 34+67.
	yesPct, noPct := domain.SplitPercentages(1, 2)
	if yesPct != 33 || noPct != 67 {
		t.Errorf("split(1,2) = %d/%d, want 33/67", yesPct, noPct)
	}

	yesPct, noPct = domain.SplitPercentages(2, 1)
	if yesPct != 67 || noPct != 33 {
		t.Errorf("split(2,1) = %d/%d, want 67/33", yesPct, noPct)
	}
}

// ── Placement gate ────────────────────────────────────────────────────────────

func TestQuestion_AcceptsWagers(t *testing.T) {
	now := time.Now().UTC()
	q := &domain.Question{
		Status:    domain.QuestionActive,
		StartTime: now.Add(-10 * time.Second),
		EndTime:   now.Add(20 * time.Second),
	}

	if !q.AcceptsWagers(now) {
		t.Error("active question inside the countdown should accept wagers")
	}
	if q.AcceptsWagers(q.EndTime) {
		t.Error("question must not accept wagers at endTime")
	}
	if q.AcceptsWagers(q.EndTime.Add(time.Second)) {
		t.Error("question must not accept wagers after endTime")
	}

	q.Status = domain.QuestionResolved
	if q.AcceptsWagers(now) {
		t.Error("resolved question must not accept wagers even before endTime")
	}
}

// A round nobody bet on expires: outcome stays null and the question never
// qualifies for settlement (which requires a resolved status and an outcome),
// so a zero-wager round moves no money.
func TestQuestion_ExpiredRoundHasNoOutcomeAndNeverSettles(t *testing.T) {
	now := time.Now().UTC()
	q := &domain.Question{
		Status:    domain.QuestionExpired,
		Outcome:   nil,
		StartTime: now.Add(-40 * time.Second),
		EndTime:   now.Add(-7 * time.Second),
	}

	if q.IsActive() {
		t.Error("expired question must not be active")
	}
	if q.IsResolved() {
		t.Error("expired is a terminal state distinct from resolved")
	}
	if q.Outcome != nil {
		t.Errorf("expired question outcome = %v, want nil", *q.Outcome)
	}
	if q.AcceptsWagers(now) {
		t.Error("expired question must not accept wagers")
	}
}

func TestSide_Opposite(t *testing.T) {
	if domain.SideYes.Opposite() != domain.SideNo {
		t.Error("opposite of Yes should be No")
	}
	if domain.SideNo.Opposite() != domain.SideYes {
		t.Error("opposite of No should be Yes")
	}
}

func TestSide_IsValid(t *testing.T) {
	if !domain.SideYes.IsValid() || !domain.SideNo.IsValid() {
		t.Error("Yes and No should be valid sides")
	}
	if domain.Side("maybe").IsValid() {
		t.Error("arbitrary string should not be a valid side")
	}
}
