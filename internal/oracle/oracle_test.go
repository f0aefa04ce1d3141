package oracle_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streambet/streambet/internal/config"
	"github.com/streambet/streambet/internal/domain"
	"github.com/streambet/streambet/internal/oracle"
)

// ── Mock truth feed ───────────────────────────────────────────────────────────

func mockFeed(subject string, verdict string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/streams/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"subject": subject, "count": 7})
	})
	mux.HandleFunc("/api/v1/truth", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"verdict": verdict})
	})
	return mux
}

func buildOracleConfig(baseURL string, cacheTTL time.Duration) *config.Config {
	return &config.Config{
		Oracle: config.OracleConfig{
			BaseURL:      baseURL,
			FetchTimeout: 3 * time.Second,
			CacheTTL:     cacheTTL,
			RetryBase:    time.Millisecond,
			RetryMax:     10 * time.Millisecond,
		},
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestSubjectReturnsEligibleSubject(t *testing.T) {
	srv := httptest.NewServer(mockFeed("challenger_42", "pending"))
	defer srv.Close()

	c := oracle.NewClient(buildOracleConfig(srv.URL, time.Second))
	subject, err := c.Subject(context.Background(), "main")
	if err != nil {
		t.Fatalf("Subject returned error: %v", err)
	}
	if subject != "challenger_42" {
		t.Errorf("subject = %q, want %q", subject, "challenger_42")
	}
}

func TestSnapshotCarriesCounterBaseline(t *testing.T) {
	srv := httptest.NewServer(mockFeed("challenger_42", "pending"))
	defer srv.Close()

	c := oracle.NewClient(buildOracleConfig(srv.URL, time.Second))
	snap, err := c.Snapshot(context.Background(), "main")
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if snap.Count != 7 {
		t.Errorf("count = %d, want 7", snap.Count)
	}
}

func TestSubjectNoneMapsToErrNoSubject(t *testing.T) {
	srv := httptest.NewServer(mockFeed(domain.SubjectNone, "pending"))
	defer srv.Close()

	c := oracle.NewClient(buildOracleConfig(srv.URL, time.Second))
	_, err := c.Subject(context.Background(), "main")
	if !errors.Is(err, domain.ErrNoSubject) {
		t.Fatalf("err = %v, want ErrNoSubject", err)
	}
}

func TestSubjectIsCachedWithinTTL(t *testing.T) {
	var hits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/streams/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"subject": "challenger_42"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := oracle.NewClient(buildOracleConfig(srv.URL, time.Minute))
	for i := 0; i < 5; i++ {
		if _, err := c.Subject(context.Background(), "main"); err != nil {
			t.Fatalf("Subject call %d: %v", i, err)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("feed hit %d times, want 1 (cache miss only)", n)
	}
}

func TestGroundTruthDecidedVerdicts(t *testing.T) {
	for _, tc := range []struct {
		verdict string
		want    oracle.Verdict
		side    domain.Side
	}{
		{"yes", oracle.VerdictYes, domain.SideYes},
		{"no", oracle.VerdictNo, domain.SideNo},
	} {
		srv := httptest.NewServer(mockFeed("challenger_42", tc.verdict))
		c := oracle.NewClient(buildOracleConfig(srv.URL, time.Second))

		got, err := c.GroundTruth(context.Background(), "challenger_42", "count>3",
			time.Now().Add(-time.Minute), time.Now())
		srv.Close()
		if err != nil {
			t.Fatalf("verdict %q: unexpected error %v", tc.verdict, err)
		}
		if got != tc.want {
			t.Errorf("verdict = %q, want %q", got, tc.want)
		}
		if got.Side() != tc.side {
			t.Errorf("side = %q, want %q", got.Side(), tc.side)
		}
	}
}

func TestGroundTruthPendingMapsToErrOraclePending(t *testing.T) {
	srv := httptest.NewServer(mockFeed("challenger_42", "pending"))
	defer srv.Close()

	c := oracle.NewClient(buildOracleConfig(srv.URL, time.Second))
	v, err := c.GroundTruth(context.Background(), "challenger_42", "count>3",
		time.Now().Add(-time.Minute), time.Now())
	if !errors.Is(err, domain.ErrOraclePending) {
		t.Fatalf("err = %v, want ErrOraclePending", err)
	}
	if v != oracle.VerdictPending {
		t.Errorf("verdict = %q, want pending", v)
	}
}

func TestGroundTruthUnavailableFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := oracle.NewClient(buildOracleConfig(srv.URL, time.Second))
	_, err := c.GroundTruth(context.Background(), "challenger_42", "count>3",
		time.Now().Add(-time.Minute), time.Now())
	if !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Fatalf("err = %v, want ErrOracleUnavailable", err)
	}
	if c.Healthy() {
		t.Error("Healthy() = true after a failed fetch with no prior success")
	}
}

func TestGroundTruthRejectsUnknownVerdict(t *testing.T) {
	srv := httptest.NewServer(mockFeed("challenger_42", "maybe"))
	defer srv.Close()

	c := oracle.NewClient(buildOracleConfig(srv.URL, time.Second))
	_, err := c.GroundTruth(context.Background(), "challenger_42", "count>3",
		time.Now().Add(-time.Minute), time.Now())
	if err == nil {
		t.Fatal("expected error for unknown verdict, got nil")
	}
}
