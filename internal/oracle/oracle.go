// Package oracle adapts the external truth feed that decides question
// outcomes. The service never guesses an outcome: everything flows from the
// feed's answers, and an unreachable or undecided feed surfaces as a typed
// error the resolution worker retries on.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/streambet/streambet/internal/config"
	"github.com/streambet/streambet/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Verdict
// ──────────────────────────────────────────────────────────────────────────────

// Verdict is the truth feed's answer for one condition over one time window.
type Verdict string

const (
	VerdictYes     Verdict = "yes"
	VerdictNo      Verdict = "no"
	VerdictPending Verdict = "pending"
)

// Side converts a decided verdict into the winning side. Only call after
// checking the verdict is not pending.
func (v Verdict) Side() domain.Side {
	if v == VerdictYes {
		return domain.SideYes
	}
	return domain.SideNo
}

// ──────────────────────────────────────────────────────────────────────────────
// Client
// ──────────────────────────────────────────────────────────────────────────────

// StreamSnapshot is the feed's current view of one stream: the eligible
// subject (or the "none" sentinel) and the live counter tied to it. The
// scheduler bakes the counter baseline into a new question's condition.
type StreamSnapshot struct {
	Subject string `json:"subject"`
	Count   int64  `json:"count"`
}

// Client talks to the truth feed's REST API. Subject lookups are cached
// briefly because the scheduler polls them every round; truth lookups are
// never cached — a stale verdict could settle a question wrongly.
type Client struct {
	client *http.Client
	cfg    *config.OracleConfig

	// per-stream snapshot cache
	mu        sync.RWMutex
	snapshots map[string]cachedSnapshot

	// last-success timestamp (for the health endpoint)
	statusMu    sync.RWMutex
	lastSuccess time.Time
}

type cachedSnapshot struct {
	snap      StreamSnapshot
	fetchedAt time.Time
}

// NewClient constructs a truth-feed client from the given config.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		client:    &http.Client{Timeout: cfg.Oracle.FetchTimeout},
		cfg:       &cfg.Oracle,
		snapshots: make(map[string]cachedSnapshot),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Public API
// ──────────────────────────────────────────────────────────────────────────────

// Snapshot returns the stream's current eligible subject and live counter, or
// domain.ErrNoSubject when the feed reports the "none" sentinel. Results are
// cached for CacheTTL so a burst of scheduler ticks does not hammer the feed.
//
//	GET /api/v1/streams/{ref}/subject
//	{"subject":"challenger_42","count":7}   — eligible subject present
//	{"subject":"none","count":0}            — nothing to ask about right now
func (c *Client) Snapshot(ctx context.Context, streamRef string) (*StreamSnapshot, error) {
	c.mu.RLock()
	if cached, ok := c.snapshots[streamRef]; ok && time.Since(cached.fetchedAt) < c.cfg.CacheTTL {
		c.mu.RUnlock()
		snap := cached.snap
		if snap.Subject == domain.SubjectNone {
			return nil, domain.ErrNoSubject
		}
		return &snap, nil
	}
	c.mu.RUnlock()

	u := fmt.Sprintf("%s/api/v1/streams/%s/subject", c.cfg.BaseURL, url.PathEscape(streamRef))
	body, err := c.doGet(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("oracle.Snapshot: %w: %v", domain.ErrOracleUnavailable, err)
	}

	var snap StreamSnapshot
	if err = json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("oracle.Snapshot parse: %w", err)
	}
	if snap.Subject == "" {
		return nil, fmt.Errorf("oracle.Snapshot: empty subject field")
	}

	c.mu.Lock()
	c.snapshots[streamRef] = cachedSnapshot{snap: snap, fetchedAt: time.Now()}
	c.mu.Unlock()
	c.markSuccess()

	if snap.Subject == domain.SubjectNone {
		return nil, domain.ErrNoSubject
	}
	return &snap, nil
}

// Subject is a convenience wrapper around Snapshot for callers that only need
// the subject name.
func (c *Client) Subject(ctx context.Context, streamRef string) (string, error) {
	snap, err := c.Snapshot(ctx, streamRef)
	if err != nil {
		return "", err
	}
	return snap.Subject, nil
}

// GroundTruth asks the feed whether the condition held for the subject within
// the question's time window.
//
//	GET /api/v1/truth?subject=X&condition=Y&from=RFC3339&to=RFC3339
//	{"verdict":"yes"|"no"|"pending"}
//
// Returns ErrOraclePending while the feed has not decided and
// ErrOracleUnavailable on transport or protocol failures. Callers retry;
// the verdict is never synthesised locally.
func (c *Client) GroundTruth(ctx context.Context, subject, condition string, windowStart, windowEnd time.Time) (Verdict, error) {
	q := url.Values{}
	q.Set("subject", subject)
	q.Set("condition", condition)
	q.Set("from", windowStart.UTC().Format(time.RFC3339))
	q.Set("to", windowEnd.UTC().Format(time.RFC3339))

	u := fmt.Sprintf("%s/api/v1/truth?%s", c.cfg.BaseURL, q.Encode())
	body, err := c.doGet(ctx, u)
	if err != nil {
		return "", fmt.Errorf("oracle.GroundTruth: %w: %v", domain.ErrOracleUnavailable, err)
	}

	var resp struct {
		Verdict Verdict `json:"verdict"`
	}
	if err = json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("oracle.GroundTruth parse: %w", err)
	}

	switch resp.Verdict {
	case VerdictYes, VerdictNo:
		c.markSuccess()
		return resp.Verdict, nil
	case VerdictPending:
		c.markSuccess()
		return VerdictPending, domain.ErrOraclePending
	default:
		return "", fmt.Errorf("oracle.GroundTruth: unknown verdict %q", resp.Verdict)
	}
}

// Healthy reports whether the feed answered successfully within the last
// 30 seconds. Used by the health endpoint.
func (c *Client) Healthy() bool {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return !c.lastSuccess.IsZero() && time.Since(c.lastSuccess) < 30*time.Second
}

// ──────────────────────────────────────────────────────────────────────────────
// HTTP helper
// ──────────────────────────────────────────────────────────────────────────────

func (c *Client) markSuccess() {
	c.statusMu.Lock()
	c.lastSuccess = time.Now()
	c.statusMu.Unlock()
}

// doGet performs an HTTP GET with the client's timeout and returns the body
// bytes, or an error for any non-200 status code.
func (c *Client) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "streambet/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
