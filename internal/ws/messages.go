// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs pushed to connected clients.
package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/streambet/streambet/internal/domain"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeQuestionOpened   MsgType = "question_opened"
	MsgTypeOddsUpdated      MsgType = "odds_updated"
	MsgTypeQuestionResolved MsgType = "question_resolved"
	MsgTypeWalletChanged    MsgType = "wallet_changed"
	MsgTypeError            MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// QuestionOpenedMessage — broadcast when a new betting round opens.
// ──────────────────────────────────────────────────────────────────────────────

// QuestionOpenedMessage carries the identity and countdown of a fresh round.
type QuestionOpenedMessage struct {
	Type       MsgType   `json:"type"`
	QuestionID uuid.UUID `json:"question_id"`
	StreamRef  string    `json:"stream_ref"`
	PromptText string    `json:"prompt_text"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Timestamp  time.Time `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// OddsUpdatedMessage — broadcast after every accepted wager.
// ──────────────────────────────────────────────────────────────────────────────

// OddsUpdatedMessage notifies all clients that the crowd split has changed.
// The percentages always sum to 100.
type OddsUpdatedMessage struct {
	Type      MsgType                `json:"type"`
	Summary   domain.QuestionSummary `json:"summary"`
	Timestamp time.Time              `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// QuestionResolvedMessage — broadcast when a round finishes.
// ──────────────────────────────────────────────────────────────────────────────

// QuestionResolvedMessage tells clients which side won. Outcome is null for
// rounds that expired with zero wagers.
type QuestionResolvedMessage struct {
	Type       MsgType      `json:"type"`
	QuestionID uuid.UUID    `json:"question_id"`
	Outcome    *domain.Side `json:"outcome"`
	Timestamp  time.Time    `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// WalletChangedMessage — sent only to the affected bettor's connections.
// ──────────────────────────────────────────────────────────────────────────────

// WalletChangedMessage carries the bettor's new balance after a debit or
// credit. Amounts travel as strings so clients never touch binary floats.
type WalletChangedMessage struct {
	Type       MsgType   `json:"type"`
	BettorID   uuid.UUID `json:"bettor_id"`
	NewBalance string    `json:"new_balance"`
	Delta      string    `json:"delta"`
	Timestamp  time.Time `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage — sent to a single client on a non-fatal error.
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
