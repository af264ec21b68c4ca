package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExchangePhase is the payee-side scan-to-settle state.
type ExchangePhase string

const (
	PhaseIdle                 ExchangePhase = "IDLE"
	PhaseCapturing            ExchangePhase = "CAPTURING"
	PhaseResolved             ExchangePhase = "RESOLVED"
	PhaseAwaitingConfirmation ExchangePhase = "AWAITING_CONFIRMATION"
	PhaseSettling             ExchangePhase = "SETTLING"
)

// ExchangeSession is the transient state of one scan-to-settle attempt.
type ExchangeSession struct {
	ID             uuid.UUID     `json:"id"`
	Phase          ExchangePhase `json:"phase"`
	RawToken       string        `json:"-"`
	Token          *PaymentToken `json:"token,omitempty"`
	ProposedAmount Amount        `json:"proposed_amount"`
	StartedAt      time.Time     `json:"started_at"`
}

// Clone copies the session so callers cannot mutate machine state.
func (s *ExchangeSession) Clone() *ExchangeSession {
	if s == nil {
		return nil
	}
	c := *s
	if s.Token != nil {
		tok := *s.Token
		c.Token = &tok
	}
	return &c
}

// OutcomeKind tells the payee UI what happened to the last attempt.
type OutcomeKind string

const (
	OutcomeSettled        OutcomeKind = "SETTLED"
	OutcomeCancelled      OutcomeKind = "CANCELLED"
	OutcomeCaptureTimeout OutcomeKind = "CAPTURE_TIMEOUT"
	OutcomeRejected       OutcomeKind = "REJECTED"
)

// ExchangeOutcome is the user-visible result surfaced after a transition.
type ExchangeOutcome struct {
	Kind      OutcomeKind       `json:"kind"`
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Result    *SettlementResult `json:"result,omitempty"`
	At        time.Time         `json:"at"`
}

// ExchangeSnapshot is a read-only view of a payee's machine.
type ExchangeSnapshot struct {
	Phase       ExchangePhase    `json:"phase"`
	Session     *ExchangeSession `json:"session,omitempty"`
	LastOutcome *ExchangeOutcome `json:"last_outcome,omitempty"`
}

// SettlementResult is returned by a successful settlement.
type SettlementResult struct {
	Transaction    Transaction `json:"transaction"`
	Balance        Amount      `json:"balance"`
	PayeeID        string      `json:"payee_id"`
	IdempotencyKey string      `json:"idempotency_key,omitempty"`
}
