package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports"
	"fuel-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// offerer is implemented by scanners fed from an external capture callback.
type offerer interface {
	Offer(raw string) error
}

// resetter is implemented by scanners that can hold stale captures.
type resetter interface {
	Reset()
}

type captureAttempt struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// ExchangeMachine drives one payee through scan, review, confirm and settle.
// All transitions are serialized by mu; the scanner and the settlement call
// run without holding it.
type ExchangeMachine struct {
	payeeID        string
	scanner        ports.Scanner
	settlement     ports.SettlementService
	captureTimeout time.Duration
	log            zerolog.Logger
	now            func() time.Time

	mu      sync.Mutex
	phase   domain.ExchangePhase
	session *domain.ExchangeSession
	outcome *domain.ExchangeOutcome
	capture *captureAttempt
}

// NewExchangeMachine creates an idle machine for payeeID.
func NewExchangeMachine(
	payeeID string,
	scanner ports.Scanner,
	settlement ports.SettlementService,
	captureTimeout time.Duration,
	log zerolog.Logger,
) *ExchangeMachine {
	return &ExchangeMachine{
		payeeID:        payeeID,
		scanner:        scanner,
		settlement:     settlement,
		captureTimeout: captureTimeout,
		log:            log.With().Str("payee_id", payeeID).Logger(),
		now:            time.Now,
		phase:          domain.PhaseIdle,
	}
}

// Snapshot returns a copy of the machine state.
func (m *ExchangeMachine) Snapshot() domain.ExchangeSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// StartScan moves Idle to Capturing and starts the scanner in the background.
// The attempt ends on a capture, on timeout, or on Cancel.
func (m *ExchangeMachine) StartScan(ctx context.Context) (domain.ExchangeSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != domain.PhaseIdle {
		return m.snapshotLocked(), apperror.ErrInvalidTransition(string(m.phase), "start scan")
	}

	if r, ok := m.scanner.(resetter); ok {
		r.Reset()
	}

	capCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.captureTimeout)
	attempt := &captureAttempt{cancel: cancel, done: make(chan struct{})}

	m.phase = domain.PhaseCapturing
	m.session = &domain.ExchangeSession{
		ID:        uuid.New(),
		Phase:     domain.PhaseCapturing,
		StartedAt: m.now().UTC(),
	}
	m.outcome = nil
	m.capture = attempt

	go m.runCapture(capCtx, attempt)

	m.log.Debug().Str("session_id", m.session.ID.String()).Msg("scan started")
	return m.snapshotLocked(), nil
}

// Offer feeds a captured code to a scanner that accepts callbacks.
func (m *ExchangeMachine) Offer(raw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != domain.PhaseCapturing {
		return apperror.ErrInvalidTransition(string(m.phase), "capture")
	}
	o, ok := m.scanner.(offerer)
	if !ok {
		return apperror.ErrInvalidTransition(string(m.phase), "capture")
	}
	if err := o.Offer(raw); err != nil {
		if errors.Is(err, errScannerBusy) {
			return apperror.ErrInvalidTransition(string(m.phase), "capture")
		}
		return apperror.ErrCaptureFailed(err)
	}
	return nil
}

// AwaitCapture blocks until the running capture attempt, if any, finishes.
func (m *ExchangeMachine) AwaitCapture(ctx context.Context) error {
	m.mu.Lock()
	attempt := m.capture
	m.mu.Unlock()

	if attempt == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-attempt.done:
		return nil
	}
}

func (m *ExchangeMachine) runCapture(ctx context.Context, attempt *captureAttempt) {
	defer close(attempt.done)
	defer attempt.cancel()

	raw, err := m.scanner.Capture(ctx)
	var tok *domain.PaymentToken
	if err == nil {
		tok, err = m.settlement.Preview(ctx, raw)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Cancelled or replaced while capturing.
	if m.capture != attempt {
		return
	}
	m.capture = nil

	switch {
	case err == nil:
		m.phase = domain.PhaseResolved
		m.session.Phase = domain.PhaseResolved
		m.session.RawToken = raw
		m.session.Token = tok
		m.log.Info().
			Str("session_id", m.session.ID.String()).
			Str("account_id", tok.AccountID).
			Msg("payment code resolved")
	case errors.Is(err, context.DeadlineExceeded):
		m.resetLocked()
		m.setOutcomeLocked(domain.OutcomeCaptureTimeout, apperror.ErrCaptureTimeout(), nil)
		m.log.Info().Msg("scan timed out")
	default:
		if apperror.Code(err) == "" {
			err = apperror.ErrCaptureFailed(err)
		}
		m.resetLocked()
		m.setOutcomeLocked(domain.OutcomeRejected, err, nil)
		m.log.Info().Err(err).Msg("scanned code rejected")
	}
}

// OpenConfirm moves Resolved to AwaitingConfirmation.
func (m *ExchangeMachine) OpenConfirm() (domain.ExchangeSnapshot, error) {
	return m.move(domain.PhaseResolved, domain.PhaseAwaitingConfirmation, "review")
}

// CloseConfirm moves AwaitingConfirmation back to Resolved.
func (m *ExchangeMachine) CloseConfirm() (domain.ExchangeSnapshot, error) {
	return m.move(domain.PhaseAwaitingConfirmation, domain.PhaseResolved, "go back")
}

func (m *ExchangeMachine) move(from, to domain.ExchangePhase, action string) (domain.ExchangeSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != from {
		return m.snapshotLocked(), apperror.ErrInvalidTransition(string(m.phase), action)
	}
	m.phase = to
	m.session.Phase = to
	return m.snapshotLocked(), nil
}

// Confirm settles the resolved token for amountText. On success the session
// is discarded. On failure the machine returns to AwaitingConfirmation, or
// to Idle when the token itself can never settle.
func (m *ExchangeMachine) Confirm(ctx context.Context, amountText string) (domain.ExchangeSnapshot, error) {
	m.mu.Lock()
	if m.phase != domain.PhaseAwaitingConfirmation {
		defer m.mu.Unlock()
		return m.snapshotLocked(), apperror.ErrInvalidTransition(string(m.phase), "confirm")
	}

	amount, err := domain.ParseAmount(amountText)
	if err != nil || amount <= 0 {
		defer m.mu.Unlock()
		appErr := apperror.ErrInvalidAmount()
		m.setOutcomeLocked(domain.OutcomeRejected, appErr, nil)
		return m.snapshotLocked(), appErr
	}

	m.phase = domain.PhaseSettling
	m.session.Phase = domain.PhaseSettling
	m.session.ProposedAmount = amount
	req := ports.SettleRequest{
		RawToken:       m.session.RawToken,
		Amount:         amount,
		IdempotencyKey: m.session.ID.String(),
		PayeeID:        m.payeeID,
	}
	m.mu.Unlock()

	result, err := m.settlement.Settle(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		m.resetLocked()
		m.setOutcomeLocked(domain.OutcomeSettled, nil, result)
		return m.snapshotLocked(), nil
	}

	if apperror.Code(err) == "" {
		err = apperror.InternalError(err)
	}
	switch apperror.Code(err) {
	case apperror.CodeUnknownAccount, apperror.CodeMalformedToken, apperror.CodeSupersededToken:
		m.resetLocked()
	default:
		m.phase = domain.PhaseAwaitingConfirmation
		m.session.Phase = domain.PhaseAwaitingConfirmation
	}
	m.setOutcomeLocked(domain.OutcomeRejected, err, nil)
	m.log.Info().Err(err).Int64("amount", int64(amount)).Msg("settlement rejected")
	return m.snapshotLocked(), err
}

// Cancel abandons the session from Capturing, Resolved or
// AwaitingConfirmation without touching any ledger.
func (m *ExchangeMachine) Cancel() (domain.ExchangeSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.phase {
	case domain.PhaseCapturing:
		if m.capture != nil {
			m.capture.cancel()
			m.capture = nil
		}
	case domain.PhaseResolved, domain.PhaseAwaitingConfirmation:
	default:
		return m.snapshotLocked(), apperror.ErrInvalidTransition(string(m.phase), "cancel")
	}

	m.resetLocked()
	m.setOutcomeLocked(domain.OutcomeCancelled, nil, nil)
	return m.snapshotLocked(), nil
}

// Close cancels any running capture. Used on shutdown.
func (m *ExchangeMachine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.capture != nil {
		m.capture.cancel()
		m.capture = nil
		m.resetLocked()
	}
}

func (m *ExchangeMachine) resetLocked() {
	m.phase = domain.PhaseIdle
	m.session = nil
}

func (m *ExchangeMachine) setOutcomeLocked(kind domain.OutcomeKind, err error, result *domain.SettlementResult) {
	out := &domain.ExchangeOutcome{
		Kind:   kind,
		Result: result,
		At:     m.now().UTC(),
	}
	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr):
		out.ErrorCode = appErr.Code
		out.Message = appErr.Message
	case kind == domain.OutcomeSettled:
		out.Message = "Payment of " + result.Transaction.Amount.String() + " settled"
	case kind == domain.OutcomeCancelled:
		out.Message = "Payment cancelled"
	}
	m.outcome = out
}

func (m *ExchangeMachine) snapshotLocked() domain.ExchangeSnapshot {
	snap := domain.ExchangeSnapshot{
		Phase:   m.phase,
		Session: m.session.Clone(),
	}
	if m.outcome != nil {
		out := *m.outcome
		snap.LastOutcome = &out
	}
	return snap
}
