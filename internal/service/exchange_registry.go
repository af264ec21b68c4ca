package service

import (
	"context"
	"sync"
	"time"

	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports"

	"github.com/rs/zerolog"
)

// ScannerFactory returns the scanner a new payee machine should use.
type ScannerFactory func(payeeID string) ports.Scanner

// ExchangeRegistry implements ports.ExchangeService with one machine per payee.
type ExchangeRegistry struct {
	settlement     ports.SettlementService
	newScanner     ScannerFactory
	captureTimeout time.Duration
	log            zerolog.Logger

	mu       sync.Mutex
	machines map[string]*ExchangeMachine
}

// NewExchangeRegistry creates an empty registry.
func NewExchangeRegistry(settlement ports.SettlementService, newScanner ScannerFactory, captureTimeout time.Duration, log zerolog.Logger) *ExchangeRegistry {
	return &ExchangeRegistry{
		settlement:     settlement,
		newScanner:     newScanner,
		captureTimeout: captureTimeout,
		log:            log,
		machines:       make(map[string]*ExchangeMachine),
	}
}

// Machine returns the payee's machine, creating it on first use.
func (r *ExchangeRegistry) Machine(payeeID string) *ExchangeMachine {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[payeeID]
	if !ok {
		m = NewExchangeMachine(payeeID, r.newScanner(payeeID), r.settlement, r.captureTimeout, r.log)
		r.machines[payeeID] = m
	}
	return m
}

func (r *ExchangeRegistry) Snapshot(payeeID string) domain.ExchangeSnapshot {
	return r.Machine(payeeID).Snapshot()
}

func (r *ExchangeRegistry) StartScan(ctx context.Context, payeeID string) (domain.ExchangeSnapshot, error) {
	return r.Machine(payeeID).StartScan(ctx)
}

func (r *ExchangeRegistry) Offer(payeeID string, rawToken string) error {
	return r.Machine(payeeID).Offer(rawToken)
}

func (r *ExchangeRegistry) OpenConfirm(payeeID string) (domain.ExchangeSnapshot, error) {
	return r.Machine(payeeID).OpenConfirm()
}

func (r *ExchangeRegistry) CloseConfirm(payeeID string) (domain.ExchangeSnapshot, error) {
	return r.Machine(payeeID).CloseConfirm()
}

func (r *ExchangeRegistry) Confirm(ctx context.Context, payeeID string, amountText string) (domain.ExchangeSnapshot, error) {
	return r.Machine(payeeID).Confirm(ctx, amountText)
}

func (r *ExchangeRegistry) Cancel(payeeID string) (domain.ExchangeSnapshot, error) {
	return r.Machine(payeeID).Cancel()
}

// CloseAll stops every running capture.
func (r *ExchangeRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.machines {
		m.Close()
	}
}
