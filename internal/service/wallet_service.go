package service

import (
	"context"

	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports"
	"fuel-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	defaultHistoryLimit = 5
	maxHistoryLimit     = 100
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	accounts  *AccountRegistry
	publisher ports.EventPublisher
	log       zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(accounts *AccountRegistry, publisher ports.EventPublisher, log zerolog.Logger) *WalletServiceImpl {
	return &WalletServiceImpl{
		accounts:  accounts,
		publisher: publisher,
		log:       log,
	}
}

// GetWallet returns the account, opening it on first use.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, accountID string) (*domain.Account, error) {
	ledger, err := s.accounts.Open(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return ledger.Snapshot(), nil
}

// History returns up to limit transactions, newest first.
func (s *WalletServiceImpl) History(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	ledger, err := s.accounts.Open(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	history := ledger.History()
	if len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

// TopUp credits amount to the account.
func (s *WalletServiceImpl) TopUp(ctx context.Context, accountID string, amount domain.Amount) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	ledger, err := s.accounts.Open(ctx, accountID)
	if err != nil {
		return nil, err
	}

	txn, err := ledger.ApplyDelta(ctx, amount, descriptionTopup, nil)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, domain.NewLedgerEvent(domain.EventWalletToppedUp, *txn, "")); err != nil {
		s.log.Warn().Err(err).Str("tx_id", txn.ID.String()).Msg("failed to publish top-up event")
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("account_id", accountID).
		Int64("amount", int64(amount)).
		Int64("balance", int64(txn.BalanceAfter)).
		Msg("wallet topped up")

	return txn, nil
}

// UpdateProfile changes display name and preferences. Any presented token is
// reissued because the ledger broadcasts the change.
func (s *WalletServiceImpl) UpdateProfile(ctx context.Context, accountID string, update domain.ProfileUpdate) (*domain.Account, error) {
	ledger, err := s.accounts.Open(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := ledger.UpdateProfile(ctx, update); err != nil {
		return nil, err
	}
	return ledger.Snapshot(), nil
}
