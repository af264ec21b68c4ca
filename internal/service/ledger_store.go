package service

import (
	"context"
	"math"
	"sync"
	"time"

	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports"
	"fuel-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	descriptionOpening = "Opening balance"
	descriptionTopup   = "Wallet top-up"
	descriptionPayment = "Fuel payment"

	saveTimeout = 5 * time.Second
)

// LedgerStore owns one account's balance and history. It is the single
// writer for that account: every mutation happens under mu, is persisted
// through the record store, and then broadcast on Changed.
type LedgerStore struct {
	mu      sync.RWMutex
	account *domain.Account
	changed chan struct{}

	repo ports.AccountRepository
	now  func() time.Time
	log  zerolog.Logger
}

// NewLedgerStore wraps a loaded or freshly seeded account. The store takes
// ownership of account; callers must not keep using it.
func NewLedgerStore(account *domain.Account, repo ports.AccountRepository, log zerolog.Logger) *LedgerStore {
	return &LedgerStore{
		account: account,
		changed: make(chan struct{}),
		repo:    repo,
		now:     time.Now,
		log:     log.With().Str("account_id", account.ID).Logger(),
	}
}

// AccountID returns the id of the account this store owns.
func (s *LedgerStore) AccountID() string {
	return s.account.ID
}

// Balance returns the current balance.
func (s *LedgerStore) Balance() domain.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account.Balance
}

// History returns a copy of all transactions, newest first.
func (s *LedgerStore) History() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Transaction, len(s.account.Transactions))
	copy(out, s.account.Transactions)
	return out
}

// Snapshot returns a deep copy of the account.
func (s *LedgerStore) Snapshot() *domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account.Clone()
}

// Changed returns a channel that is closed on the next successful mutation.
func (s *LedgerStore) Changed() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

// ApplyDelta credits (signed > 0) or debits (signed < 0) the balance and
// appends exactly one transaction. On error nothing is changed.
func (s *LedgerStore) ApplyDelta(ctx context.Context, signed domain.Amount, description string, tokenRef *string) (*domain.Transaction, error) {
	if signed == 0 || signed == math.MinInt64 {
		return nil, apperror.ErrInvalidAmount()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance := s.account.Balance
	txn := domain.Transaction{
		ID:          uuid.New(),
		AccountID:   s.account.ID,
		Amount:      signed.Abs(),
		Description: description,
		TokenRef:    tokenRef,
		CreatedAt:   s.now().UTC(),
	}

	if signed > 0 {
		if balance > math.MaxInt64-signed {
			return nil, apperror.ErrInvalidAmount()
		}
		txn.Direction = domain.DirectionCredit
		txn.Kind = domain.TransactionKindTopup
	} else {
		if -signed > balance {
			return nil, apperror.ErrInsufficientFunds()
		}
		txn.Direction = domain.DirectionDebit
		txn.Kind = domain.TransactionKindPayment
	}
	txn.BalanceAfter = balance + signed

	s.account.NextSeq++
	txn.Seq = s.account.NextSeq
	s.account.Balance = txn.BalanceAfter
	s.account.Transactions = append([]domain.Transaction{txn}, s.account.Transactions...)
	s.account.UpdatedAt = txn.CreatedAt

	s.persistLocked(ctx)
	s.broadcastLocked()

	s.log.Debug().
		Str("tx_id", txn.ID.String()).
		Str("direction", string(txn.Direction)).
		Int64("amount", int64(txn.Amount)).
		Int64("balance", int64(txn.BalanceAfter)).
		Msg("ledger delta applied")

	return &txn, nil
}

// UpdateProfile applies the non-nil fields of update after validating them.
func (s *LedgerStore) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) error {
	var (
		fuel    domain.FuelType
		vehicle domain.VehicleType
		ok      bool
	)
	if update.DisplayName != nil && *update.DisplayName == "" {
		return apperror.ErrInvalidProfile("display name must not be empty")
	}
	if update.FuelPreference != nil {
		if fuel, ok = domain.ParseFuelType(*update.FuelPreference); !ok {
			return apperror.ErrInvalidProfile("unknown fuel type " + *update.FuelPreference)
		}
	}
	if update.Vehicle != nil {
		if vehicle, ok = domain.ParseVehicleType(*update.Vehicle); !ok {
			return apperror.ErrInvalidProfile("unknown vehicle type " + *update.Vehicle)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if update.DisplayName != nil {
		s.account.DisplayName = *update.DisplayName
	}
	if update.FuelPreference != nil {
		s.account.FuelPreference = fuel
	}
	if update.Vehicle != nil {
		s.account.Vehicle = vehicle
	}
	s.account.UpdatedAt = s.now().UTC()

	s.persistLocked(ctx)
	s.broadcastLocked()
	return nil
}

// persistLocked saves a snapshot. Failures are logged, never returned:
// the in-memory ledger stays authoritative.
func (s *LedgerStore) persistLocked(ctx context.Context) {
	if s.repo == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	if err := s.repo.Save(saveCtx, s.account.Clone()); err != nil {
		s.log.Error().Err(err).Msg("failed to persist account")
	}
}

func (s *LedgerStore) broadcastLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// newOpenedAccount builds a fresh account carrying the seed as an opening credit.
func newOpenedAccount(id string, defaults AccountDefaults, now time.Time) *domain.Account {
	acc := &domain.Account{
		ID:             id,
		DisplayName:    defaults.DisplayName,
		FuelPreference: defaults.Fuel,
		Vehicle:        defaults.Vehicle,
		Balance:        defaults.Seed,
		Transactions:   []domain.Transaction{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if defaults.Seed > 0 {
		acc.NextSeq = 1
		acc.Transactions = append(acc.Transactions, domain.Transaction{
			ID:           uuid.New(),
			Seq:          1,
			AccountID:    id,
			Direction:    domain.DirectionCredit,
			Kind:         domain.TransactionKindOpening,
			Amount:       defaults.Seed,
			Description:  descriptionOpening,
			BalanceAfter: defaults.Seed,
			CreatedAt:    now,
		})
	}
	return acc
}
