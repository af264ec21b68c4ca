package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports"
	"fuel-wallet/pkg/apperror"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// AccountDefaults are applied to accounts opened for the first time.
type AccountDefaults struct {
	Seed        domain.Amount
	DisplayName string
	Fuel        domain.FuelType
	Vehicle     domain.VehicleType
}

// AccountRegistry keeps one LedgerStore per account, loading each account
// from the record store at most once.
type AccountRegistry struct {
	repo     ports.AccountRepository
	defaults AccountDefaults
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	ledgers map[string]*LedgerStore
	loads   singleflight.Group
}

// NewAccountRegistry creates a registry backed by repo.
func NewAccountRegistry(repo ports.AccountRepository, defaults AccountDefaults, log zerolog.Logger) *AccountRegistry {
	return &AccountRegistry{
		repo:     repo,
		defaults: defaults,
		log:      log,
		now:      time.Now,
		ledgers:  make(map[string]*LedgerStore),
	}
}

// Open returns the ledger for id, seeding a new account if none exists.
func (r *AccountRegistry) Open(ctx context.Context, id string) (*LedgerStore, error) {
	return r.lookup(ctx, id, true)
}

// Resolve returns the ledger for an existing account or UnknownAccount.
func (r *AccountRegistry) Resolve(ctx context.Context, id string) (*LedgerStore, error) {
	return r.lookup(ctx, id, false)
}

// Exists reports whether id is a known account.
func (r *AccountRegistry) Exists(ctx context.Context, id string) (bool, error) {
	_, err := r.Resolve(ctx, id)
	if apperror.Is(err, apperror.CodeUnknownAccount) {
		return false, nil
	}
	return err == nil, err
}

func (r *AccountRegistry) lookup(ctx context.Context, id string, create bool) (*LedgerStore, error) {
	if id == "" {
		return nil, apperror.ErrUnknownAccount()
	}
	if ledger := r.cached(id); ledger != nil {
		return ledger, nil
	}

	key := "resolve:" + id
	if create {
		key = "open:" + id
	}
	v, err, _ := r.loads.Do(key, func() (interface{}, error) {
		return r.load(ctx, id, create)
	})
	if err != nil {
		return nil, err
	}
	return v.(*LedgerStore), nil
}

func (r *AccountRegistry) load(ctx context.Context, id string, create bool) (*LedgerStore, error) {
	if ledger := r.cached(id); ledger != nil {
		return ledger, nil
	}

	acc, err := r.repo.Load(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load account: %w", err))
	}

	if acc == nil {
		if !create {
			return nil, apperror.ErrUnknownAccount()
		}
		acc = newOpenedAccount(id, r.defaults, r.now().UTC())
		if err := r.repo.Save(ctx, acc.Clone()); err != nil {
			r.log.Error().Err(err).Str("account_id", id).Msg("failed to persist new account")
		}
		r.log.Info().
			Str("account_id", id).
			Int64("seed", int64(r.defaults.Seed)).
			Msg("account opened")
	}

	return r.install(NewLedgerStore(acc, r.repo, r.log)), nil
}

func (r *AccountRegistry) cached(id string) *LedgerStore {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ledgers[id]
}

// install registers ledger unless another load won the race.
func (r *AccountRegistry) install(ledger *LedgerStore) *LedgerStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.ledgers[ledger.AccountID()]; ok {
		return existing
	}
	r.ledgers[ledger.AccountID()] = ledger
	return ledger
}
