// Package memory holds process-local adapters used when no external store
// is configured and in tests.
package memory

import (
	"context"
	"sync"

	"fuel-wallet/internal/core/domain"
)

// AccountRepo implements ports.AccountRepository in memory. It stores and
// returns deep copies so callers never share state with it.
type AccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

// NewAccountRepo creates an empty repository.
func NewAccountRepo() *AccountRepo {
	return &AccountRepo{accounts: make(map[string]*domain.Account)}
}

// Load returns a copy of the stored account or nil, nil.
func (r *AccountRepo) Load(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	return acc.Clone(), nil
}

// Save stores a copy of acc unless a newer snapshot is already stored.
func (r *AccountRepo) Save(ctx context.Context, acc *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.accounts[acc.ID]; ok && cur.NextSeq > acc.NextSeq {
		return nil
	}
	r.accounts[acc.ID] = acc.Clone()
	return nil
}
