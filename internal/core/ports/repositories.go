package ports

import (
	"context"

	"fuel-wallet/internal/core/domain"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

// AccountRepository is the record store for wallet accounts.
// Load returns (nil, nil) when the account has never been saved.
// Save persists profile, balance and any history rows the store has not seen.
type AccountRepository interface {
	Load(ctx context.Context, id string) (*domain.Account, error)
	Save(ctx context.Context, account *domain.Account) error
}
