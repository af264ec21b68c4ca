package ports

import (
	"context"
	"time"

	"fuel-wallet/internal/core/domain"
)

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

// TokenSigner authenticates the body part of an encoded payment token.
// Implementations hold their own key.
type TokenSigner interface {
	Sign(body string) string
	Verify(body, signature string) bool
}

// TokenSequenceStore hands out the per-account payment token issuance counter.
type TokenSequenceStore interface {
	// Next atomically increments and returns the counter.
	Next(ctx context.Context, accountID string) (int64, error)
	// Current returns the latest issued value, 0 if none.
	Current(ctx context.Context, accountID string) (int64, error)
}

// IdempotencyCache stores settlement results keyed by exchange session.
type IdempotencyCache interface {
	// Get returns the cached result JSON, or nil when absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set keeps the first live value stored for key.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// EventPublisher emits ledger events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
	Close() error
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// Scanner captures one raw payment token. Implementations must return
// promptly once ctx is done.
type Scanner interface {
	Capture(ctx context.Context) (string, error)
}

// IdentityService issues and validates caller bearer tokens.
type IdentityService interface {
	Generate(accountID string, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed bearer claims.
type TokenClaims struct {
	AccountID string
	Role      domain.Role
}

// --- Service Ports (Business Logic) ---

// SettleRequest holds validated input for a payment settlement.
type SettleRequest struct {
	RawToken       string
	Amount         domain.Amount
	IdempotencyKey string // exchange session id; empty disables replay protection
	PayeeID        string
}

// SettlementService validates a scanned token and debits the payer.
type SettlementService interface {
	Settle(ctx context.Context, req SettleRequest) (*domain.SettlementResult, error)
	Preview(ctx context.Context, rawToken string) (*domain.PaymentToken, error)
}

// WalletService is the payer-facing wallet surface.
type WalletService interface {
	GetWallet(ctx context.Context, accountID string) (*domain.Account, error)
	History(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error)
	TopUp(ctx context.Context, accountID string, amount domain.Amount) (*domain.Transaction, error)
	UpdateProfile(ctx context.Context, accountID string, update domain.ProfileUpdate) (*domain.Account, error)
}

// TokenPresenter keeps a rotating payment token per presenting payer.
type TokenPresenter interface {
	Present(ctx context.Context, accountID string) (*domain.IssuedToken, error)
	Stop(accountID string)
}

// ExchangeService drives a payee's scan-to-settle machine.
type ExchangeService interface {
	Snapshot(payeeID string) domain.ExchangeSnapshot
	StartScan(ctx context.Context, payeeID string) (domain.ExchangeSnapshot, error)
	Offer(payeeID string, rawToken string) error
	OpenConfirm(payeeID string) (domain.ExchangeSnapshot, error)
	CloseConfirm(payeeID string) (domain.ExchangeSnapshot, error)
	Confirm(ctx context.Context, payeeID string, amountText string) (domain.ExchangeSnapshot, error)
	Cancel(payeeID string) (domain.ExchangeSnapshot, error)
}
