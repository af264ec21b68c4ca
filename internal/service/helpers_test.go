package service

import (
	"context"
	"testing"
	"time"

	"fuel-wallet/internal/adapter/storage/memory"
	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testTokenSecret = "test-token-secret"

var testDefaults = AccountDefaults{
	Seed:        5000,
	DisplayName: "John Doe",
	Fuel:        domain.FuelPetrol,
	Vehicle:     domain.VehicleSUV,
}

// fixedClock is a settable clock shared by the generator under test.
type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.LedgerEvent) error { return nil }

func (nopPublisher) Close() error { return nil }

type testEnv struct {
	repo     *memory.AccountRepo
	seq      *memory.TokenSequenceStore
	cache    *memory.IdempotencyCache
	accounts *AccountRegistry
	gen      *TokenGenerator
	clock    *fixedClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:  memory.NewAccountRepo(),
		seq:   memory.NewTokenSequenceStore(),
		cache: memory.NewIdempotencyCache(),
		clock: &fixedClock{t: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)},
	}
	env.accounts = NewAccountRegistry(env.repo, testDefaults, zerolog.Nop())
	env.gen = NewTokenGenerator(30*time.Second, NewHMACTokenSigner(testTokenSecret), env.seq)
	env.gen.now = env.clock.Now
	return env
}

func (e *testEnv) settlement(enforceLatest bool, pub ports.EventPublisher) *SettlementServiceImpl {
	if pub == nil {
		pub = nopPublisher{}
	}
	return NewSettlementService(e.gen, e.accounts, e.cache, pub, enforceLatest, zerolog.Nop())
}

func (e *testEnv) open(t *testing.T, id string) *LedgerStore {
	t.Helper()
	ledger, err := e.accounts.Open(context.Background(), id)
	require.NoError(t, err)
	return ledger
}

func (e *testEnv) issue(t *testing.T, ledger *LedgerStore) *domain.IssuedToken {
	t.Helper()
	issued, err := e.gen.Issue(context.Background(), ledger.Snapshot())
	require.NoError(t, err)
	return issued
}

func sumSigned(txs []domain.Transaction) domain.Amount {
	var total domain.Amount
	for _, tx := range txs {
		total += tx.Signed()
	}
	return total
}

const (
	timeoutShort = 2 * time.Second
	tick         = 5 * time.Millisecond
)
