package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports/mocks"
	"fuel-wallet/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestLedgerStore_NewAccountHasOpeningCredit(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")

	assert.Equal(t, domain.Amount(5000), ledger.Balance())
	history := ledger.History()
	require.Len(t, history, 1)
	assert.Equal(t, domain.TransactionKindOpening, history[0].Kind)
	assert.Equal(t, domain.DirectionCredit, history[0].Direction)
	assert.Equal(t, int64(1), history[0].Seq)
}

func TestLedgerStore_TopUpScenario(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")
	ctx := context.Background()

	txn, err := ledger.ApplyDelta(ctx, 2000, descriptionTopup, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.Amount(7000), ledger.Balance())
	assert.Equal(t, "$70.00", ledger.Balance().String())
	assert.Equal(t, domain.DirectionCredit, txn.Direction)
	assert.Equal(t, domain.TransactionKindTopup, txn.Kind)
	assert.Equal(t, domain.Amount(2000), txn.Amount)
	assert.Equal(t, domain.Amount(7000), txn.BalanceAfter)
	assert.Equal(t, "Wallet top-up", txn.Description)
	assert.Nil(t, txn.TokenRef)

	history := ledger.History()
	require.Len(t, history, 2)
	assert.Equal(t, txn.ID, history[0].ID, "newest first")
}

func TestLedgerStore_DebitBeyondBalanceLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")
	ctx := context.Background()

	_, err := ledger.ApplyDelta(ctx, 2000, descriptionTopup, nil)
	require.NoError(t, err)
	before := ledger.History()

	_, err = ledger.ApplyDelta(ctx, -8000, descriptionPayment, nil)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInsufficientFunds))

	assert.Equal(t, domain.Amount(7000), ledger.Balance())
	assert.Equal(t, before, ledger.History())
}

func TestLedgerStore_DebitScenario(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")
	ctx := context.Background()

	_, err := ledger.ApplyDelta(ctx, 2000, descriptionTopup, nil)
	require.NoError(t, err)

	ref := "token-1"
	txn, err := ledger.ApplyDelta(ctx, -3000, descriptionPayment, &ref)
	require.NoError(t, err)

	assert.Equal(t, domain.Amount(4000), ledger.Balance())
	assert.Equal(t, domain.DirectionDebit, txn.Direction)
	assert.Equal(t, domain.TransactionKindPayment, txn.Kind)
	assert.Equal(t, domain.Amount(3000), txn.Amount, "magnitude stored")
	require.NotNil(t, txn.TokenRef)
	assert.Equal(t, "token-1", *txn.TokenRef)

	history := ledger.History()
	require.Len(t, history, 3)
	assert.Equal(t, domain.DirectionDebit, history[0].Direction)
	assert.Equal(t, []int64{3, 2, 1}, []int64{history[0].Seq, history[1].Seq, history[2].Seq})
}

func TestLedgerStore_DebitExactBalanceReachesZero(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")

	_, err := ledger.ApplyDelta(context.Background(), -5000, descriptionPayment, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(0), ledger.Balance())
}

func TestLedgerStore_RejectsInvalidDeltas(t *testing.T) {
	tests := []struct {
		name  string
		delta domain.Amount
	}{
		{"zero", 0},
		{"min int", math.MinInt64},
		{"overflowing credit", math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ledger := env.open(t, "user123")

			_, err := ledger.ApplyDelta(context.Background(), tt.delta, "x", nil)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.CodeInvalidAmount))
			assert.Equal(t, domain.Amount(5000), ledger.Balance())
			assert.Len(t, ledger.History(), 1)
		})
	}
}

func TestLedgerStore_HistoryIsStableCopy(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")

	first := ledger.History()
	first[0].Amount = 1
	second := ledger.History()

	assert.Equal(t, domain.Amount(5000), second[0].Amount)
	assert.Equal(t, ledger.History(), second)
}

func TestLedgerStore_ChangedFiresOnMutation(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")

	changed := ledger.Changed()
	select {
	case <-changed:
		t.Fatal("changed fired before any mutation")
	default:
	}

	_, err := ledger.ApplyDelta(context.Background(), -8000, descriptionPayment, nil)
	require.Error(t, err)
	select {
	case <-changed:
		t.Fatal("failed mutation must not broadcast")
	default:
	}

	_, err = ledger.ApplyDelta(context.Background(), 100, descriptionTopup, nil)
	require.NoError(t, err)
	select {
	case <-changed:
	default:
		t.Fatal("changed did not fire after credit")
	}
	assert.NotEqual(t, changed, ledger.Changed(), "a fresh channel is armed")
}

func TestLedgerStore_PersistsEveryMutation(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")
	ctx := context.Background()

	_, err := ledger.ApplyDelta(ctx, 2000, descriptionTopup, nil)
	require.NoError(t, err)

	stored, err := env.repo.Load(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(7000), stored.Balance)
	assert.Len(t, stored.Transactions, 2)
}

func TestLedgerStore_SaveFailureIsNotReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAccountRepository(ctrl)
	acc := newOpenedAccount("user123", testDefaults, time.Now().UTC())
	ledger := NewLedgerStore(acc, repo, zerolog.Nop())

	repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	txn, err := ledger.ApplyDelta(context.Background(), 2000, descriptionTopup, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(7000), txn.BalanceAfter)
	assert.Equal(t, domain.Amount(7000), ledger.Balance())
}

func TestLedgerStore_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.ApplyDelta(ctx, -1000, descriptionPayment, nil); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, success)
	assert.Equal(t, domain.Amount(0), ledger.Balance())
	history := ledger.History()
	assert.Len(t, history, 6)
	assert.Equal(t, ledger.Balance(), sumSigned(history))
}

func TestLedgerStore_BalanceMatchesSeedPlusNonOpeningRows(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")
	ctx := context.Background()

	deltas := []domain.Amount{2000, -3000, 150, -8000, -4150, 1}
	for _, d := range deltas {
		_, _ = ledger.ApplyDelta(ctx, d, "x", nil)
		assert.GreaterOrEqual(t, int64(ledger.Balance()), int64(0))
	}

	var nonOpening domain.Amount
	for _, tx := range ledger.History() {
		if tx.Kind != domain.TransactionKindOpening {
			nonOpening += tx.Signed()
		}
	}
	assert.Equal(t, ledger.Balance()-testDefaults.Seed, nonOpening)
	assert.Equal(t, ledger.Balance(), sumSigned(ledger.History()))
}

func TestLedgerStore_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")
	changed := ledger.Changed()

	name := "Jane Roe"
	fuel := "Diesel"
	err := ledger.UpdateProfile(context.Background(), domain.ProfileUpdate{DisplayName: &name, FuelPreference: &fuel})
	require.NoError(t, err)

	snap := ledger.Snapshot()
	assert.Equal(t, "Jane Roe", snap.DisplayName)
	assert.Equal(t, domain.FuelDiesel, snap.FuelPreference)
	assert.Equal(t, domain.VehicleSUV, snap.Vehicle, "untouched field kept")
	assert.Equal(t, domain.Amount(5000), snap.Balance)
	select {
	case <-changed:
	default:
		t.Fatal("profile change must broadcast")
	}
}

func TestLedgerStore_UpdateProfileRejectsUnknownValues(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")

	bad := "Kerosene"
	err := ledger.UpdateProfile(context.Background(), domain.ProfileUpdate{FuelPreference: &bad})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidProfile))

	car := "Spaceship"
	err = ledger.UpdateProfile(context.Background(), domain.ProfileUpdate{Vehicle: &car})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidProfile))

	empty := ""
	err = ledger.UpdateProfile(context.Background(), domain.ProfileUpdate{DisplayName: &empty})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidProfile))

	assert.Equal(t, domain.FuelPetrol, ledger.Snapshot().FuelPreference)
}
