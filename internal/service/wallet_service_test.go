package service

import (
	"context"
	"errors"
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

func setupWalletService(t *testing.T) (*WalletServiceImpl, *testEnv, *mocks.MockEventPublisher) {
	t.Helper()
	env := newTestEnv(t)
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockEventPublisher(ctrl)
	return NewWalletService(env.accounts, pub, zerolog.Nop()), env, pub
}

func TestWalletService_GetWalletOpensAccount(t *testing.T) {
	svc, _, _ := setupWalletService(t)

	acc, err := svc.GetWallet(context.Background(), "user123")
	require.NoError(t, err)
	assert.Equal(t, "user123", acc.ID)
	assert.Equal(t, domain.Amount(5000), acc.Balance)
	assert.Len(t, acc.Transactions, 1)
}

func TestWalletService_TopUp(t *testing.T) {
	svc, _, pub := setupWalletService(t)
	ctx := context.Background()

	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev domain.LedgerEvent) error {
		assert.Equal(t, domain.EventWalletToppedUp, ev.Type)
		assert.Equal(t, domain.Amount(7000), ev.Balance)
		return nil
	})

	txn, err := svc.TopUp(ctx, "user123", 2000)
	require.NoError(t, err)
	assert.Equal(t, "Wallet top-up", txn.Description)
	assert.Equal(t, domain.Amount(7000), txn.BalanceAfter)

	acc, err := svc.GetWallet(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, "$70.00", acc.Balance.String())
	assert.Len(t, acc.Transactions, 2)
}

func TestWalletService_TopUpRejectsNonPositive(t *testing.T) {
	svc, _, _ := setupWalletService(t)

	for _, amt := range []domain.Amount{0, -500} {
		_, err := svc.TopUp(context.Background(), "user123", amt)
		assert.True(t, apperror.Is(err, apperror.CodeInvalidAmount))
	}
}

func TestWalletService_TopUpPublishFailureIgnored(t *testing.T) {
	svc, _, pub := setupWalletService(t)

	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("kafka down"))

	txn, err := svc.TopUp(context.Background(), "user123", 100)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(5100), txn.BalanceAfter)
}

func TestWalletService_HistoryLimits(t *testing.T) {
	svc, env, pub := setupWalletService(t)
	ctx := context.Background()
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	for i := 0; i < 7; i++ {
		_, err := svc.TopUp(ctx, "user123", 100)
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default", 0, 5},
		{"explicit", 3, 3},
		{"more than available", 50, 8},
		{"clamped", 1000, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, err := svc.History(ctx, "user123", tt.limit)
			require.NoError(t, err)
			assert.Len(t, history, tt.want)
			assert.Equal(t, int64(8), history[0].Seq, "newest first")
		})
	}

	ledger := env.open(t, "user123")
	assert.Equal(t, domain.Amount(5700), ledger.Balance())
}

func TestWalletService_UpdateProfile(t *testing.T) {
	svc, _, _ := setupWalletService(t)
	ctx := context.Background()

	vehicle := "Van"
	acc, err := svc.UpdateProfile(ctx, "user123", domain.ProfileUpdate{Vehicle: &vehicle})
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleVan, acc.Vehicle)

	fuel := "LPG"
	_, err = svc.UpdateProfile(ctx, "user123", domain.ProfileUpdate{FuelPreference: &fuel})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidProfile))
}

func TestWalletService_ProfileChangeReissuesToken(t *testing.T) {
	svc, env, _ := setupWalletService(t)
	p := NewTokenPresenter(env.accounts, env.gen, time.Hour, zerolog.Nop())
	defer p.StopAll()
	ctx := context.Background()

	first, err := p.Present(ctx, "user123")
	require.NoError(t, err)

	name := "Jane Roe"
	_, err = svc.UpdateProfile(ctx, "user123", domain.ProfileUpdate{DisplayName: &name})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		cur, ok := p.Current("user123")
		return ok && cur.Token.DisplayName == "Jane Roe" && cur.Token.Seq > first.Token.Seq
	}, timeoutShort, tick)
}
