package service

import (
	"context"
	"testing"
	"time"

	"fuel-wallet/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForToken(t *testing.T, r *TokenRefresher, cond func(*domain.IssuedToken) bool) *domain.IssuedToken {
	t.Helper()
	var got *domain.IssuedToken
	require.Eventually(t, func() bool {
		cur, ok := r.Current()
		if ok && cond(cur) {
			got = cur
			return true
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestTokenRefresher_IssuesImmediately(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")
	r := NewTokenRefresher(ledger, env.gen, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	tok, err := r.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tok.Token.Seq)
	assert.Equal(t, domain.Amount(5000), tok.Token.BalanceSnapshot)
}

func TestTokenRefresher_ReissuesOnTick(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")
	r := NewTokenRefresher(ledger, env.gen, 20*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	waitForToken(t, r, func(tok *domain.IssuedToken) bool { return tok.Token.Seq >= 3 })
}

func TestTokenRefresher_ReissuesOnBalanceChange(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")
	r := NewTokenRefresher(ledger, env.gen, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	_, err := r.Wait(ctx)
	require.NoError(t, err)

	_, err = ledger.ApplyDelta(ctx, 2000, descriptionTopup, nil)
	require.NoError(t, err)

	tok := waitForToken(t, r, func(tok *domain.IssuedToken) bool { return tok.Token.BalanceSnapshot == 7000 })
	assert.Greater(t, tok.Token.Seq, int64(1))
}

func TestTokenRefresher_StopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.open(t, "user123")
	r := NewTokenRefresher(ledger, env.gen, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	_, err := r.Wait(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}

	cur, _ := r.Current()
	seq, err := env.seq.Current(context.Background(), "user123")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	after, err := env.seq.Current(context.Background(), "user123")
	require.NoError(t, err)
	assert.Equal(t, seq, after, "no issuance after stop")
	assert.Equal(t, seq, cur.Token.Seq)
}

func TestTokenPresenter_PresentReusesRefresher(t *testing.T) {
	env := newTestEnv(t)
	p := NewTokenPresenter(env.accounts, env.gen, time.Hour, zerolog.Nop())
	defer p.StopAll()
	ctx := context.Background()

	first, err := p.Present(ctx, "user123")
	require.NoError(t, err)
	second, err := p.Present(ctx, "user123")
	require.NoError(t, err)

	assert.Equal(t, first.Token.ID, second.Token.ID, "same refresher, no extra issuance")

	cur, ok := p.Current("user123")
	require.True(t, ok)
	assert.Equal(t, first.Encoded, cur.Encoded)

	_, ok = p.Current("user456")
	assert.False(t, ok)
}

func TestTokenPresenter_StopAndRestart(t *testing.T) {
	env := newTestEnv(t)
	p := NewTokenPresenter(env.accounts, env.gen, time.Hour, zerolog.Nop())
	defer p.StopAll()
	ctx := context.Background()

	first, err := p.Present(ctx, "user123")
	require.NoError(t, err)

	p.Stop("user123")
	_, ok := p.Current("user123")
	assert.False(t, ok)
	p.Stop("user123")

	again, err := p.Present(ctx, "user123")
	require.NoError(t, err)
	assert.Greater(t, again.Token.Seq, first.Token.Seq)
}

func TestTokenPresenter_RunStopsAllOnShutdown(t *testing.T) {
	env := newTestEnv(t)
	p := NewTokenPresenter(env.accounts, env.gen, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	_, err := p.Present(context.Background(), "user123")
	require.NoError(t, err)
	_, err = p.Present(context.Background(), "user456")
	require.NoError(t, err)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("presenter did not shut down")
	}

	_, err = p.Present(context.Background(), "user123")
	assert.ErrorIs(t, err, errPresenterClosed)
}

func TestTokenPresenter_StopIdle(t *testing.T) {
	env := newTestEnv(t)
	p := NewTokenPresenter(env.accounts, env.gen, time.Hour, zerolog.Nop())
	defer p.StopAll()
	ctx := context.Background()

	_, err := p.Present(ctx, "user123")
	require.NoError(t, err)

	assert.Equal(t, 0, p.StopIdle(time.Hour), "recently requested code stays up")
	_, ok := p.Current("user123")
	assert.True(t, ok)

	assert.Equal(t, 1, p.StopIdle(0))
	_, ok = p.Current("user123")
	assert.False(t, ok)
}
