package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"fuel-wallet/internal/core/domain"

	"github.com/rs/zerolog"
)

var errPresenterClosed = errors.New("token presenter is shut down")

// TokenRefresher keeps a fresh payment token for one account. It reissues on
// every tick and immediately after any ledger change.
type TokenRefresher struct {
	ledger   *LedgerStore
	gen      *TokenGenerator
	interval time.Duration
	log      zerolog.Logger

	mu        sync.RWMutex
	current   *domain.IssuedToken
	lastErr   error
	first     chan struct{}
	firstOnce sync.Once
}

// NewTokenRefresher creates a refresher; call Run to start issuing.
func NewTokenRefresher(ledger *LedgerStore, gen *TokenGenerator, interval time.Duration, log zerolog.Logger) *TokenRefresher {
	return &TokenRefresher{
		ledger:   ledger,
		gen:      gen,
		interval: interval,
		log:      log.With().Str("account_id", ledger.AccountID()).Logger(),
		first:    make(chan struct{}),
	}
}

// Run issues immediately and keeps reissuing until ctx is done.
func (r *TokenRefresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		// Subscribe before issuing so a change racing the issue is not lost.
		changed := r.ledger.Changed()
		r.refresh(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-changed:
			ticker.Reset(r.interval)
		}
	}
}

// Current returns the latest issued token, if any.
func (r *TokenRefresher) Current() (*domain.IssuedToken, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.current != nil
}

// Wait blocks until the first issuance attempt completes.
func (r *TokenRefresher) Wait(ctx context.Context) (*domain.IssuedToken, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.first:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return nil, r.lastErr
	}
	return r.current, nil
}

func (r *TokenRefresher) refresh(ctx context.Context) {
	issued, err := r.gen.Issue(ctx, r.ledger.Snapshot())

	r.mu.Lock()
	if err != nil {
		r.lastErr = err
	} else {
		r.current = issued
		r.lastErr = nil
	}
	r.mu.Unlock()
	r.firstOnce.Do(func() { close(r.first) })

	if err != nil {
		if ctx.Err() == nil {
			r.log.Warn().Err(err).Msg("token issuance failed, keeping previous token")
		}
		return
	}
	r.log.Debug().
		Int64("seq", issued.Token.Seq).
		Int64("balance", int64(issued.Token.BalanceSnapshot)).
		Msg("payment token issued")
}

type presentation struct {
	refresher *TokenRefresher
	cancel    context.CancelFunc
	done      chan struct{}
	lastSeen  time.Time
}

// TokenPresenter runs one TokenRefresher per account that is showing its
// payment code. Refreshers outlive the request that started them.
type TokenPresenter struct {
	accounts *AccountRegistry
	gen      *TokenGenerator
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	running map[string]*presentation
	closed  bool
}

// NewTokenPresenter creates a presenter.
func NewTokenPresenter(accounts *AccountRegistry, gen *TokenGenerator, interval time.Duration, log zerolog.Logger) *TokenPresenter {
	return &TokenPresenter{
		accounts: accounts,
		gen:      gen,
		interval: interval,
		log:      log,
		running:  make(map[string]*presentation),
	}
}

// Present starts (or reuses) the refresher for accountID and returns its
// current token.
func (p *TokenPresenter) Present(ctx context.Context, accountID string) (*domain.IssuedToken, error) {
	ledger, err := p.accounts.Open(ctx, accountID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errPresenterClosed
	}
	pr, ok := p.running[accountID]
	if !ok {
		runCtx, cancel := context.WithCancel(context.Background())
		pr = &presentation{
			refresher: NewTokenRefresher(ledger, p.gen, p.interval, p.log),
			cancel:    cancel,
			done:      make(chan struct{}),
		}
		p.running[accountID] = pr
		go func() {
			defer close(pr.done)
			pr.refresher.Run(runCtx)
		}()
		p.log.Info().Str("account_id", accountID).Msg("payment code presentation started")
	}
	pr.lastSeen = time.Now()
	p.mu.Unlock()

	return pr.refresher.Wait(ctx)
}

// Current returns the token being presented for accountID, if any.
func (p *TokenPresenter) Current(accountID string) (*domain.IssuedToken, bool) {
	p.mu.Lock()
	pr, ok := p.running[accountID]
	p.mu.Unlock()
	if !ok {
		return nil, false
	}
	return pr.refresher.Current()
}

// Stop tears down the refresher for accountID and waits for it to exit.
func (p *TokenPresenter) Stop(accountID string) {
	p.mu.Lock()
	pr, ok := p.running[accountID]
	delete(p.running, accountID)
	p.mu.Unlock()

	if !ok {
		return
	}
	pr.cancel()
	<-pr.done
	p.log.Info().Str("account_id", accountID).Msg("payment code presentation stopped")
}

// StopIdle stops refreshers whose code has not been requested for maxIdle
// and returns how many were stopped.
func (p *TokenPresenter) StopIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	p.mu.Lock()
	var idle []string
	for accountID, pr := range p.running {
		if !pr.lastSeen.After(cutoff) {
			idle = append(idle, accountID)
		}
	}
	p.mu.Unlock()

	for _, accountID := range idle {
		p.Stop(accountID)
	}
	return len(idle)
}

// StopAll stops every refresher and refuses new presentations.
func (p *TokenPresenter) StopAll() {
	p.mu.Lock()
	p.closed = true
	all := p.running
	p.running = make(map[string]*presentation)
	p.mu.Unlock()

	for _, pr := range all {
		pr.cancel()
	}
	for _, pr := range all {
		<-pr.done
	}
}

// Run blocks until ctx is done, then stops all refreshers.
func (p *TokenPresenter) Run(ctx context.Context) error {
	<-ctx.Done()
	p.StopAll()
	return nil
}
