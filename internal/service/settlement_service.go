package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports"
	"fuel-wallet/pkg/apperror"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const idempotencyTTL = 24 * time.Hour

// SettlementServiceImpl implements ports.SettlementService.
type SettlementServiceImpl struct {
	gen           *TokenGenerator
	accounts      *AccountRegistry
	idempCache    ports.IdempotencyCache
	publisher     ports.EventPublisher
	enforceLatest bool
	log           zerolog.Logger

	inflight singleflight.Group
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	gen *TokenGenerator,
	accounts *AccountRegistry,
	idempCache ports.IdempotencyCache,
	publisher ports.EventPublisher,
	enforceLatest bool,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		gen:           gen,
		accounts:      accounts,
		idempCache:    idempCache,
		publisher:     publisher,
		enforceLatest: enforceLatest,
		log:           log,
	}
}

// Preview decodes raw and checks it is fresh and current, without touching
// any ledger.
func (s *SettlementServiceImpl) Preview(ctx context.Context, rawToken string) (*domain.PaymentToken, error) {
	tok, err := s.gen.Decode(rawToken)
	if err != nil {
		return nil, err
	}
	if err := s.gen.Validate(tok, s.gen.now()); err != nil {
		return nil, err
	}
	if s.enforceLatest {
		if err := s.gen.CheckLatest(ctx, tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}

// Settle debits the payer named by the token. A repeated call with the same
// idempotency key returns the first result without debiting again.
func (s *SettlementServiceImpl) Settle(ctx context.Context, req ports.SettleRequest) (*domain.SettlementResult, error) {
	if req.IdempotencyKey == "" {
		return s.settle(ctx, req)
	}

	idempKey := "settle:" + req.IdempotencyKey
	if result := s.cachedResult(ctx, idempKey); result != nil {
		return result, nil
	}

	v, err, _ := s.inflight.Do(idempKey, func() (interface{}, error) {
		// A concurrent call may have finished between the lookup and Do.
		if result := s.cachedResult(ctx, idempKey); result != nil {
			return result, nil
		}
		result, err := s.settle(ctx, req)
		if err != nil {
			return nil, err
		}
		s.cacheResult(ctx, idempKey, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.SettlementResult), nil
}

func (s *SettlementServiceImpl) settle(ctx context.Context, req ports.SettleRequest) (*domain.SettlementResult, error) {
	tok, err := s.Preview(ctx, req.RawToken)
	if err != nil {
		return nil, err
	}

	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	ledger, err := s.accounts.Resolve(ctx, tok.AccountID)
	if err != nil {
		return nil, err
	}

	tokenRef := tok.ID.String()
	txn, err := ledger.ApplyDelta(ctx, -req.Amount, descriptionPayment, &tokenRef)
	if err != nil {
		return nil, err
	}

	result := &domain.SettlementResult{
		Transaction:    *txn,
		Balance:        txn.BalanceAfter,
		PayeeID:        req.PayeeID,
		IdempotencyKey: req.IdempotencyKey,
	}

	if err := s.publisher.Publish(ctx, domain.NewLedgerEvent(domain.EventPaymentSettled, *txn, req.PayeeID)); err != nil {
		s.log.Warn().Err(err).Str("tx_id", txn.ID.String()).Msg("failed to publish settlement event")
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("account_id", tok.AccountID).
		Str("payee_id", req.PayeeID).
		Int64("amount", int64(req.Amount)).
		Int64("balance", int64(txn.BalanceAfter)).
		Msg("payment settled")

	return result, nil
}

func (s *SettlementServiceImpl) cachedResult(ctx context.Context, key string) *domain.SettlementResult {
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("idempotency lookup failed")
		return nil
	}
	if cached == nil {
		return nil
	}

	var result domain.SettlementResult
	if err := json.Unmarshal(cached, &result); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("discarding corrupt idempotency entry")
		return nil
	}
	return &result
}

func (s *SettlementServiceImpl) cacheResult(ctx context.Context, key string, result *domain.SettlementResult) {
	data, err := json.Marshal(result)
	if err != nil {
		s.log.Error().Err(fmt.Errorf("marshal settlement result: %w", err)).Msg("idempotency cache skipped")
		return
	}
	if err := s.idempCache.Set(ctx, key, data, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache settlement result")
	}
}
