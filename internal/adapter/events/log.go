package events

import (
	"context"

	"fuel-wallet/internal/core/domain"

	"github.com/rs/zerolog"
)

// LogPublisher implements ports.EventPublisher by logging each event.
// Used when no Kafka brokers are configured.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher creates a log-only publisher.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, ev domain.LedgerEvent) error {
	p.log.Info().
		Str("event_id", ev.ID.String()).
		Str("type", string(ev.Type)).
		Str("account_id", ev.AccountID).
		Str("tx_id", ev.TransactionID.String()).
		Str("amount", ev.Amount.Decimal().StringFixed(2)).
		Str("balance", ev.Balance.Decimal().StringFixed(2)).
		Str("payee_id", ev.PayeeID).
		Msg("ledger event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
