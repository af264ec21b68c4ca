package events

import (
	"encoding/json"
	"fmt"
	"time"

	"fuel-wallet/internal/core/domain"

	"github.com/shopspring/decimal"
)

// wireEvent is the published JSON shape. Amounts are decimal major units so
// consumers never have to know the ledger's minor-unit scale.
type wireEvent struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	AccountID     string          `json:"account_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
	PayeeID       string          `json:"payee_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func encode(ev domain.LedgerEvent) ([]byte, error) {
	data, err := json.Marshal(wireEvent{
		ID:            ev.ID.String(),
		Type:          string(ev.Type),
		AccountID:     ev.AccountID,
		TransactionID: ev.TransactionID.String(),
		Amount:        ev.Amount.Decimal(),
		Balance:       ev.Balance.Decimal(),
		PayeeID:       ev.PayeeID,
		OccurredAt:    ev.OccurredAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}
