package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a ledger event published after a successful mutation.
type EventType string

const (
	EventWalletToppedUp EventType = "wallet.topped_up"
	EventPaymentSettled EventType = "payment.settled"
)

// LedgerEvent notifies downstream consumers of a committed ledger change.
type LedgerEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          EventType `json:"type"`
	AccountID     string    `json:"account_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Amount        Amount    `json:"amount"`
	Balance       Amount    `json:"balance"`
	PayeeID       string    `json:"payee_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewLedgerEvent builds an event for a committed transaction.
func NewLedgerEvent(typ EventType, tx Transaction, payeeID string) LedgerEvent {
	return LedgerEvent{
		ID:            uuid.New(),
		Type:          typ,
		AccountID:     tx.AccountID,
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Balance:       tx.BalanceAfter,
		PayeeID:       payeeID,
		OccurredAt:    tx.CreatedAt,
	}
}
