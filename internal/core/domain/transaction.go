package domain

import (
	"time"

	"github.com/google/uuid"
)

// Direction is the sign of a ledger movement.
type Direction string

const (
	DirectionCredit Direction = "CREDIT"
	DirectionDebit  Direction = "DEBIT"
)

// TransactionKind classifies a ledger row.
type TransactionKind string

const (
	TransactionKindOpening TransactionKind = "OPENING"
	TransactionKindTopup   TransactionKind = "TOPUP"
	TransactionKindPayment TransactionKind = "PAYMENT"
)

// Transaction is an immutable ledger row. Amount is always the positive magnitude.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	Seq          int64           `json:"seq"`
	AccountID    string          `json:"account_id"`
	Direction    Direction       `json:"direction"`
	Kind         TransactionKind `json:"kind"`
	Amount       Amount          `json:"amount"`
	Description  string          `json:"description"`
	TokenRef     *string         `json:"token_ref,omitempty"`
	BalanceAfter Amount          `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Signed returns the amount with the direction applied.
func (t Transaction) Signed() Amount {
	if t.Direction == DirectionDebit {
		return -t.Amount
	}
	return t.Amount
}

// IsCredit reports whether the row added funds.
func (t Transaction) IsCredit() bool {
	return t.Direction == DirectionCredit
}
