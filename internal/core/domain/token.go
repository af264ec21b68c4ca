package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentToken is the payload a payer presents for scanning. BalanceSnapshot
// is informational only; settlement always checks the live balance.
type PaymentToken struct {
	ID              uuid.UUID     `json:"id"`
	AccountID       string        `json:"acc"`
	DisplayName     string        `json:"name"`
	FuelPreference  FuelType      `json:"fuel"`
	BalanceSnapshot Amount        `json:"bal"`
	IssuedAt        time.Time     `json:"iat"`
	Seq             int64         `json:"seq"`
	ValidFor        time.Duration `json:"ttl"`
}

// Age returns how long ago the token was issued relative to now.
func (t PaymentToken) Age(now time.Time) time.Duration {
	return now.Sub(t.IssuedAt)
}

// ExpiresAt returns the end of the validity window carried in the token.
func (t PaymentToken) ExpiresAt() time.Time {
	return t.IssuedAt.Add(t.ValidFor)
}

// IssuedToken pairs a token with its opaque encoded form.
type IssuedToken struct {
	Token   PaymentToken
	Encoded string
}
