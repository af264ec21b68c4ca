package dto

// TokenRequest is the request body for the development login.
type TokenRequest struct {
	AccountID string `json:"account_id" binding:"required,safe_id,max=64"`
	Role      string `json:"role" binding:"required,oneof=client provider"`
}

// TokenResponse is the response body for a freshly issued bearer token.
type TokenResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// TopupRequest is the request body for a wallet top-up.
// Amount is decimal text such as "20" or "20.00"; the wallet rejects bad
// values with WAL_001.
type TopupRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// ProfileRequest is the request body for a profile update. Omitted fields are kept.
type ProfileRequest struct {
	DisplayName    *string `json:"display_name,omitempty" binding:"omitempty,min=1,max=60"`
	FuelPreference *string `json:"fuel_preference,omitempty" binding:"omitempty,fuel_type"`
	Vehicle        *string `json:"vehicle,omitempty" binding:"omitempty,vehicle_type"`
}

// CaptureRequest carries a payment code read by the payee's device.
type CaptureRequest struct {
	Token string `json:"token" binding:"required"`
}

// ConfirmRequest carries the amount typed by the payee. It is validated by
// the exchange itself so a bad amount is recorded as a rejected outcome.
type ConfirmRequest struct {
	Amount string `json:"amount"`
}

// WalletResponse is the payer's wallet view.
type WalletResponse struct {
	AccountID      string `json:"account_id"`
	DisplayName    string `json:"display_name"`
	FuelPreference string `json:"fuel_preference"`
	Vehicle        string `json:"vehicle"`
	Balance        string `json:"balance"`
	BalanceCents   int64  `json:"balance_cents"`
	UpdatedAt      string `json:"updated_at"`
}

// TransactionResponse is one ledger row.
type TransactionResponse struct {
	ID           string  `json:"id"`
	Seq          int64   `json:"seq"`
	Direction    string  `json:"direction"`
	Kind         string  `json:"kind"`
	Amount       string  `json:"amount"`
	AmountCents  int64   `json:"amount_cents"`
	Description  string  `json:"description"`
	TokenRef     *string `json:"token_ref,omitempty"`
	BalanceAfter string  `json:"balance_after"`
	CreatedAt    string  `json:"created_at"`
}

// TransactionListResponse wraps the newest-first history.
type TransactionListResponse struct {
	Items []TransactionResponse `json:"items"`
	Count int                   `json:"count"`
}

// PaymentCodeResponse is the payment code shown to the payer.
type PaymentCodeResponse struct {
	Code      string `json:"code"`
	TokenID   string `json:"token_id"`
	Seq       int64  `json:"seq"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
}

// PayerResponse is what the payee sees after a successful scan.
type PayerResponse struct {
	AccountID      string `json:"account_id"`
	DisplayName    string `json:"display_name"`
	FuelPreference string `json:"fuel_preference"`
	Balance        string `json:"balance"`
	IssuedAt       string `json:"issued_at"`
}

// SessionResponse is the in-flight exchange session.
type SessionResponse struct {
	ID             string         `json:"id"`
	Phase          string         `json:"phase"`
	Payer          *PayerResponse `json:"payer,omitempty"`
	ProposedAmount string         `json:"proposed_amount"`
	StartedAt      string         `json:"started_at"`
}

// OutcomeResponse is the result of the last finished exchange step.
type OutcomeResponse struct {
	Kind          string `json:"kind"`
	ErrorCode     string `json:"error_code,omitempty"`
	Message       string `json:"message,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Amount        string `json:"amount,omitempty"`
	Balance       string `json:"balance,omitempty"`
	At            string `json:"at"`
}

// ExchangeResponse is the payee's exchange state.
type ExchangeResponse struct {
	Phase       string           `json:"phase"`
	Session     *SessionResponse `json:"session,omitempty"`
	LastOutcome *OutcomeResponse `json:"last_outcome,omitempty"`
}
