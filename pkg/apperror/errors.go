package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to clients and matched by the exchange state machine.
const (
	CodeInvalidAmount     = "WAL_001"
	CodeInsufficientFunds = "WAL_002"
	CodeMalformedToken    = "TOK_001"
	CodeExpiredToken      = "TOK_002"
	CodeSupersededToken   = "TOK_003"
	CodeUnknownAccount    = "ACC_001"
	CodeInvalidProfile    = "ACC_002"
	CodeCaptureTimeout    = "SCN_001"
	CodeCaptureFailed     = "SCN_002"
	CodeInvalidTransition = "EXC_001"
	CodeInvalidToken      = "AUTH_001"
	CodeForbidden         = "AUTH_002"
	CodeRateLimited       = "RATE_001"
	CodeInternal          = "SYS_001"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Code returns the AppError code carried by err, or "" if there is none.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries the given AppError code.
func Is(err error, code string) bool {
	return err != nil && Code(err) == code
}

// ---- Wallet ledger (WAL) ----

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Amount must be greater than 0", http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient funds, please top up your wallet", http.StatusPaymentRequired)
}

// ---- Payment tokens (TOK) ----

func ErrMalformedToken(err error) *AppError {
	return Wrap(CodeMalformedToken, "Payment code could not be read", http.StatusBadRequest, err)
}

func ErrExpiredToken() *AppError {
	return New(CodeExpiredToken, "Payment code has expired", http.StatusGone)
}

func ErrSupersededToken() *AppError {
	return New(CodeSupersededToken, "Payment code was replaced by a newer one", http.StatusConflict)
}

// ---- Accounts (ACC) ----

func ErrUnknownAccount() *AppError {
	return New(CodeUnknownAccount, "Customer wallet not found", http.StatusNotFound)
}

func ErrInvalidProfile(message string) *AppError {
	return New(CodeInvalidProfile, message, http.StatusBadRequest)
}

// ---- Scan capture (SCN) ----

func ErrCaptureTimeout() *AppError {
	return New(CodeCaptureTimeout, "No payment code found in time", http.StatusRequestTimeout)
}

func ErrCaptureFailed(err error) *AppError {
	return Wrap(CodeCaptureFailed, "Scanner failed", http.StatusBadGateway, err)
}

// ---- Exchange session (EXC) ----

func ErrInvalidTransition(from, action string) *AppError {
	return New(CodeInvalidTransition, fmt.Sprintf("cannot %s while %s", action, from), http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New(CodeForbidden, "Role not allowed for this operation", http.StatusForbidden)
}

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}
