package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports"
	"fuel-wallet/pkg/apperror"

	"github.com/google/uuid"
)

const tokenSeparator = "."

// TokenGenerator issues, encodes and checks payment tokens.
// Encoded form: base64url(JSON payload) "." signer.Sign(payload part).
type TokenGenerator struct {
	validity time.Duration
	signer   ports.TokenSigner
	seq      ports.TokenSequenceStore
	now      func() time.Time
}

// NewTokenGenerator creates a generator with the given validity window.
func NewTokenGenerator(validity time.Duration, signer ports.TokenSigner, seq ports.TokenSequenceStore) *TokenGenerator {
	return &TokenGenerator{
		validity: validity,
		signer:   signer,
		seq:      seq,
		now:      time.Now,
	}
}

// Issue snapshots the account into a new token carrying the next issuance seq.
func (g *TokenGenerator) Issue(ctx context.Context, account *domain.Account) (*domain.IssuedToken, error) {
	seq, err := g.seq.Next(ctx, account.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("next token seq: %w", err))
	}

	tok := domain.PaymentToken{
		ID:              uuid.New(),
		AccountID:       account.ID,
		DisplayName:     account.DisplayName,
		FuelPreference:  account.FuelPreference,
		BalanceSnapshot: account.Balance,
		IssuedAt:        g.now().UTC(),
		Seq:             seq,
		ValidFor:        g.validity,
	}

	encoded, err := g.Encode(tok)
	if err != nil {
		return nil, err
	}
	return &domain.IssuedToken{Token: tok, Encoded: encoded}, nil
}

// Encode serializes and signs a token.
func (g *TokenGenerator) Encode(tok domain.PaymentToken) (string, error) {
	payload, err := json.Marshal(tok)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("marshal token: %w", err))
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + tokenSeparator + g.signer.Sign(body), nil
}

// Decode verifies the signature and shape of raw. Any failure is MalformedToken.
func (g *TokenGenerator) Decode(raw string) (*domain.PaymentToken, error) {
	body, sig, ok := strings.Cut(strings.TrimSpace(raw), tokenSeparator)
	if !ok || body == "" || sig == "" {
		return nil, apperror.ErrMalformedToken(errors.New("missing signature part"))
	}
	if !g.signer.Verify(body, sig) {
		return nil, apperror.ErrMalformedToken(errors.New("signature mismatch"))
	}

	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, apperror.ErrMalformedToken(fmt.Errorf("decode payload: %w", err))
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	var tok domain.PaymentToken
	if err := dec.Decode(&tok); err != nil {
		return nil, apperror.ErrMalformedToken(fmt.Errorf("unmarshal payload: %w", err))
	}
	if tok.ID == uuid.Nil || tok.AccountID == "" || tok.IssuedAt.IsZero() || tok.ValidFor <= 0 {
		return nil, apperror.ErrMalformedToken(errors.New("incomplete payload"))
	}
	return &tok, nil
}

// Validate checks the token is within its validity window at now.
// The window is the one carried in the token, capped at the configured
// validity, and is inclusive at both ends.
func (g *TokenGenerator) Validate(tok *domain.PaymentToken, now time.Time) error {
	window := min(tok.ValidFor, g.validity)
	age := tok.Age(now)
	if age < 0 || age > window {
		return apperror.ErrExpiredToken()
	}
	return nil
}

// CheckLatest rejects tokens that a newer issuance for the same account replaced.
func (g *TokenGenerator) CheckLatest(ctx context.Context, tok *domain.PaymentToken) error {
	current, err := g.seq.Current(ctx, tok.AccountID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("current token seq: %w", err))
	}
	if tok.Seq < current {
		return apperror.ErrSupersededToken()
	}
	return nil
}
