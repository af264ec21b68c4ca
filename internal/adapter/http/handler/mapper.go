package handler

import (
	"time"

	"fuel-wallet/internal/adapter/http/dto"
	"fuel-wallet/internal/core/domain"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toWalletResponse(acc *domain.Account) dto.WalletResponse {
	return dto.WalletResponse{
		AccountID:      acc.ID,
		DisplayName:    acc.DisplayName,
		FuelPreference: string(acc.FuelPreference),
		Vehicle:        string(acc.Vehicle),
		Balance:        acc.Balance.String(),
		BalanceCents:   int64(acc.Balance),
		UpdatedAt:      formatTime(acc.UpdatedAt),
	}
}

func toTransactionResponse(tx domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:           tx.ID.String(),
		Seq:          tx.Seq,
		Direction:    string(tx.Direction),
		Kind:         string(tx.Kind),
		Amount:       tx.Amount.String(),
		AmountCents:  int64(tx.Amount),
		Description:  tx.Description,
		TokenRef:     tx.TokenRef,
		BalanceAfter: tx.BalanceAfter.String(),
		CreatedAt:    formatTime(tx.CreatedAt),
	}
}

func toPaymentCodeResponse(issued *domain.IssuedToken) dto.PaymentCodeResponse {
	return dto.PaymentCodeResponse{
		Code:      issued.Encoded,
		TokenID:   issued.Token.ID.String(),
		Seq:       issued.Token.Seq,
		IssuedAt:  formatTime(issued.Token.IssuedAt),
		ExpiresAt: formatTime(issued.Token.ExpiresAt()),
	}
}

func toExchangeResponse(snap domain.ExchangeSnapshot) dto.ExchangeResponse {
	resp := dto.ExchangeResponse{Phase: string(snap.Phase)}

	if s := snap.Session; s != nil {
		session := &dto.SessionResponse{
			ID:             s.ID.String(),
			Phase:          string(s.Phase),
			ProposedAmount: s.ProposedAmount.String(),
			StartedAt:      formatTime(s.StartedAt),
		}
		if s.Token != nil {
			session.Payer = &dto.PayerResponse{
				AccountID:      s.Token.AccountID,
				DisplayName:    s.Token.DisplayName,
				FuelPreference: string(s.Token.FuelPreference),
				Balance:        s.Token.BalanceSnapshot.String(),
				IssuedAt:       formatTime(s.Token.IssuedAt),
			}
		}
		resp.Session = session
	}

	if o := snap.LastOutcome; o != nil {
		outcome := &dto.OutcomeResponse{
			Kind:      string(o.Kind),
			ErrorCode: o.ErrorCode,
			Message:   o.Message,
			At:        formatTime(o.At),
		}
		if o.Result != nil {
			outcome.TransactionID = o.Result.Transaction.ID.String()
			outcome.Amount = o.Result.Transaction.Amount.String()
			outcome.Balance = o.Result.Balance.String()
		}
		resp.LastOutcome = outcome
	}
	return resp
}
