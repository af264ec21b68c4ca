package handler

import (
	"strconv"

	"fuel-wallet/internal/adapter/http/dto"
	"fuel-wallet/internal/adapter/http/middleware"
	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports"
	"fuel-wallet/pkg/apperror"
	"fuel-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles the payer's wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
	presenter ports.TokenPresenter
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, presenter ports.TokenPresenter) *WalletHandler {
	return &WalletHandler{
		walletSvc: walletSvc,
		presenter: presenter,
	}
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	acc, err := h.walletSvc.GetWallet(c.Request.Context(), id.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletResponse(acc))
}

// ListTransactions handles GET /api/v1/wallet/transactions?limit=.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.Error(c, apperror.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}

	txs, err := h.walletSvc.History(c.Request.Context(), id.AccountID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, toTransactionResponse(tx))
	}
	response.OK(c, dto.TransactionListResponse{Items: items, Count: len(items)})
}

// TopUp handles POST /api/v1/wallet/topup.
func (h *WalletHandler) TopUp(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	tx, err := h.walletSvc.TopUp(c.Request.Context(), id.AccountID, amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toTransactionResponse(*tx))
}

// UpdateProfile handles PUT /api/v1/wallet/profile.
func (h *WalletHandler) UpdateProfile(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	acc, err := h.walletSvc.UpdateProfile(c.Request.Context(), id.AccountID, domain.ProfileUpdate{
		DisplayName:    req.DisplayName,
		FuelPreference: req.FuelPreference,
		Vehicle:        req.Vehicle,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletResponse(acc))
}

// GetPaymentCode handles GET /api/v1/wallet/token. The first call starts
// rotating codes for the account; later calls return the current one.
func (h *WalletHandler) GetPaymentCode(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	issued, err := h.presenter.Present(c.Request.Context(), id.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	response.OK(c, toPaymentCodeResponse(issued))
}

// StopPaymentCode handles DELETE /api/v1/wallet/token.
func (h *WalletHandler) StopPaymentCode(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	h.presenter.Stop(id.AccountID)
	response.NoContent(c)
}
