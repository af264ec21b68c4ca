package handler

import (
	"fuel-wallet/internal/adapter/http/dto"
	"fuel-wallet/internal/adapter/http/middleware"
	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports"
	"fuel-wallet/pkg/apperror"
	"fuel-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// ExchangeHandler handles the payee's scan-and-settle endpoints.
type ExchangeHandler struct {
	exchangeSvc ports.ExchangeService
}

// NewExchangeHandler creates a new ExchangeHandler.
func NewExchangeHandler(exchangeSvc ports.ExchangeService) *ExchangeHandler {
	return &ExchangeHandler{exchangeSvc: exchangeSvc}
}

// transition runs one state machine step for the calling payee. After a
// rejected step the outcome is readable through GetState.
func (h *ExchangeHandler) transition(c *gin.Context, step func(payeeID string) (domain.ExchangeSnapshot, error)) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	snap, err := step(id.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toExchangeResponse(snap))
}

// GetState handles GET /api/v1/exchange.
func (h *ExchangeHandler) GetState(c *gin.Context) {
	h.transition(c, func(payeeID string) (domain.ExchangeSnapshot, error) {
		return h.exchangeSvc.Snapshot(payeeID), nil
	})
}

// StartScan handles POST /api/v1/exchange/scan.
func (h *ExchangeHandler) StartScan(c *gin.Context) {
	h.transition(c, func(payeeID string) (domain.ExchangeSnapshot, error) {
		return h.exchangeSvc.StartScan(c.Request.Context(), payeeID)
	})
}

// Capture handles POST /api/v1/exchange/capture. The code is resolved
// asynchronously; poll GET /api/v1/exchange for the result.
func (h *ExchangeHandler) Capture(c *gin.Context) {
	var req dto.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	h.transition(c, func(payeeID string) (domain.ExchangeSnapshot, error) {
		if err := h.exchangeSvc.Offer(payeeID, req.Token); err != nil {
			return domain.ExchangeSnapshot{}, err
		}
		return h.exchangeSvc.Snapshot(payeeID), nil
	})
}

// Review handles POST /api/v1/exchange/review.
func (h *ExchangeHandler) Review(c *gin.Context) {
	h.transition(c, h.exchangeSvc.OpenConfirm)
}

// Back handles POST /api/v1/exchange/back.
func (h *ExchangeHandler) Back(c *gin.Context) {
	h.transition(c, h.exchangeSvc.CloseConfirm)
}

// Confirm handles POST /api/v1/exchange/confirm.
func (h *ExchangeHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	h.transition(c, func(payeeID string) (domain.ExchangeSnapshot, error) {
		return h.exchangeSvc.Confirm(c.Request.Context(), payeeID, req.Amount)
	})
}

// Cancel handles POST /api/v1/exchange/cancel.
func (h *ExchangeHandler) Cancel(c *gin.Context) {
	h.transition(c, h.exchangeSvc.Cancel)
}
