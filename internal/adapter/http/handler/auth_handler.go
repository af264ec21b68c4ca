package handler

import (
	"fuel-wallet/internal/adapter/http/dto"
	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports"
	"fuel-wallet/pkg/apperror"
	"fuel-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler issues bearer tokens for local development. Production
// deployments get identities from an external provider.
type AuthHandler struct {
	identity ports.IdentityService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(identity ports.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

// IssueToken handles POST /api/v1/auth/token.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	token, expiry, err := h.identity.Generate(req.AccountID, domain.Role(req.Role))
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.Created(c, dto.TokenResponse{
		Token:  token,
		Expiry: expiry.Unix(),
	})
}
