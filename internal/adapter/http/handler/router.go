package handler

import (
	"fuel-wallet/internal/adapter/http/middleware"
	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	Presenter      ports.TokenPresenter
	ExchangeSvc    ports.ExchangeService
	Identity       ports.IdentityService
	RateLimiter    ports.RateLimiter // nil = rate limiting disabled
	DevLogin       bool
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(64 << 10))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimiter == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	if deps.DevLogin {
		authHandler := NewAuthHandler(deps.Identity)
		v1.POST("/auth/token", rl("auth_token"), authHandler.IssueToken)
	}

	authn := middleware.Authenticate(deps.Identity, deps.Logger)

	// --- Payer routes ---
	walletHandler := NewWalletHandler(deps.WalletSvc, deps.Presenter)
	wallet := v1.Group("/wallet", authn, middleware.RequireRole(domain.RolePayer))
	{
		wallet.GET("", rl("wallet"), walletHandler.GetWallet)
		wallet.GET("/transactions", rl("wallet"), walletHandler.ListTransactions)
		wallet.POST("/topup", rl("wallet_topup"), walletHandler.TopUp)
		wallet.PUT("/profile", rl("wallet"), walletHandler.UpdateProfile)
		wallet.GET("/token", rl("wallet"), walletHandler.GetPaymentCode)
		wallet.DELETE("/token", rl("wallet"), walletHandler.StopPaymentCode)
	}

	// --- Payee routes ---
	exchangeHandler := NewExchangeHandler(deps.ExchangeSvc)
	exchange := v1.Group("/exchange", authn, middleware.RequireRole(domain.RolePayee))
	{
		exchange.GET("", rl("exchange"), exchangeHandler.GetState)
		exchange.POST("/scan", rl("exchange"), exchangeHandler.StartScan)
		exchange.POST("/capture", rl("exchange_capture"), exchangeHandler.Capture)
		exchange.POST("/review", rl("exchange"), exchangeHandler.Review)
		exchange.POST("/back", rl("exchange"), exchangeHandler.Back)
		exchange.POST("/confirm", rl("exchange"), exchangeHandler.Confirm)
		exchange.POST("/cancel", rl("exchange"), exchangeHandler.Cancel)
	}

	return r
}
