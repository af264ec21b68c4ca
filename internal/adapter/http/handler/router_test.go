package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fuel-wallet/internal/adapter/events"
	httpHandler "fuel-wallet/internal/adapter/http/handler"
	"fuel-wallet/internal/adapter/storage/memory"
	redisStorage "fuel-wallet/internal/adapter/storage/redis"
	"fuel-wallet/internal/core/domain"
	"fuel-wallet/internal/core/ports"
	"fuel-wallet/internal/service"
	"fuel-wallet/pkg/apperror"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiApp wires the real router, services, in-memory ledger storage and
// miniredis-backed sequence, idempotency and rate limit stores.
type apiApp struct {
	server    *httptest.Server
	identity  *service.JWTIdentityService
	presenter *service.TokenPresenter
}

func newAPIApp(t *testing.T, enforceLatest bool) *apiApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	accounts := service.NewAccountRegistry(memory.NewAccountRepo(), service.AccountDefaults{
		Seed:        5000,
		DisplayName: "John Doe",
		Fuel:        domain.FuelPetrol,
		Vehicle:     domain.VehicleSUV,
	}, log)
	publisher := events.NewLogPublisher(log)
	gen := service.NewTokenGenerator(30*time.Second, service.NewHMACTokenSigner("api-test-token-secret"), redisStorage.NewTokenSequenceStore(rdb))
	settlement := service.NewSettlementService(gen, accounts, redisStorage.NewIdempotencyCache(rdb), publisher, enforceLatest, log)
	presenter := service.NewTokenPresenter(accounts, gen, 30*time.Second, log)
	exchanges := service.NewExchangeRegistry(settlement, func(string) ports.Scanner {
		return service.NewChannelScanner()
	}, 5*time.Second, log)
	identity := service.NewJWTIdentityService("api-test-jwt-secret", time.Hour, "fuel-wallet-test")

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      service.NewWalletService(accounts, publisher, log),
		Presenter:      presenter,
		ExchangeSvc:    exchanges,
		Identity:       identity,
		RateLimiter:    redisStorage.NewRateLimitStore(rdb),
		DevLogin:       true,
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealth(rdb)},
		Logger:         log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		exchanges.CloseAll()
		presenter.StopAll()
	})

	return &apiApp{server: server, identity: identity, presenter: presenter}
}

func (a *apiApp) bearer(t *testing.T, accountID string, role domain.Role) string {
	t.Helper()
	token, _, err := a.identity.Generate(accountID, role)
	require.NoError(t, err)
	return token
}

// do sends a JSON request and returns the status and decoded envelope.
func (a *apiApp) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var envelope map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &envelope), "body: %s", raw)
	}
	return resp.StatusCode, envelope
}

func data(t *testing.T, envelope map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok, "no data in %v", envelope)
	return d
}

// scanPayer runs scan and capture for payee and waits for RESOLVED.
func (a *apiApp) scanPayer(t *testing.T, payeeToken, code string) {
	t.Helper()
	status, _ := a.do(t, http.MethodPost, "/api/v1/exchange/scan", payeeToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = a.do(t, http.MethodPost, "/api/v1/exchange/capture", payeeToken, map[string]string{"token": code})
	require.Equal(t, http.StatusOK, status)

	require.Eventually(t, func() bool {
		_, env := a.do(t, http.MethodGet, "/api/v1/exchange", payeeToken, nil)
		return data(t, env)["phase"] == string(domain.PhaseResolved)
	}, 2*time.Second, 25*time.Millisecond)
}

func (a *apiApp) paymentCode(t *testing.T, payerToken string) string {
	t.Helper()
	status, env := a.do(t, http.MethodGet, "/api/v1/wallet/token", payerToken, nil)
	require.Equal(t, http.StatusOK, status)
	return data(t, env)["code"].(string)
}

func TestAPI_HealthAndDocs(t *testing.T) {
	app := newAPIApp(t, true)

	status, env := app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", env["status"])

	resp, err := http.Get(app.server.URL + "/swagger/spec")
	require.NoError(t, err)
	defer resp.Body.Close()
	spec, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(spec), "/api/v1/exchange/confirm")

	ui, err := http.Get(app.server.URL + "/swagger")
	require.NoError(t, err)
	defer ui.Body.Close()
	page, _ := io.ReadAll(ui.Body)
	assert.Equal(t, http.StatusOK, ui.StatusCode)
	assert.Contains(t, ui.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(page), "/swagger/spec")
}

func TestAPI_DevLoginAndRoleGating(t *testing.T) {
	app := newAPIApp(t, true)

	status, env := app.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{"account_id": "user123", "role": "client"})
	require.Equal(t, http.StatusCreated, status)
	payerToken := data(t, env)["token"].(string)

	status, _ = app.do(t, http.MethodGet, "/api/v1/wallet", payerToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = app.do(t, http.MethodGet, "/api/v1/exchange", payerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "AUTH_002", env["error_code"])

	payeeToken := app.bearer(t, "provider1", domain.RolePayee)
	status, _ = app.do(t, http.MethodGet, "/api/v1/wallet", payeeToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = app.do(t, http.MethodGet, "/api/v1/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_TopUpScenario(t *testing.T) {
	app := newAPIApp(t, true)
	payerToken := app.bearer(t, "user123", domain.RolePayer)

	status, env := app.do(t, http.MethodGet, "/api/v1/wallet", payerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "$50.00", data(t, env)["balance"])

	status, env = app.do(t, http.MethodPost, "/api/v1/wallet/topup", payerToken, map[string]string{"amount": "20"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "$70.00", data(t, env)["balance_after"])

	for _, amount := range []string{"-5", "0", "ten"} {
		status, env = app.do(t, http.MethodPost, "/api/v1/wallet/topup", payerToken, map[string]string{"amount": amount})
		assert.Equal(t, http.StatusBadRequest, status, "amount %q", amount)
		assert.Equal(t, apperror.CodeInvalidAmount, env["error_code"], "amount %q", amount)
	}

	status, env = app.do(t, http.MethodGet, "/api/v1/wallet/transactions", payerToken, nil)
	require.Equal(t, http.StatusOK, status)
	d := data(t, env)
	assert.Equal(t, float64(2), d["count"])
	items := d["items"].([]interface{})
	assert.Equal(t, "TOPUP", items[0].(map[string]interface{})["kind"])
	assert.Equal(t, "OPENING", items[1].(map[string]interface{})["kind"])
}

func TestAPI_ExchangeEndToEnd(t *testing.T) {
	app := newAPIApp(t, true)
	payerToken := app.bearer(t, "user123", domain.RolePayer)
	payeeToken := app.bearer(t, "provider1", domain.RolePayee)

	status, _ := app.do(t, http.MethodPost, "/api/v1/wallet/topup", payerToken, map[string]string{"amount": "20"})
	require.Equal(t, http.StatusCreated, status)

	code := app.paymentCode(t, payerToken)

	app.scanPayer(t, payeeToken, code)

	_, env := app.do(t, http.MethodGet, "/api/v1/exchange", payeeToken, nil)
	session := data(t, env)["session"].(map[string]interface{})
	payer := session["payer"].(map[string]interface{})
	assert.Equal(t, "John Doe", payer["display_name"])
	assert.Equal(t, "$70.00", payer["balance"])
	assert.Equal(t, "$0.00", session["proposed_amount"])

	status, _ = app.do(t, http.MethodPost, "/api/v1/exchange/confirm", payeeToken, map[string]string{"amount": "30"})
	assert.Equal(t, http.StatusConflict, status, "confirm needs review first")

	status, _ = app.do(t, http.MethodPost, "/api/v1/exchange/review", payeeToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = app.do(t, http.MethodPost, "/api/v1/exchange/confirm", payeeToken, map[string]string{"amount": "80"})
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "WAL_002", env["error_code"])

	_, env = app.do(t, http.MethodGet, "/api/v1/exchange", payeeToken, nil)
	d := data(t, env)
	assert.Equal(t, string(domain.PhaseAwaitingConfirmation), d["phase"])
	assert.Equal(t, "REJECTED", d["last_outcome"].(map[string]interface{})["kind"])

	status, env = app.do(t, http.MethodPost, "/api/v1/exchange/confirm", payeeToken, map[string]string{"amount": "30"})
	require.Equal(t, http.StatusOK, status)
	d = data(t, env)
	assert.Equal(t, string(domain.PhaseIdle), d["phase"])
	assert.NotContains(t, d, "session")
	outcome := d["last_outcome"].(map[string]interface{})
	assert.Equal(t, "SETTLED", outcome["kind"])
	assert.Equal(t, "$40.00", outcome["balance"])

	_, env = app.do(t, http.MethodGet, "/api/v1/wallet", payerToken, nil)
	assert.Equal(t, "$40.00", data(t, env)["balance"])

	_, env = app.do(t, http.MethodGet, "/api/v1/wallet/transactions?limit=1", payerToken, nil)
	newest := data(t, env)["items"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "DEBIT", newest["direction"])
	assert.Equal(t, "$30.00", newest["amount"])
	assert.NotEmpty(t, newest["token_ref"])

	status, _ = app.do(t, http.MethodDelete, "/api/v1/wallet/token", payerToken, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestAPI_CancelAtConfirmationLeavesWallet(t *testing.T) {
	app := newAPIApp(t, true)
	payerToken := app.bearer(t, "user123", domain.RolePayer)
	payeeToken := app.bearer(t, "provider1", domain.RolePayee)

	app.scanPayer(t, payeeToken, app.paymentCode(t, payerToken))
	status, _ := app.do(t, http.MethodPost, "/api/v1/exchange/review", payeeToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, env := app.do(t, http.MethodPost, "/api/v1/exchange/cancel", payeeToken, nil)
	require.Equal(t, http.StatusOK, status)
	d := data(t, env)
	assert.Equal(t, string(domain.PhaseIdle), d["phase"])
	assert.NotContains(t, d, "session")

	_, env = app.do(t, http.MethodGet, "/api/v1/wallet/transactions", payerToken, nil)
	assert.Equal(t, float64(1), data(t, env)["count"])
	_, env = app.do(t, http.MethodGet, "/api/v1/wallet", payerToken, nil)
	assert.Equal(t, "$50.00", data(t, env)["balance"])
}

func TestAPI_MalformedCodeRejected(t *testing.T) {
	app := newAPIApp(t, true)
	payeeToken := app.bearer(t, "provider1", domain.RolePayee)

	status, _ := app.do(t, http.MethodPost, "/api/v1/exchange/scan", payeeToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = app.do(t, http.MethodPost, "/api/v1/exchange/capture", payeeToken, map[string]string{"token": "garbage"})
	require.Equal(t, http.StatusOK, status)

	require.Eventually(t, func() bool {
		_, env := app.do(t, http.MethodGet, "/api/v1/exchange", payeeToken, nil)
		d := data(t, env)
		outcome, ok := d["last_outcome"].(map[string]interface{})
		return d["phase"] == string(domain.PhaseIdle) && ok && outcome["error_code"] == "TOK_001"
	}, 2*time.Second, 10*time.Millisecond)
}

// TestAPI_ConcurrentPayeesNeverOverdraw has ten payees settle $10 each
// against one $50 wallet at the same time.
func TestAPI_ConcurrentPayeesNeverOverdraw(t *testing.T) {
	app := newAPIApp(t, false)
	payerToken := app.bearer(t, "user123", domain.RolePayer)
	code := app.paymentCode(t, payerToken)

	const payees = 10
	tokens := make([]string, payees)
	for i := range tokens {
		tokens[i] = app.bearer(t, fmt.Sprintf("provider%d", i), domain.RolePayee)
		app.scanPayer(t, tokens[i], code)
		status, _ := app.do(t, http.MethodPost, "/api/v1/exchange/review", tokens[i], nil)
		require.Equal(t, http.StatusOK, status)
	}

	var wg sync.WaitGroup
	var settled, insufficient atomic.Int64
	for i := 0; i < payees; i++ {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			status, _ := app.do(t, http.MethodPost, "/api/v1/exchange/confirm", tok, map[string]string{"amount": "10"})
			switch status {
			case http.StatusOK:
				settled.Add(1)
			case http.StatusPaymentRequired:
				insufficient.Add(1)
			}
		}(tokens[i])
	}
	wg.Wait()

	assert.Equal(t, int64(5), settled.Load())
	assert.Equal(t, int64(5), insufficient.Load())

	_, env := app.do(t, http.MethodGet, "/api/v1/wallet", payerToken, nil)
	assert.Equal(t, "$0.00", data(t, env)["balance"])
	_, env = app.do(t, http.MethodGet, "/api/v1/wallet/transactions?limit=100", payerToken, nil)
	assert.Equal(t, float64(6), data(t, env)["count"])
}
