package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vaultd/internal/identity"
	"vaultd/internal/registry"
	"vaultd/internal/roles"
	"vaultd/internal/service"
	"vaultd/internal/token"
	"vaultd/internal/vault"
)

func newRouter(t *testing.T) (*gin.Engine, *service.VaultService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr, err := roles.NewManager("deployer")
	require.NoError(t, err)
	_, err = mgr.AddKeeper("deployer", "keeper_1")
	require.NoError(t, err)

	reg := registry.New(mgr)
	ledger := token.NewLedger()
	require.NoError(t, ledger.SetVaultContract("vault"))
	v, err := vault.New(vault.Config{Self: "vault"}, mgr, reg, ledger)
	require.NoError(t, err)

	svc := &service.VaultService{
		Roles:    mgr,
		Registry: reg,
		Vault:    v,
		Shares:   ledger,
		Logger:   zap.NewNop(),
	}

	r := gin.New()
	(&VaultHandler{Service: svc}).Register(r)
	(&RolesHandler{Service: svc}).Register(r)
	(&StrategyHandler{Service: svc}).Register(r)
	(&HealthHandler{Roles: mgr}).Register(r)
	return r, svc
}

func doJSON(t *testing.T, r *gin.Engine, method, path, caller, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		req.Header.Set(CallerHeader, caller)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var resp apiResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestDepositEndpoint(t *testing.T) {
	r, svc := newRouter(t)

	rec, resp := doJSON(t, r, http.MethodPost, "/api/v1/vault/deposits", "wallet_1", `{"amount":1000000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1_000_000), data["sharesMinted"])
	assert.Equal(t, uint64(1_000_000), svc.Vault.TotalUnderlying())
}

func TestDepositRequiresCaller(t *testing.T) {
	r, _ := newRouter(t)
	rec, _ := doJSON(t, r, http.MethodPost, "/api/v1/vault/deposits", "", `{"amount":100}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDepositWhilePausedKeepsDomainCode(t *testing.T) {
	r, _ := newRouter(t)

	rec, _ := doJSON(t, r, http.MethodPost, "/api/v1/roles/pause", "deployer", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, r, http.MethodPost, "/api/v1/vault/deposits", "wallet_1", `{"amount":100}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, vault.CodePaused, resp.Code)
}

func TestYieldEndpointAuthorization(t *testing.T) {
	r, _ := newRouter(t)

	_, _ = doJSON(t, r, http.MethodPost, "/api/v1/vault/deposits", "wallet_1", `{"amount":1000000}`)

	rec, resp := doJSON(t, r, http.MethodPost, "/api/v1/vault/yield", "wallet_1", `{"delta":500000}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, vault.CodeNotKeeper, resp.Code)

	rec, resp = doJSON(t, r, http.MethodPost, "/api/v1/vault/yield", "keeper_1", `{"delta":500000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1_500_000), data["totalUnderlying"])
}

func TestStrategyEndpoints(t *testing.T) {
	r, _ := newRouter(t)

	body := `{"chainId":1,"protoId":2,"name":"Aave v3","minAmount":100,"maxAmount":10000000,"feeBps":50}`
	rec, _ := doJSON(t, r, http.MethodPost, "/api/v1/strategies", "deployer", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, r, http.MethodPost, "/api/v1/strategies", "wallet_1", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp := doJSON(t, r, http.MethodGet, "/api/v1/strategies/1/2/validate?amount=500", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["valid"])

	rec, _ = doJSON(t, r, http.MethodGet, "/api/v1/strategies/1/9", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummaryEndpoint(t *testing.T) {
	r, _ := newRouter(t)
	_, _ = doJSON(t, r, http.MethodPost, "/api/v1/vault/deposits", "wallet_1", `{"amount":2000000}`)

	rec, resp := doJSON(t, r, http.MethodGet, "/api/v1/vault", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2_000_000), data["totalUnderlying"])
	assert.Equal(t, float64(1_000_000), data["exchangeRate"])
}

func TestBalanceEndpoint(t *testing.T) {
	r, svc := newRouter(t)
	_, _ = doJSON(t, r, http.MethodPost, "/api/v1/vault/deposits", "wallet_1", `{"amount":750000}`)

	rec, resp := doJSON(t, r, http.MethodGet, "/api/v1/vault/balances/wallet_1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(750_000), data["balance"])
	assert.Equal(t, uint64(750_000), svc.Shares.BalanceOf(identity.Identity("wallet_1")))
}
