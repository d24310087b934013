package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"vaultd/internal/identity"
	"vaultd/internal/repository"
	"vaultd/internal/service"
)

type VaultHandler struct {
	Service *service.VaultService
}

func (h *VaultHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/vault")
	group.GET("", h.summary)
	group.POST("/deposits", h.deposit)
	group.POST("/withdrawals", h.withdraw)
	group.GET("/withdrawals/preview", h.previewWithdraw)
	group.POST("/yield", h.updateYield)
	group.PUT("/fees/deposit", h.setDepositFee)
	group.PUT("/fees/withdraw", h.setWithdrawFee)
	group.PUT("/cap", h.setCap)
	group.GET("/balances/:id", h.balance)
	group.POST("/strategy-requests", h.requestStrategyChange)
	group.GET("/events", h.listEvents)
	group.GET("/rates", h.listRates)
}

// @Summary Vault accounting summary
// @Tags vault
// @Success 200 {object} apiResponse
// @Router /api/v1/vault [get]
func (h *VaultHandler) summary(c *gin.Context) {
	Ok(c, h.Service.Summarize(), nil)
}

type depositRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
}

// @Summary Deposit underlying for shares
// @Tags vault
// @Param X-Caller-ID header string true "acting identity"
// @Param body body depositRequest true "deposit"
// @Success 200 {object} apiResponse
// @Router /api/v1/vault/deposits [post]
func (h *VaultHandler) deposit(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	minted, err := h.Service.Deposit(c.Request.Context(), caller, req.Amount)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"sharesMinted": minted}, nil)
}

type withdrawRequest struct {
	Shares uint64 `json:"shares" binding:"required"`
}

// @Summary Redeem shares for underlying
// @Tags vault
// @Param X-Caller-ID header string true "acting identity"
// @Param body body withdrawRequest true "withdrawal"
// @Success 200 {object} apiResponse
// @Router /api/v1/vault/withdrawals [post]
func (h *VaultHandler) withdraw(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	amount, err := h.Service.Withdraw(c.Request.Context(), caller, req.Shares)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"amountOut": amount}, nil)
}

// @Summary Preview a withdrawal at current totals
// @Tags vault
// @Param shares query int true "share count"
// @Success 200 {object} apiResponse
// @Router /api/v1/vault/withdrawals/preview [get]
func (h *VaultHandler) previewWithdraw(c *gin.Context) {
	shares, err := strconv.ParseUint(strings.TrimSpace(c.Query("shares")), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "shares must be a positive integer", nil)
		return
	}
	Ok(c, gin.H{"amountOut": h.Service.Vault.PreviewWithdraw(shares)}, nil)
}

type yieldRequest struct {
	Delta int64 `json:"delta" binding:"required"`
}

// @Summary Apply a keeper-reported yield adjustment
// @Tags vault
// @Param X-Caller-ID header string true "acting identity"
// @Param body body yieldRequest true "signed delta"
// @Success 200 {object} apiResponse
// @Router /api/v1/vault/yield [post]
func (h *VaultHandler) updateYield(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req yieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	total, err := h.Service.UpdateVirtualYield(c.Request.Context(), caller, req.Delta)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"totalUnderlying": total}, nil)
}

type feeRequest struct {
	Bps uint32 `json:"bps"`
}

// @Summary Set the deposit fee
// @Tags vault
// @Param X-Caller-ID header string true "acting identity"
// @Param body body feeRequest true "basis points"
// @Success 200 {object} apiResponse
// @Router /api/v1/vault/fees/deposit [put]
func (h *VaultHandler) setDepositFee(c *gin.Context) {
	h.setFee(c, h.Service.SetDepositFee)
}

// @Summary Set the withdraw fee
// @Tags vault
// @Param X-Caller-ID header string true "acting identity"
// @Param body body feeRequest true "basis points"
// @Success 200 {object} apiResponse
// @Router /api/v1/vault/fees/withdraw [put]
func (h *VaultHandler) setWithdrawFee(c *gin.Context) {
	h.setFee(c, h.Service.SetWithdrawFee)
}

func (h *VaultHandler) setFee(c *gin.Context, apply func(ctx context.Context, caller identity.Identity, bps uint32) (uint32, error)) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req feeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	got, err := apply(c.Request.Context(), caller, req.Bps)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"bps": got}, nil)
}

type capRequest struct {
	Cap *uint64 `json:"cap"`
}

// @Summary Set or clear the deposit cap
// @Tags vault
// @Param X-Caller-ID header string true "acting identity"
// @Param body body capRequest true "cap, null to clear"
// @Success 200 {object} apiResponse
// @Router /api/v1/vault/cap [put]
func (h *VaultHandler) setCap(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req capRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	got, err := h.Service.SetCap(c.Request.Context(), caller, req.Cap)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"cap": got}, nil)
}

// @Summary Share balance of one holder
// @Tags vault
// @Param id path string true "holder identity"
// @Success 200 {object} apiResponse
// @Router /api/v1/vault/balances/{id} [get]
func (h *VaultHandler) balance(c *gin.Context) {
	id := identity.Parse(c.Param("id"))
	if id.IsZero() {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	Ok(c, gin.H{
		"id":      id.String(),
		"balance": h.Service.Shares.BalanceOf(id),
	}, nil)
}

type strategyChangeRequest struct {
	FromChainID uint64 `json:"fromChainId"`
	FromProtoID uint64 `json:"fromProtoId"`
	ToChainID   uint64 `json:"toChainId" binding:"required"`
	ToProtoID   uint64 `json:"toProtoId" binding:"required"`
	Amount      uint64 `json:"amount"`
	ReasonCode  uint32 `json:"reasonCode"`
}

// @Summary Authorize a capital reallocation intent
// @Tags vault
// @Param X-Caller-ID header string true "acting identity"
// @Param body body strategyChangeRequest true "reallocation"
// @Success 200 {object} apiResponse
// @Router /api/v1/vault/strategy-requests [post]
func (h *VaultHandler) requestStrategyChange(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req strategyChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	err := h.Service.RequestStrategyChange(c.Request.Context(), caller,
		req.FromChainID, req.FromProtoID, req.ToChainID, req.ToProtoID, req.Amount, req.ReasonCode)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"authorized": true}, nil)
}

// @Summary Journal of vault operations
// @Tags vault
// @Param kind query string false "event kind"
// @Param caller query string false "acting identity"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/vault/events [get]
func (h *VaultHandler) listEvents(c *gin.Context) {
	params := repository.ListVaultEventsParams{
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	}
	if kind := strings.TrimSpace(c.Query("kind")); kind != "" {
		params.Kind = &kind
	}
	if caller := strings.TrimSpace(c.Query("caller")); caller != "" {
		params.Caller = &caller
	}
	items, total, err := h.Service.ListEvents(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"total": total})
}

// @Summary Exchange-rate history
// @Tags vault
// @Param limit query int false "page size"
// @Success 200 {object} apiResponse
// @Router /api/v1/vault/rates [get]
func (h *VaultHandler) listRates(c *gin.Context) {
	items, err := h.Service.ListRateSamples(c.Request.Context(), repository.ListRateSamplesParams{
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func queryInt(c *gin.Context, key string) int {
	val, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}
	return val
}
