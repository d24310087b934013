package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"vaultd/internal/identity"
	"vaultd/internal/registry"
	"vaultd/internal/service"
)

type StrategyHandler struct {
	Service *service.VaultService
}

func (h *StrategyHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/strategies")
	group.GET("", h.list)
	group.POST("", h.add)
	group.GET("/:chainId/:protoId", h.get)
	group.POST("/:chainId/:protoId/enable", h.enable)
	group.POST("/:chainId/:protoId/disable", h.disable)
	group.PUT("/:chainId/:protoId/params", h.updateParams)
	group.PUT("/:chainId/:protoId/metadata", h.setMetadata)
	group.GET("/:chainId/:protoId/validate", h.validate)
}

// @Summary List strategies, optionally scoped to one chain
// @Tags strategies
// @Param chainId query int false "chain filter"
// @Success 200 {object} apiResponse
// @Router /api/v1/strategies [get]
func (h *StrategyHandler) list(c *gin.Context) {
	if raw := strings.TrimSpace(c.Query("chainId")); raw != "" {
		chainID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			Error(c, http.StatusBadRequest, "chainId must be a positive integer", nil)
			return
		}
		Ok(c, h.Service.Registry.StrategiesForChain(chainID), nil)
		return
	}
	Ok(c, h.Service.Registry.All(), nil)
}

type addStrategyRequest struct {
	ChainID   uint64  `json:"chainId" binding:"required"`
	ProtoID   uint64  `json:"protoId" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	Address   *string `json:"address"`
	MinAmount uint64  `json:"minAmount"`
	MaxAmount uint64  `json:"maxAmount"`
	FeeBps    uint32  `json:"feeBps"`
}

// @Summary Register a strategy
// @Tags strategies
// @Param X-Caller-ID header string true "acting identity"
// @Param body body addStrategyRequest true "strategy"
// @Success 200 {object} apiResponse
// @Router /api/v1/strategies [post]
func (h *StrategyHandler) add(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req addStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	params := registry.AddParams{
		ChainID:   req.ChainID,
		ProtoID:   req.ProtoID,
		Name:      req.Name,
		MinAmount: req.MinAmount,
		MaxAmount: req.MaxAmount,
		FeeBps:    req.FeeBps,
	}
	if req.Address != nil {
		addr := identity.Parse(*req.Address)
		if !addr.IsZero() {
			params.Address = &addr
		}
	}
	key, err := h.Service.AddStrategy(c.Request.Context(), caller, params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, key, nil)
}

// @Summary Fetch one strategy
// @Tags strategies
// @Param chainId path int true "chain id"
// @Param protoId path int true "protocol id"
// @Success 200 {object} apiResponse
// @Router /api/v1/strategies/{chainId}/{protoId} [get]
func (h *StrategyHandler) get(c *gin.Context) {
	chainID, protoID, ok := strategyKey(c)
	if !ok {
		return
	}
	strat, found := h.Service.Registry.GetStrategy(chainID, protoID)
	if !found {
		Error(c, http.StatusNotFound, "strategy not found", nil)
		return
	}
	Ok(c, strat, nil)
}

// @Summary Enable a strategy
// @Tags strategies
// @Param X-Caller-ID header string true "acting identity"
// @Success 200 {object} apiResponse
// @Router /api/v1/strategies/{chainId}/{protoId}/enable [post]
func (h *StrategyHandler) enable(c *gin.Context) {
	h.setEnabled(c, true)
}

// @Summary Disable a strategy
// @Tags strategies
// @Param X-Caller-ID header string true "acting identity"
// @Success 200 {object} apiResponse
// @Router /api/v1/strategies/{chainId}/{protoId}/disable [post]
func (h *StrategyHandler) disable(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *StrategyHandler) setEnabled(c *gin.Context, enabled bool) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	chainID, protoID, ok := strategyKey(c)
	if !ok {
		return
	}
	var err error
	if enabled {
		err = h.Service.EnableStrategy(c.Request.Context(), caller, chainID, protoID)
	} else {
		err = h.Service.DisableStrategy(c.Request.Context(), caller, chainID, protoID)
	}
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"enabled": enabled}, nil)
}

type updateParamsRequest struct {
	MinAmount uint64 `json:"minAmount"`
	MaxAmount uint64 `json:"maxAmount"`
	FeeBps    uint32 `json:"feeBps"`
}

// @Summary Update strategy bounds and fee
// @Tags strategies
// @Param X-Caller-ID header string true "acting identity"
// @Param body body updateParamsRequest true "parameters"
// @Success 200 {object} apiResponse
// @Router /api/v1/strategies/{chainId}/{protoId}/params [put]
func (h *StrategyHandler) updateParams(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	chainID, protoID, ok := strategyKey(c)
	if !ok {
		return
	}
	var req updateParamsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	err := h.Service.UpdateStrategyParams(c.Request.Context(), caller, chainID, protoID,
		req.MinAmount, req.MaxAmount, req.FeeBps)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"chainId": chainID, "protoId": protoID}, nil)
}

// @Summary Set strategy metadata
// @Tags strategies
// @Param X-Caller-ID header string true "acting identity"
// @Param body body registry.Metadata true "metadata"
// @Success 200 {object} apiResponse
// @Router /api/v1/strategies/{chainId}/{protoId}/metadata [put]
func (h *StrategyHandler) setMetadata(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	chainID, protoID, ok := strategyKey(c)
	if !ok {
		return
	}
	var meta registry.Metadata
	if err := c.ShouldBindJSON(&meta); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Service.SetStrategyMetadata(c.Request.Context(), caller, chainID, protoID, meta); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"chainId": chainID, "protoId": protoID}, nil)
}

// @Summary Check whether an amount fits a strategy
// @Tags strategies
// @Param amount query int true "amount"
// @Success 200 {object} apiResponse
// @Router /api/v1/strategies/{chainId}/{protoId}/validate [get]
func (h *StrategyHandler) validate(c *gin.Context) {
	chainID, protoID, ok := strategyKey(c)
	if !ok {
		return
	}
	amount, err := strconv.ParseUint(strings.TrimSpace(c.Query("amount")), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "amount must be a positive integer", nil)
		return
	}
	Ok(c, gin.H{"valid": h.Service.Registry.ValidateStrategy(chainID, protoID, amount)}, nil)
}

func strategyKey(c *gin.Context) (uint64, uint64, bool) {
	chainID, err := strconv.ParseUint(strings.TrimSpace(c.Param("chainId")), 10, 64)
	if err != nil || chainID == 0 {
		Error(c, http.StatusBadRequest, "chainId must be a positive integer", nil)
		return 0, 0, false
	}
	protoID, err := strconv.ParseUint(strings.TrimSpace(c.Param("protoId")), 10, 64)
	if err != nil || protoID == 0 {
		Error(c, http.StatusBadRequest, "protoId must be a positive integer", nil)
		return 0, 0, false
	}
	return chainID, protoID, true
}
