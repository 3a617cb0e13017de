package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"seedpool/internal/protocol"
)

type PoolHandler struct {
	Engine *protocol.Engine
	Auth   Auth
	Logger *zap.Logger
}

func (h *PoolHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/pool")
	group.POST("/deposit", h.deposit)
	group.POST("/withdraw", h.withdraw)
	group.POST("/harvest", h.harvest)
	group.POST("/yield/claim", h.claimYield)
	group.POST("/yield/distribute", h.Auth.RequireAdmin(), h.distributeYieldPool)

	r.POST("/api/v1/treasury/withdraw", h.Auth.RequireAdmin(), h.withdrawTreasury)
}

type amountRequest struct {
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
}

// @Summary Deposit into the pool
// @Tags pool
// @Param body body amountRequest true "address and amount"
// @Success 200 {object} apiResponse
// @Router /api/v1/pool/deposit [post]
func (h *PoolHandler) deposit(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Engine.Deposit(c.Request.Context(), req.Address, req.Amount); err != nil {
		respondError(c, err)
		return
	}
	Ok(c, h.Engine.UserStatusFor(req.Address), nil)
}

// @Summary Withdraw principal
// @Tags pool
// @Param body body amountRequest true "address and amount"
// @Success 200 {object} apiResponse
// @Router /api/v1/pool/withdraw [post]
func (h *PoolHandler) withdraw(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Engine.Withdraw(c.Request.Context(), req.Address, req.Amount); err != nil {
		respondError(c, err)
		return
	}
	Ok(c, h.Engine.UserStatusFor(req.Address), nil)
}

// @Summary Harvest accrued vault yield
// @Tags pool
// @Success 200 {object} apiResponse
// @Router /api/v1/pool/harvest [post]
func (h *PoolHandler) harvest(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	harvested, err := h.Engine.HarvestYield(c.Request.Context(), callerAddress(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, gin.H{"harvested": harvested}, nil)
}

type addressRequest struct {
	Address string `json:"address"`
}

// @Summary Claim accumulated yield share
// @Tags pool
// @Param body body addressRequest true "claiming address"
// @Success 200 {object} apiResponse
// @Router /api/v1/pool/yield/claim [post]
func (h *PoolHandler) claimYield(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	paid, err := h.Engine.ClaimYield(c.Request.Context(), req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, gin.H{"paid": paid}, nil)
}

// @Summary Distribute the yield pool (deposit_split policy)
// @Tags pool
// @Success 200 {object} apiResponse
// @Router /api/v1/pool/yield/distribute [post]
func (h *PoolHandler) distributeYieldPool(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	distributed, err := h.Engine.DistributeYieldPool(c.Request.Context(), callerAddress(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, gin.H{"distributed": distributed}, nil)
}

type treasuryWithdrawRequest struct {
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
}

// @Summary Pay out accumulated treasury share
// @Tags treasury
// @Param body body treasuryWithdrawRequest true "recipient and amount"
// @Success 200 {object} apiResponse
// @Router /api/v1/treasury/withdraw [post]
func (h *PoolHandler) withdrawTreasury(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req treasuryWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Engine.WithdrawTreasury(c.Request.Context(), callerAddress(c), req.Recipient, req.Amount); err != nil {
		respondError(c, err)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("treasury withdrawal",
			zap.String("recipient", req.Recipient),
			zap.String("amount", req.Amount.String()),
		)
	}
	Ok(c, gin.H{"recipient": req.Recipient, "amount": req.Amount}, nil)
}
