package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"seedpool/internal/protocol"
)

type DormancyHandler struct {
	Engine *protocol.Engine
	Auth   Auth
	Logger *zap.Logger
}

func (h *DormancyHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/dormancy")
	group.GET("", h.status)
	group.POST("/activate", h.activate)
	group.POST("/withdraw", h.withdraw)

	r.POST("/api/v1/heartbeat", h.Auth.RequireAdmin(), h.heartbeat)
}

func (h *DormancyHandler) status(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	Ok(c, h.Engine.Dormancy(), nil)
}

// @Summary Activate dormancy recovery (anyone, once the threshold passes)
// @Tags dormancy
// @Success 200 {object} apiResponse
// @Router /api/v1/dormancy/activate [post]
func (h *DormancyHandler) activate(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	if err := h.Engine.ActivateDormancy(c.Request.Context(), callerAddress(c)); err != nil {
		respondError(c, err)
		return
	}
	if h.Logger != nil {
		h.Logger.Warn("dormancy activated via api", zap.String("caller", callerAddress(c)))
	}
	Ok(c, h.Engine.Dormancy(), nil)
}

// @Summary Withdraw a pro-rata share of the recovered balance
// @Tags dormancy
// @Param body body addressRequest true "withdrawing address"
// @Success 200 {object} apiResponse
// @Router /api/v1/dormancy/withdraw [post]
func (h *DormancyHandler) withdraw(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	paid, err := h.Engine.DormancyWithdraw(c.Request.Context(), req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, gin.H{"paid": paid}, nil)
}

func (h *DormancyHandler) heartbeat(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	if err := h.Engine.Heartbeat(c.Request.Context(), callerAddress(c)); err != nil {
		respondError(c, err)
		return
	}
	Ok(c, nil, nil)
}
