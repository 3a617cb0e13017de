package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"seedpool/internal/protocol"
)

type GovernanceHandler struct {
	Engine *protocol.Engine
	Auth   Auth
	Logger *zap.Logger
}

func (h *GovernanceHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/triggers")
	group.GET("", h.listTriggers)
	group.GET("/proposal", h.getProposal)
	group.POST("", h.Auth.RequireAdmin(), h.addTrigger)
	group.DELETE("/:id", h.Auth.RequireAdmin(), h.removeTrigger)
	group.POST("/propose", h.Auth.RequireOracle(), h.propose)
	group.POST("/confirm", h.Auth.RequireMultisig(), h.confirm)
	group.POST("/cancel", h.Auth.RequireAdminOrMultisig(), h.cancel)
	group.POST("/emergency", h.Auth.RequireAdmin(), h.emergency)

	cfg := r.Group("/api/v1/config", h.Auth.RequireAdmin())
	cfg.PUT("/split", h.updateSplit)
	cfg.PUT("/compensation-share", h.updateCompensationShare)
	cfg.PUT("/cooldown", h.updateCooldown)
	cfg.PUT("/roles", h.updateRoles)
}

func (h *GovernanceHandler) listTriggers(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	Ok(c, h.Engine.Triggers(), nil)
}

func (h *GovernanceHandler) getProposal(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	proposal := h.Engine.PendingProposalInfo()
	if proposal == nil {
		Error(c, http.StatusNotFound, "no pending proposal", nil)
		return
	}
	Ok(c, proposal, nil)
}

type triggerRequest struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// @Summary Register a trigger id
// @Tags governance
// @Param body body triggerRequest true "trigger id and description"
// @Success 200 {object} apiResponse
// @Router /api/v1/triggers [post]
func (h *GovernanceHandler) addTrigger(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Engine.AddTrigger(c.Request.Context(), callerAddress(c), req.ID, req.Description); err != nil {
		respondError(c, err)
		return
	}
	Ok(c, gin.H{"id": req.ID}, nil)
}

func (h *GovernanceHandler) removeTrigger(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	if err := h.Engine.RemoveTrigger(c.Request.Context(), callerAddress(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	Ok(c, nil, nil)
}

// @Summary Propose a trigger (oracle)
// @Tags governance
// @Param body body triggerRequest true "trigger id"
// @Success 200 {object} apiResponse
// @Router /api/v1/triggers/propose [post]
func (h *GovernanceHandler) propose(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Engine.ProposeTrigger(c.Request.Context(), callerAddress(c), req.ID); err != nil {
		respondError(c, err)
		return
	}
	Ok(c, h.Engine.PendingProposalInfo(), nil)
}

// @Summary Confirm the pending proposal (multisig)
// @Tags governance
// @Success 200 {object} apiResponse
// @Router /api/v1/triggers/confirm [post]
func (h *GovernanceHandler) confirm(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	event, err := h.Engine.ConfirmTrigger(c.Request.Context(), callerAddress(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Ok(c, event, nil)
}

func (h *GovernanceHandler) cancel(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	if err := h.Engine.CancelTrigger(c.Request.Context(), callerAddress(c)); err != nil {
		respondError(c, err)
		return
	}
	Ok(c, nil, nil)
}

// @Summary Execute a trigger bypassing the two-phase cycle (admin, gated by config)
// @Tags governance
// @Param body body triggerRequest true "trigger id"
// @Success 200 {object} apiResponse
// @Router /api/v1/triggers/emergency [post]
func (h *GovernanceHandler) emergency(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	event, err := h.Engine.EmergencyTrigger(c.Request.Context(), callerAddress(c), req.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.Logger != nil {
		h.Logger.Warn("emergency trigger via api", zap.String("trigger_id", req.ID))
	}
	Ok(c, event, nil)
}

type splitRequest struct {
	UserBps     int64 `json:"user_bps"`
	SeedBps     int64 `json:"seed_bps"`
	TreasuryBps int64 `json:"treasury_bps"`
}

func (h *GovernanceHandler) updateSplit(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req splitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Engine.UpdateYieldSplit(c.Request.Context(), callerAddress(c), req.UserBps, req.SeedBps, req.TreasuryBps); err != nil {
		respondError(c, err)
		return
	}
	Ok(c, h.Engine.Params(), nil)
}

type compensationShareRequest struct {
	Bps int64 `json:"bps"`
}

func (h *GovernanceHandler) updateCompensationShare(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req compensationShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Engine.UpdateMaxCompensationBps(c.Request.Context(), callerAddress(c), req.Bps); err != nil {
		respondError(c, err)
		return
	}
	Ok(c, h.Engine.Params(), nil)
}

type cooldownRequest struct {
	Cooldown string `json:"cooldown"`
}

func (h *GovernanceHandler) updateCooldown(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req cooldownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	cooldown, err := time.ParseDuration(req.Cooldown)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid cooldown duration", nil)
		return
	}
	if err := h.Engine.UpdateCooldown(c.Request.Context(), callerAddress(c), cooldown); err != nil {
		respondError(c, err)
		return
	}
	Ok(c, h.Engine.Params(), nil)
}

type rolesRequest struct {
	Oracle   string `json:"oracle"`
	Multisig string `json:"multisig"`
}

func (h *GovernanceHandler) updateRoles(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req rolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Engine.UpdateRoles(c.Request.Context(), callerAddress(c), req.Oracle, req.Multisig); err != nil {
		respondError(c, err)
		return
	}
	Ok(c, h.Engine.GovernanceRoles(), nil)
}
