package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"seedpool/internal/protocol"
)

type CompensationHandler struct {
	Engine *protocol.Engine
	Auth   Auth
	Logger *zap.Logger
}

func (h *CompensationHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/compensation")
	group.POST("/claim", h.claim)
	group.POST("/end", h.Auth.RequireAdmin(), h.end)
	group.GET("/events", h.listEvents)
	group.GET("/events/:id", h.getEvent)
}

// @Summary Claim a pro-rata compensation share
// @Tags compensation
// @Param body body addressRequest true "claiming address"
// @Success 200 {object} apiResponse
// @Router /api/v1/compensation/claim [post]
func (h *CompensationHandler) claim(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	paid, err := h.Engine.ClaimCompensation(c.Request.Context(), req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("compensation claimed via api",
			zap.String("address", req.Address),
			zap.String("amount", paid.String()),
		)
	}
	Ok(c, gin.H{"paid": paid}, nil)
}

// @Summary Close the active compensation period
// @Tags compensation
// @Success 200 {object} apiResponse
// @Router /api/v1/compensation/end [post]
func (h *CompensationHandler) end(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	if err := h.Engine.EndCompensationPeriod(c.Request.Context(), callerAddress(c)); err != nil {
		respondError(c, err)
		return
	}
	Ok(c, nil, nil)
}

func (h *CompensationHandler) listEvents(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	Ok(c, h.Engine.CompensationEvents(), nil)
}

func (h *CompensationHandler) getEvent(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	event := h.Engine.CompensationEventByID(id)
	if event == nil {
		Error(c, http.StatusNotFound, "compensation event not found", nil)
		return
	}
	Ok(c, event, nil)
}
