package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"seedpool/internal/protocol"
	"seedpool/internal/repository"
)

type StatusHandler struct {
	Engine *protocol.Engine
	Repo   repository.Repository
}

func (h *StatusHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/status", h.status)
	r.GET("/api/v1/positions/:address", h.position)
	r.GET("/api/v1/events", h.listEvents)
}

// @Summary Aggregate protocol status
// @Tags status
// @Success 200 {object} apiResponse
// @Router /api/v1/status [get]
func (h *StatusHandler) status(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	Ok(c, h.Engine.Status(c.Request.Context()), nil)
}

func (h *StatusHandler) position(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	address := strings.TrimSpace(c.Param("address"))
	if address == "" {
		Error(c, http.StatusBadRequest, "address required", nil)
		return
	}
	status := h.Engine.UserStatusFor(address)
	if status == nil {
		Error(c, http.StatusNotFound, "position not found", nil)
		return
	}
	Ok(c, status, nil)
}

// @Summary Protocol event journal
// @Tags status
// @Param type query string false "event type"
// @Param actor query string false "acting address"
// @Param since query string false "RFC3339 lower bound"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/events [get]
func (h *StatusHandler) listEvents(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListEventsParams{Limit: limit, Offset: offset}
	if v := strings.TrimSpace(c.Query("type")); v != "" {
		params.Type = &v
	}
	if v := strings.TrimSpace(c.Query("actor")); v != "" {
		params.Actor = &v
	}
	if v := strings.TrimSpace(c.Query("since")); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid since timestamp", nil)
			return
		}
		params.Since = &since
	}

	items, err := h.Repo.ListProtocolEvents(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountProtocolEvents(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}
