package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"seedpool/internal/events"
)

// EventsWSHandler streams committed protocol events to websocket clients.
// A client that falls behind its buffer misses events rather than slowing
// the engine; the journal endpoint is the catch-up path.
type EventsWSHandler struct {
	Hub    *events.Hub
	Logger *zap.Logger
}

const streamBuffer = 256

func (h *EventsWSHandler) Register(r *gin.Engine) {
	r.GET("/ws/events", h.stream)
}

func (h *EventsWSHandler) stream(c *gin.Context) {
	if h.Hub == nil {
		Error(c, 500, "event hub unavailable", nil)
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("ws accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ch, cancel := h.Hub.Subscribe(streamBuffer)
	defer cancel()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				if h.Logger != nil {
					h.Logger.Debug("ws write failed, dropping client", zap.Error(err))
				}
				return
			}
		}
	}
}
