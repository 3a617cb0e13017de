// Package events fans committed protocol events out to in-process
// subscribers (the websocket stream handler, primarily).
package events

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"seedpool/internal/models"
)

type Hub struct {
	mu   sync.RWMutex
	subs map[uint64]chan models.ProtocolEvent
	next uint64

	dropped uint64
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   map[uint64]chan models.ProtocolEvent{},
		logger: logger,
	}
}

// Subscribe returns a buffered channel of committed events and a cancel
// func that closes it. Slow subscribers drop events rather than block the
// engine.
func (h *Hub) Subscribe(buf int) (<-chan models.ProtocolEvent, func()) {
	if buf <= 0 {
		buf = 64
	}
	ch := make(chan models.ProtocolEvent, buf)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if existing, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(existing)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) Publish(items ...models.ProtocolEvent) {
	if h == nil || len(items) == 0 {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, item := range items {
		for _, ch := range h.subs {
			select {
			case ch <- item:
			default:
				n := atomic.AddUint64(&h.dropped, 1)
				if h.logger != nil && n%100 == 1 {
					h.logger.Warn("event hub: dropped for slow subscriber",
						zap.Uint64("dropped_total", n),
						zap.String("type", item.Type),
					)
				}
			}
		}
	}
}

func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}
