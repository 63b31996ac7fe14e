// Package stream fans indexed request records out to live subscribers
// (the /v1/logs/stream websocket). Slow consumers lose records instead
// of stalling the indexing pipeline.
package stream

import (
	"sync"

	"github.com/QIRoss/ai-orchestrator/internal/model"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/logger"
)

const subscriberBuffer = 256

type Hub struct {
	mu          sync.Mutex
	subscribers map[int]chan *model.RequestLog
	nextID      int
	dropped     int64
	closed      bool
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[int]chan *model.RequestLog),
	}
}

// Subscribe registers a new consumer and returns its ID together with
// the channel records arrive on. The channel is closed by Unsubscribe
// or by Close.
func (h *Hub) Subscribe() (int, <-chan *model.RequestLog) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan *model.RequestLog, subscriberBuffer)
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a consumer and closes its channel.
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
	}
}

// Publish sends a record to every subscriber. A subscriber with a full
// buffer is skipped.
func (h *Hub) Publish(rec *model.RequestLog) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- rec:
		default:
			h.dropped++
			logger.Debug("stream: dropped record for slow subscriber",
				"subscriber", id, "total_dropped", h.dropped)
		}
	}
}

// Dropped returns how many records were skipped for slow subscribers.
func (h *Hub) Dropped() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Subscribers returns the current consumer count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close closes all subscriber channels. Later Subscribe calls get an
// already-closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}
