// Package service holds the server-side orchestration logic that sits
// between the HTTP handlers and the storage adapters
package service

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event is the frame sent to gallery subscribers
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes to the connection
}

// Hub fans out upload events to every connected gallery viewer. Delivery
// is best-effort: a failed write drops the subscriber and is never
// reported to the publisher. Deletions are intentionally not broadcast,
// clients pick those up on their next full gallery load.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*subscriber
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]*subscriber),
	}
}

// Subscribe registers a connection and returns the ID to unsubscribe
// with later
func (h *Hub) Subscribe(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.subs[id] = &subscriber{conn: conn}
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.subs[id]; ok {
		s.conn.Close()
		delete(h.subs, id)
	}
}

// Subscribers returns the current connection count
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs)
}

// Broadcast sends an event to every subscriber. Write failures drop the
// subscriber in question, nothing else
func (h *Hub) Broadcast(event string, data any) {
	h.mu.RLock()
	targets := make(map[string]*subscriber, len(h.subs))
	for id, s := range h.subs {
		targets[id] = s
	}
	h.mu.RUnlock()

	frame := Event{Event: event, Data: data}

	for id, s := range targets {
		s.mu.Lock()
		err := s.conn.WriteJSON(frame)
		s.mu.Unlock()

		if err != nil {
			zap.L().Debug("Dropping gallery subscriber", zap.String("id", id), zap.Error(err))
			h.Unsubscribe(id)
		}
	}
}
