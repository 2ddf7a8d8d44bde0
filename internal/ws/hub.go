package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// subscriber is one connected dashboard watching the gateway's retry
// timeline.
type subscriber struct {
	conn   *websocket.Conn
	userID string
	events chan Message
	logger *zap.Logger
}

// Hub fans gateway telemetry out to every attached subscriber.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	logger *zap.Logger
}

// NewHub creates an empty telemetry hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[*subscriber]struct{}),
		logger: logger,
	}
}

// Attach starts delivering telemetry to a subscriber.
func (h *Hub) Attach(s *subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("telemetry subscriber attached", zap.String("user_id", s.userID))
}

// Detach stops delivery and closes the subscriber's event channel.
// Safe to call more than once.
func (h *Hub) Detach(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.events)
	}
	h.mu.Unlock()
	h.logger.Debug("telemetry subscriber detached", zap.String("user_id", s.userID))
}

// Broadcast delivers one event to every subscriber. Attempt events are
// ordered; a gap would make a dashboard's retry timeline lie. A
// subscriber whose buffer is full is therefore detached rather than
// skipped: on reconnect it starts from a clean view instead of a
// silently holey one.
func (h *Hub) Broadcast(msg Message) {
	var lagging []*subscriber

	h.mu.RLock()
	for s := range h.subs {
		select {
		case s.events <- msg:
		default:
			lagging = append(lagging, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range lagging {
		h.logger.Warn("telemetry subscriber lagging, disconnecting",
			zap.String("user_id", s.userID))
		h.Detach(s)
	}
}

// SubscriberCount returns the number of attached subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// writePump forwards buffered events to the socket until the channel
// closes (detach) or a write fails.
func (s *subscriber) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.events:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, s.conn, msg)
			cancel()
			if err != nil {
				s.logger.Debug("telemetry write error", zap.Error(err))
				return
			}
		}
	}
}

// readPump drains the socket to notice disconnects. Telemetry is
// one-way; inbound frames are discarded.
func (s *subscriber) readPump(ctx context.Context) {
	for {
		if _, _, err := s.conn.Read(ctx); err != nil {
			return
		}
	}
}
