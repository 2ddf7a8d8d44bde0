// Package ws streams gateway telemetry to dashboard clients over
// WebSocket. Attempt-level events let the UI show live retry and
// backoff activity during busy periods.
package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/kaliguru/kaliguru/internal/auth"
	"github.com/kaliguru/kaliguru/internal/gateway"
	"github.com/kaliguru/kaliguru/pkg/plugin"
)

// Handler provides the WebSocket endpoint for live gateway telemetry.
type Handler struct {
	hub    *Hub
	tokens *auth.TokenService
	bus    plugin.EventBus
	logger *zap.Logger
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to gateway
// events.
func NewHandler(tokens *auth.TokenService, bus plugin.EventBus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		tokens: tokens,
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/telemetry", h.handleTelemetryStream)
}

// handleTelemetryStream upgrades the connection and streams gateway
// events until the client disconnects.
func (h *Handler) handleTelemetryStream(w http.ResponseWriter, r *http.Request) {
	// Validate JWT from query parameter (browser WS API doesn't support headers).
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token parameter", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Allow any origin since we validate via JWT token.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	sub := &subscriber{
		conn:   conn,
		userID: claims.UserID,
		events: make(chan Message, 256),
		logger: h.logger,
	}

	h.hub.Attach(sub)

	// Run read and write pumps. When either exits, clean up.
	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		sub.writePump(ctx)
		close(done)
	}()

	// readPump blocks until the dashboard disconnects.
	sub.readPump(ctx)

	h.hub.Detach(sub)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// subscribeToEvents forwards gateway bus events to connected clients.
func (h *Handler) subscribeToEvents() {
	if h.bus == nil {
		return
	}

	h.bus.Subscribe(gateway.TopicAttempt, func(_ context.Context, event plugin.Event) {
		attempt, ok := event.Payload.(gateway.AttemptEvent)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageGatewayAttempt,
			Timestamp: event.Timestamp,
			Data:      attempt,
		})
	})

	h.bus.Subscribe(gateway.TopicResult, func(_ context.Context, event plugin.Event) {
		result, ok := event.Payload.(gateway.ResultEvent)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageGatewayResult,
			Timestamp: event.Timestamp,
			Data:      result,
		})
	})

	h.logger.Info("subscribed to gateway events for WebSocket broadcasting")
}
