package ws

import "time"

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageGatewayAttempt MessageType = "gateway.attempt"
	MessageGatewayResult  MessageType = "gateway.result"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}
