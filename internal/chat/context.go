// Package chat is the mentor conversation module: it turns UI-side
// history into completion requests, relays streamed replies, and
// persists transcripts for signed-in users.
package chat

import "github.com/kaliguru/kaliguru/internal/gateway"

// Turn is one prior exchange as the UI stores it: {role, text}. The UI
// speaks in user/mentor roles; the wire protocol wants user/assistant.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// BuildContext assembles the message list for one completion call:
// system prompt, mapped history in original order, then the new user
// message. No truncation happens here; history length is the caller's
// policy.
func BuildContext(system string, history []Turn, message string) []gateway.Message {
	msgs := make([]gateway.Message, 0, len(history)+2)
	msgs = append(msgs, gateway.Message{Role: "system", Content: system})
	for _, t := range history {
		role := "user"
		if t.Role == "mentor" || t.Role == "assistant" {
			role = "assistant"
		}
		msgs = append(msgs, gateway.Message{Role: role, Content: t.Text})
	}
	return append(msgs, gateway.Message{Role: "user", Content: message})
}
