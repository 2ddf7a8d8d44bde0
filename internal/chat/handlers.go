package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kaliguru/kaliguru/internal/auth"
	"github.com/kaliguru/kaliguru/internal/gateway"
	"github.com/kaliguru/kaliguru/internal/server"
	"github.com/kaliguru/kaliguru/pkg/plugin"
)

// Served verbatim when the upstream is rate limited, so the learner
// still gets something actionable.
const busyReply = "I'm currently helping many learners and the AI service is temporarily overloaded. Here's what I'd recommend in the meantime:\n\n" +
	"1. **Practice with TryHackMe** - Complete beginner-friendly rooms\n" +
	"2. **Study Linux Basics** - Focus on file system navigation and permissions\n" +
	"3. **Learn Networking** - Understand TCP/IP and common protocols\n" +
	"4. **Set up a lab** - Create a virtual machine for hands-on practice\n\n" +
	"Please try again in a few minutes when the service is less busy!"

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: http.MethodPost, Path: "/message", Handler: m.handleMessage},
		{Method: http.MethodGet, Path: "/history", Handler: m.handleHistory},
		{Method: http.MethodDelete, Path: "/history", Handler: m.handleClearHistory},
	}
}

// ChatContext is the learner profile attached to a message.
type ChatContext struct {
	Level      string   `json:"level"`
	Weaknesses []string `json:"weaknesses"`
	Cert       string   `json:"cert"`
}

// MessageRequest is the chat message request body.
type MessageRequest struct {
	Message string       `json:"message"`
	History []Turn       `json:"history"`
	Context *ChatContext `json:"context"`
	Stream  *bool        `json:"stream"` // default true
}

// MessageResponse is the non-streaming chat reply.
type MessageResponse struct {
	Success     bool   `json:"success"`
	Text        string `json:"text"`
	RateLimited bool   `json:"rateLimited,omitempty"`
	ErrorKind   string `json:"errorKind,omitempty"`
	Message     string `json:"message,omitempty"`
}

// handleMessage answers one mentor chat message, streamed by default.
//
//	@Summary	Send a mentor chat message
//	@Tags		chat
//	@Accept		json
//	@Produce	json
//	@Param		request	body	MessageRequest	true	"Message, optional history and learner context"
//	@Success	200	{object}	MessageResponse
//	@Failure	400	{object}	server.Problem
//	@Failure	502	{object}	server.Problem
//	@Router		/api/v1/chat/message [post]
func (m *Module) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "Invalid request body", r.URL.Path)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		server.BadRequest(w, "Message required", r.URL.Path)
		return
	}

	stream := true
	if req.Stream != nil {
		stream = *req.Stream
	}

	apiKey := m.completer.ResolveKey(r.Header.Get("X-Api-Key"))
	call := gateway.CallRequest{
		Messages:  BuildContext(m.systemPrompt(req.Context), req.History, req.Message),
		MaxTokens: m.cfg.MaxTokens,
		Stream:    stream,
	}

	if stream {
		m.streamReply(w, r, call, apiKey, req.Message)
		return
	}
	m.bufferedReply(w, r, call, apiKey, req.Message)
}

// systemPrompt appends the learner profile to the configured persona.
func (m *Module) systemPrompt(c *ChatContext) string {
	if c == nil {
		return m.cfg.SystemPrompt
	}
	var b strings.Builder
	b.WriteString(m.cfg.SystemPrompt)
	if c.Level != "" {
		fmt.Fprintf(&b, "\nLevel: %s", c.Level)
	}
	if len(c.Weaknesses) > 0 {
		fmt.Fprintf(&b, "\nFocus: %s", strings.Join(c.Weaknesses, ", "))
	}
	if c.Cert != "" {
		fmt.Fprintf(&b, "\nTarget: %s", c.Cert)
	}
	return b.String()
}

func (m *Module) bufferedReply(w http.ResponseWriter, r *http.Request, call gateway.CallRequest, apiKey, userMsg string) {
	result := m.completer.Orchestrate(r.Context(), call, apiKey)
	switch {
	case result.Success:
		m.persist(r.Context(), userMsg, result.Text)
		writeJSON(w, http.StatusOK, MessageResponse{Success: true, Text: result.Text})

	case result.RateLimited:
		// Busy is not an error to the learner: canned guidance with
		// flags the UI can distinguish from a real mentor reply.
		writeJSON(w, http.StatusOK, MessageResponse{
			Text:        busyReply,
			RateLimited: true,
			ErrorKind:   result.ErrorKind,
			Message:     result.Message,
		})

	default:
		m.logger.Error("chat completion failed",
			zap.String("error_kind", result.ErrorKind),
			zap.String("message", result.Message),
		)
		server.UpstreamError(w, "Failed to get response", r.URL.Path)
	}
}

// deltaFrame is one SSE data payload, mirroring the upstream protocol.
type deltaFrame struct {
	Delta     string `json:"delta,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

func (m *Module) streamReply(w http.ResponseWriter, r *http.Request, call gateway.CallRequest, apiKey, userMsg string) {
	chunks, result := m.completer.OrchestrateStream(r.Context(), call, apiKey)
	if !result.Success {
		// Headers are not committed yet, so failures take the same
		// shapes as the buffered path.
		if result.RateLimited {
			writeJSON(w, http.StatusOK, MessageResponse{
				Text:        busyReply,
				RateLimited: true,
				ErrorKind:   result.ErrorKind,
				Message:     result.Message,
			})
			return
		}
		m.logger.Error("chat stream failed",
			zap.String("error_kind", result.ErrorKind),
			zap.String("message", result.Message),
		)
		server.UpstreamError(w, "Failed to get response", r.URL.Path)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	sink := func(chunk gateway.StreamChunk) error {
		if err := writeFrame(w, deltaFrame{Delta: chunk.DeltaText}); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	text, truncated, err := gateway.Relay(r.Context(), chunks, sink)
	if err != nil && r.Context().Err() != nil {
		// Client went away. Nothing left to write, but the partial
		// transcript is still worth keeping.
		m.persist(r.Context(), userMsg, text)
		return
	}
	if truncated {
		_ = writeFrame(w, deltaFrame{Truncated: true})
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}

	m.persist(r.Context(), userMsg, text)
}

func writeFrame(w http.ResponseWriter, frame deltaFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

// persist saves the exchange for a signed-in user. Anonymous chats are
// never stored.
func (m *Module) persist(ctx context.Context, userMsg, reply string) {
	claims := auth.UserFromContext(ctx)
	if claims == nil || m.store == nil || reply == "" {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.store.SaveTurn(saveCtx, claims.UserID, "user", userMsg); err != nil {
		m.logger.Warn("failed to save chat turn", zap.Error(err))
		return
	}
	if err := m.store.SaveTurn(saveCtx, claims.UserID, "mentor", reply); err != nil {
		m.logger.Warn("failed to save chat turn", zap.Error(err))
	}
}

// handleHistory returns the signed-in user's transcript.
//
//	@Summary	Get chat history
//	@Tags		chat
//	@Produce	json
//	@Success	200	{object}	map[string][]StoredMessage
//	@Failure	401	{object}	server.Problem
//	@Router		/api/v1/chat/history [get]
func (m *Module) handleHistory(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		unauthorized(w, r.URL.Path)
		return
	}
	if m.store == nil {
		writeJSON(w, http.StatusOK, map[string][]StoredMessage{"history": {}})
		return
	}

	history, err := m.store.History(r.Context(), claims.UserID, m.cfg.HistoryLimit)
	if err != nil {
		m.logger.Error("failed to load chat history", zap.Error(err))
		server.InternalError(w, "Failed to load chat history", r.URL.Path)
		return
	}
	if history == nil {
		history = []StoredMessage{}
	}
	writeJSON(w, http.StatusOK, map[string][]StoredMessage{"history": history})
}

// handleClearHistory wipes the signed-in user's transcript.
//
//	@Summary	Clear chat history
//	@Tags		chat
//	@Produce	json
//	@Success	200	{object}	map[string]bool
//	@Failure	401	{object}	server.Problem
//	@Router		/api/v1/chat/history [delete]
func (m *Module) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())
	if claims == nil {
		unauthorized(w, r.URL.Path)
		return
	}
	if m.store != nil {
		if err := m.store.Clear(r.Context(), claims.UserID); err != nil {
			m.logger.Error("failed to clear chat history", zap.Error(err))
			server.InternalError(w, "Failed to clear chat history", r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func unauthorized(w http.ResponseWriter, instance string) {
	server.WriteProblem(w, server.Problem{
		Type:     server.ProblemTypeUnauthorized,
		Title:    "Unauthorized",
		Status:   http.StatusUnauthorized,
		Detail:   "Sign in to access chat history",
		Instance: instance,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
