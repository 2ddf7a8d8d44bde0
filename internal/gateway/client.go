package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const completionsPath = "/openai/v1/chat/completions"

// ErrStreamTruncated marks a stream that ended before its final frame.
// The accumulated partial text is still valid and must be kept.
var ErrStreamTruncated = errors.New("stream ended before completion")

// CompletionClient issues a single attempt against the upstream
// completion endpoint and classifies the raw response.
type CompletionClient interface {
	Call(ctx context.Context, req CallRequest, apiKey string) AttemptOutcome
	Stream(ctx context.Context, req CallRequest, apiKey string) (<-chan StreamChunk, AttemptOutcome)
}

// Compile-time interface guard.
var _ CompletionClient = (*Client)(nil)

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL     string
	model       string
	relayBuffer int
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient creates a completion client. No per-request timeout is set
// on the HTTP client; the deadline budget is the timeout authority and
// callers pass a context bounded by it.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	buffer := cfg.RelayBuffer
	if buffer <= 0 {
		buffer = 32
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		relayBuffer: buffer,
		httpClient:  &http.Client{},
		logger:      logger,
	}
}

// Call issues one buffered completion attempt.
func (c *Client) Call(ctx context.Context, req CallRequest, apiKey string) AttemptOutcome {
	resp, outcome := c.post(ctx, req, apiKey, false)
	if resp == nil {
		return outcome
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return AttemptOutcome{Kind: MalformedResponse, Message: fmt.Sprintf("decode completion: %v", err)}
	}
	if len(parsed.Choices) == 0 {
		return AttemptOutcome{Kind: MalformedResponse, Message: "completion response has no choices"}
	}

	return AttemptOutcome{
		Kind: Success,
		Text: parsed.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}
}

// Stream issues one streaming attempt. On Success the returned channel
// carries chunks in arrival order and exactly one final chunk; the
// producer goroutine pauses when the channel is full, which applies
// backpressure to the upstream read.
func (c *Client) Stream(ctx context.Context, req CallRequest, apiKey string) (<-chan StreamChunk, AttemptOutcome) {
	resp, outcome := c.post(ctx, req, apiKey, true)
	if resp == nil {
		return nil, outcome
	}

	chunks := make(chan StreamChunk, c.relayBuffer)
	go c.readStream(ctx, resp.Body, chunks)
	return chunks, AttemptOutcome{Kind: Success}
}

// post sends the request and classifies non-2xx statuses. A nil
// response means the outcome is terminal for this attempt.
func (c *Client) post(ctx context.Context, req CallRequest, apiKey string, stream bool) (*http.Response, AttemptOutcome) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	payload := chatRequest{
		Model:     model,
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
		Stream:    stream,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, AttemptOutcome{Kind: UpstreamError, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, AttemptOutcome{Kind: UpstreamError, Message: fmt.Sprintf("build request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, AttemptOutcome{Kind: UpstreamError, Message: fmt.Sprintf("upstream request: %v", err)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, AttemptOutcome{Kind: Success}
	}

	defer resp.Body.Close()
	detail := readErrorDetail(resp)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, AttemptOutcome{
			Kind:       RateLimited,
			Message:    detail,
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, AttemptOutcome{Kind: AuthError, Message: detail}
	default:
		return nil, AttemptOutcome{Kind: UpstreamError, Message: fmt.Sprintf("upstream status %d: %s", resp.StatusCode, detail)}
	}
}

// readStream parses SSE frames into chunks. Always emits exactly one
// final chunk before returning; a drop before the [DONE] terminator
// produces a final chunk carrying ErrStreamTruncated.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, chunks chan<- StreamChunk) {
	defer body.Close()
	defer close(chunks)

	send := func(chunk StreamChunk) bool {
		select {
		case chunks <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		if payload == "[DONE]" {
			send(StreamChunk{IsFinal: true})
			return
		}

		var frame deltaFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			c.logger.Debug("skipping undecodable stream frame", zap.Error(err))
			continue
		}
		if len(frame.Choices) == 0 {
			continue
		}
		delta := frame.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if !send(StreamChunk{DeltaText: delta}) {
			return
		}
	}

	err := scanner.Err()
	if err == nil {
		err = ErrStreamTruncated
	}
	send(StreamChunk{IsFinal: true, Err: err})
}

// readErrorDetail extracts the upstream error message, bounded to avoid
// unbounded reads.
func readErrorDetail(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return resp.Status
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return resp.Status
}

// --- upstream REST API types ---

type chatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
	Stream    bool      `json:"stream"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type deltaFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}
