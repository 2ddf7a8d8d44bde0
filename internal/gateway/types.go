// Package gateway implements the resilient completion gateway: bounded
// retry with adaptive backoff on upstream rate limiting, deadline budget
// tracking against the platform's hard request timeout, and streaming
// relay with truncation detection.
package gateway

import "time"

// Message is a single turn in a completion conversation.
type Message struct {
	Role    string `json:"role"` // system, user, or assistant
	Content string `json:"content"`
}

// CallRequest describes one completion call. Immutable once constructed.
type CallRequest struct {
	Messages  []Message
	Model     string // empty means the configured default
	MaxTokens int
	Stream    bool
}

// OutcomeKind classifies a single upstream attempt.
type OutcomeKind int

const (
	Success OutcomeKind = iota
	RateLimited
	AuthError
	UpstreamError
	MalformedResponse
	DeadlineExhausted
)

// String returns the wire-level name of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case RateLimited:
		return "rate_limited"
	case AuthError:
		return "auth_error"
	case UpstreamError:
		return "upstream_error"
	case MalformedResponse:
		return "malformed_response"
	case DeadlineExhausted:
		return "deadline_exhausted"
	default:
		return "unknown"
	}
}

// Usage reports upstream token accounting for a successful call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AttemptOutcome is the classified result of one upstream attempt.
type AttemptOutcome struct {
	Kind       OutcomeKind
	Text       string // populated on Success in buffered mode
	Usage      Usage
	Message    string        // human-readable detail for failures
	RetryAfter time.Duration // server-supplied hint, zero when absent
}

// CallResult is the orchestrator's terminal output. Exactly one of
// Success, RateLimited, or a non-empty ErrorKind describes the outcome.
// A deadline-exhausted call is shaped as a rate-limited result so
// callers have a single "busy" condition to check; ErrorKind still
// records the distinction.
type CallResult struct {
	Success        bool
	Text           string
	Usage          Usage
	RateLimited    bool
	ErrorKind      string
	Message        string
	RetryAfterHint time.Duration
	Attempts       int
}

// StreamChunk is one increment of a streamed completion. The sequence
// for a call carries exactly one final chunk, emitted last. A mid-stream
// failure arrives as a final chunk with Err set, never as a silently
// closed channel.
type StreamChunk struct {
	DeltaText string
	IsFinal   bool
	Err       error
}
