package gateway

// Event topics published by the orchestrator. The ws module broadcasts
// these to connected dashboard clients.
const (
	TopicAttempt = "gateway.attempt" // one event per attempt transition
	TopicResult  = "gateway.result"  // one event per terminal call result
)

// AttemptEvent is the payload for TopicAttempt.
type AttemptEvent struct {
	Attempt   int     `json:"attempt"`
	Outcome   string  `json:"outcome"`
	ElapsedMS int64   `json:"elapsed_ms"`
	WaitMS    int64   `json:"wait_ms,omitempty"`
	Remaining float64 `json:"remaining_seconds"`
}

// ResultEvent is the payload for TopicResult.
type ResultEvent struct {
	Success     bool   `json:"success"`
	RateLimited bool   `json:"rate_limited"`
	ErrorKind   string `json:"error_kind,omitempty"`
	Attempts    int    `json:"attempts"`
	ElapsedMS   int64  `json:"elapsed_ms"`
}
