package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// Problem types for RFC 7807 Problem Details responses.
const (
	ProblemTypeNotFound     = "https://kaliguru.dev/problems/not-found"
	ProblemTypeBadRequest   = "https://kaliguru.dev/problems/bad-request"
	ProblemTypeInternal     = "https://kaliguru.dev/problems/internal-error"
	ProblemTypeUnauthorized = "https://kaliguru.dev/problems/unauthorized"
	ProblemTypeForbidden    = "https://kaliguru.dev/problems/forbidden"
	ProblemTypeRateLimited  = "https://kaliguru.dev/problems/rate-limited"
	ProblemTypeUpstream     = "https://kaliguru.dev/problems/upstream-error"
)

// Problem represents an RFC 7807 Problem Details response.
// RetryAfter is an extension member carrying the busy-retry hint in seconds.
type Problem struct {
	Type       string `json:"type" example:"https://kaliguru.dev/problems/bad-request"`
	Title      string `json:"title" example:"Bad Request"`
	Status     int    `json:"status" example:"400"`
	Detail     string `json:"detail,omitempty" example:"Message required"`
	Instance   string `json:"instance,omitempty" example:"/api/v1/chat/message"`
	RetryAfter int    `json:"retryAfter,omitempty" example:"15"`
}

// WriteProblem writes an RFC 7807 Problem Details JSON response.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(p.RetryAfter))
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NotFound writes a 404 problem response.
func NotFound(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: instance,
	})
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeBadRequest,
		Title:    "Bad Request",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: instance,
	})
}

// InternalError writes a 500 problem response.
func InternalError(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: instance,
	})
}

// UpstreamError writes a 502 problem response for completion API failures.
func UpstreamError(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeUpstream,
		Title:    "Bad Gateway",
		Status:   http.StatusBadGateway,
		Detail:   detail,
		Instance: instance,
	})
}

// RateLimited writes a 429 problem response.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeRateLimited,
		Title:    "Too Many Requests",
		Status:   http.StatusTooManyRequests,
		Detail:   detail,
		Instance: instance,
	})
}

// RateLimitedRetry writes a 429 problem response with a retry hint.
func RateLimitedRetry(w http.ResponseWriter, detail, instance string, retryAfter time.Duration) {
	secs := int(retryAfter / time.Second)
	if secs < 1 {
		secs = 1
	}
	WriteProblem(w, Problem{
		Type:       ProblemTypeRateLimited,
		Title:      "Too Many Requests",
		Status:     http.StatusTooManyRequests,
		Detail:     detail,
		Instance:   instance,
		RetryAfter: secs,
	})
}
