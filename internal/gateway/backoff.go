package gateway

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// BackoffPolicy computes the wait before a retry after an upstream rate
// limit. A server-supplied hint is preferred; otherwise a fixed table
// indexed by attempt applies, clamped to its last entry. The chosen wait
// is then clamped to min(candidate, remaining-reserve, hard cap), where
// the reserve guarantees time for one last attempt after waiting.
type BackoffPolicy struct {
	Table   []time.Duration // fallback waits indexed by attempt (1-based)
	Reserve time.Duration   // budget held back for the final attempt
	HardCap time.Duration   // upper bound on any single wait
}

// NextWait returns the wait before attempt+1 and whether a retry is
// worth it at all. ok=false means the budget cannot absorb the wait
// plus a final attempt; the caller must stop retrying rather than spin
// on a degenerate zero wait. Waiting less than the advised duration is
// pointless (the upstream would rate-limit again), so a wait that does
// not fit is refused, not shrunk.
func (p BackoffPolicy) NextWait(attempt int, hint, remaining time.Duration) (wait time.Duration, ok bool) {
	candidate := hint
	if candidate <= 0 {
		if len(p.Table) == 0 {
			return 0, false
		}
		idx := attempt - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= len(p.Table) {
			idx = len(p.Table) - 1
		}
		candidate = p.Table[idx]
	}

	if p.HardCap > 0 && candidate > p.HardCap {
		candidate = p.HardCap
	}
	if candidate+p.Reserve >= remaining {
		return 0, false
	}
	return candidate, true
}

// ParseRetryAfter interprets a Retry-After header value as either an
// integer second count or an HTTP date. Returns zero when the value is
// absent, malformed, or in the past.
func ParseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
