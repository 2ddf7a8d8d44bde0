package gateway

import (
	"context"
	"time"

	"github.com/kaliguru/kaliguru/pkg/plugin"
	"go.uber.org/zap"
)

// Orchestrator composes the completion client, backoff policy, and
// deadline budget into a multi-attempt call with a uniform result
// contract. Orchestrations are independent; the only state shared
// between concurrent calls is this read-only struct.
type Orchestrator struct {
	client CompletionClient
	policy BackoffPolicy
	cfg    Config
	logger *zap.Logger
	bus    plugin.Publisher // nil disables telemetry events

	// sleep is swappable in tests. Honors context cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator from config. bus may be nil.
func NewOrchestrator(cfg Config, client CompletionClient, logger *zap.Logger, bus plugin.Publisher) *Orchestrator {
	return &Orchestrator{
		client: client,
		policy: cfg.Policy(),
		cfg:    cfg,
		logger: logger,
		bus:    bus,
		sleep:  sleepCtx,
	}
}

// ResolveKey picks the upstream credential for one call: a caller-
// supplied key overrides the configured system key. Resolution happens
// once per call and the value is passed through by value, never stored
// or mutated mid-retry.
func (o *Orchestrator) ResolveKey(callerKey string) string {
	if callerKey != "" {
		return callerKey
	}
	return o.cfg.APIKey
}

// Orchestrate runs a buffered completion call to a terminal CallResult.
func (o *Orchestrator) Orchestrate(ctx context.Context, req CallRequest, apiKey string) CallResult {
	return o.run(ctx, func(attemptCtx context.Context) AttemptOutcome {
		return o.client.Call(attemptCtx, req, apiKey)
	})
}

// OrchestrateStream runs a streaming call. Retries happen while
// establishing the stream; once chunks flow the attempt is final. On a
// successful result the returned channel is live and the caller owns
// draining it (normally through Relay).
func (o *Orchestrator) OrchestrateStream(ctx context.Context, req CallRequest, apiKey string) (<-chan StreamChunk, CallResult) {
	var chunks <-chan StreamChunk
	result := o.run(ctx, func(attemptCtx context.Context) AttemptOutcome {
		ch, outcome := o.client.Stream(attemptCtx, req, apiKey)
		if outcome.Kind == Success {
			chunks = ch
		}
		return outcome
	})
	if !result.Success {
		return nil, result
	}
	return chunks, result
}

// run is the attempt state machine. Success and hard failures are
// terminal on first occurrence; only rate limits retry, bounded by
// MaxAttempts and the deadline budget.
func (o *Orchestrator) run(ctx context.Context, attempt func(context.Context) AttemptOutcome) CallResult {
	budget := NewBudget(o.cfg.Ceiling)
	maxAttempts := o.cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastHint time.Duration
	for n := 1; n <= maxAttempts; n++ {
		// Fail fast when there is not enough budget for another round
		// trip. Letting the host kill the request mid-flight would be
		// an unobservable failure instead of a clean busy result.
		if n > 1 && budget.Remaining() < o.cfg.SafetyThreshold {
			o.logAttempt(n, budget, DeadlineExhausted, 0)
			return o.finish(budget, CallResult{
				RateLimited:    true,
				ErrorKind:      DeadlineExhausted.String(),
				Message:        "not enough time left for another attempt",
				RetryAfterHint: lastHint,
				Attempts:       n - 1,
			})
		}

		outcome := attempt(ctx)
		attemptsTotal.WithLabelValues(outcome.Kind.String()).Inc()

		switch outcome.Kind {
		case Success:
			o.logAttempt(n, budget, outcome.Kind, 0)
			return o.finish(budget, CallResult{
				Success:  true,
				Text:     outcome.Text,
				Usage:    outcome.Usage,
				Attempts: n,
			})

		case RateLimited:
			if outcome.RetryAfter > 0 {
				lastHint = outcome.RetryAfter
			}
			if n == maxAttempts {
				o.logAttempt(n, budget, outcome.Kind, 0)
				return o.finish(budget, CallResult{
					RateLimited:    true,
					ErrorKind:      RateLimited.String(),
					Message:        outcome.Message,
					RetryAfterHint: lastHint,
					Attempts:       n,
				})
			}

			wait, ok := o.policy.NextWait(n, outcome.RetryAfter, budget.Remaining())
			if !ok {
				o.logAttempt(n, budget, outcome.Kind, 0)
				return o.finish(budget, CallResult{
					RateLimited:    true,
					ErrorKind:      DeadlineExhausted.String(),
					Message:        "retry budget exhausted",
					RetryAfterHint: lastHint,
					Attempts:       n,
				})
			}

			o.logAttempt(n, budget, outcome.Kind, wait)
			waitSecondsTotal.Add(wait.Seconds())
			if err := o.sleep(ctx, wait); err != nil {
				return o.finish(budget, CallResult{
					ErrorKind: UpstreamError.String(),
					Message:   "call cancelled during backoff",
					Attempts:  n,
				})
			}

		default:
			// Auth errors, upstream errors, and malformed bodies are
			// not transient. Retrying wastes budget.
			o.logAttempt(n, budget, outcome.Kind, 0)
			return o.finish(budget, CallResult{
				ErrorKind: outcome.Kind.String(),
				Message:   outcome.Message,
				Attempts:  n,
			})
		}
	}

	// Unreachable: the loop always returns at n == maxAttempts.
	return CallResult{ErrorKind: UpstreamError.String(), Message: "orchestration ended without result"}
}

// finish records terminal metrics and telemetry for a call.
func (o *Orchestrator) finish(budget DeadlineBudget, result CallResult) CallResult {
	outcome := result.ErrorKind
	if result.Success {
		outcome = Success.String()
	}
	callsTotal.WithLabelValues(outcome).Inc()
	if result.Attempts > 0 {
		attemptsPerCall.Observe(float64(result.Attempts))
	}

	if o.bus != nil {
		_ = o.bus.Publish(context.Background(), plugin.Event{
			Topic:     TopicResult,
			Source:    "gateway",
			Timestamp: time.Now(),
			Payload: ResultEvent{
				Success:     result.Success,
				RateLimited: result.RateLimited,
				ErrorKind:   result.ErrorKind,
				Attempts:    result.Attempts,
				ElapsedMS:   budget.Elapsed().Milliseconds(),
			},
		})
	}
	return result
}

// logAttempt emits the per-attempt structured log line and telemetry
// event.
func (o *Orchestrator) logAttempt(n int, budget DeadlineBudget, kind OutcomeKind, wait time.Duration) {
	fields := []zap.Field{
		zap.Int("attempt", n),
		zap.String("outcome", kind.String()),
		zap.Duration("elapsed", budget.Elapsed()),
		zap.Duration("remaining", budget.Remaining()),
	}
	if wait > 0 {
		fields = append(fields, zap.Duration("wait", wait))
	}
	o.logger.Info("completion attempt", fields...)

	if o.bus != nil {
		_ = o.bus.Publish(context.Background(), plugin.Event{
			Topic:     TopicAttempt,
			Source:    "gateway",
			Timestamp: time.Now(),
			Payload: AttemptEvent{
				Attempt:   n,
				Outcome:   kind.String(),
				ElapsedMS: budget.Elapsed().Milliseconds(),
				WaitMS:    wait.Milliseconds(),
				Remaining: budget.Remaining().Seconds(),
			},
		})
	}
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
