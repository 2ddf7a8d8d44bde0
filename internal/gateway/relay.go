package gateway

import (
	"context"
	"strings"
)

// Sink receives forwarded stream chunks in arrival order.
type Sink func(chunk StreamChunk) error

// Relay drains a live chunk channel, forwarding each delta to the sink
// while accumulating the full text as the canonical record for
// persistence. Returns the accumulated text, whether the stream ended
// before its final frame, and any sink or cancellation error. Received
// data is never discarded: a dropped upstream still yields the partial
// text with truncated=true.
func Relay(ctx context.Context, chunks <-chan StreamChunk, sink Sink) (text string, truncated bool, err error) {
	var full strings.Builder

	for {
		select {
		case <-ctx.Done():
			// Caller went away. Stop forwarding; the producer notices
			// the same cancellation and releases the upstream body.
			return full.String(), true, ctx.Err()

		case chunk, open := <-chunks:
			if !open {
				// The client always emits a final frame; a bare close
				// counts as a drop.
				return full.String(), true, nil
			}
			if chunk.IsFinal {
				if chunk.Err != nil {
					return full.String(), true, nil
				}
				return full.String(), false, nil
			}

			full.WriteString(chunk.DeltaText)
			if sink != nil {
				if sErr := sink(chunk); sErr != nil {
					return full.String(), true, sErr
				}
			}
		}
	}
}
