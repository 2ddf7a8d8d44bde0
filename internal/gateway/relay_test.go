package gateway

import (
	"context"
	"errors"
	"testing"
)

func feed(chunks ...StreamChunk) <-chan StreamChunk {
	ch := make(chan StreamChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

func TestRelay_AccumulatesAndForwards(t *testing.T) {
	src := feed(
		StreamChunk{DeltaText: "Hel"},
		StreamChunk{DeltaText: "lo"},
		StreamChunk{IsFinal: true},
	)

	var forwarded []string
	text, truncated, err := Relay(context.Background(), src, func(c StreamChunk) error {
		forwarded = append(forwarded, c.DeltaText)
		return nil
	})

	if err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if text != "Hello" {
		t.Errorf("text = %q, want Hello", text)
	}
	if truncated {
		t.Error("truncated = true, want false")
	}
	if len(forwarded) != 2 {
		t.Errorf("forwarded %d chunks, want exactly 2 before the final signal", len(forwarded))
	}
}

func TestRelay_TruncationKeepsPartialText(t *testing.T) {
	src := feed(
		StreamChunk{DeltaText: "partial "},
		StreamChunk{DeltaText: "answer"},
		StreamChunk{IsFinal: true, Err: ErrStreamTruncated},
	)

	text, truncated, err := Relay(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if !truncated {
		t.Error("truncated = false, want true for a dropped stream")
	}
	if text != "partial answer" {
		t.Errorf("text = %q, want the accumulated partial text", text)
	}
}

func TestRelay_BareCloseCountsAsTruncation(t *testing.T) {
	src := feed(StreamChunk{DeltaText: "x"})

	text, truncated, err := Relay(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if !truncated || text != "x" {
		t.Errorf("text=%q truncated=%v, want partial text flagged truncated", text, truncated)
	}
}

func TestRelay_SinkErrorStopsForwarding(t *testing.T) {
	src := feed(
		StreamChunk{DeltaText: "a"},
		StreamChunk{DeltaText: "b"},
		StreamChunk{IsFinal: true},
	)

	sinkErr := errors.New("client gone")
	calls := 0
	text, truncated, err := Relay(context.Background(), src, func(c StreamChunk) error {
		calls++
		return sinkErr
	})

	if !errors.Is(err, sinkErr) {
		t.Errorf("err = %v, want sink error", err)
	}
	if calls != 1 {
		t.Errorf("sink calls = %d, want 1", calls)
	}
	if !truncated || text != "a" {
		t.Errorf("text=%q truncated=%v, want received data preserved", text, truncated)
	}
}

func TestRelay_ContextCancellation(t *testing.T) {
	src := make(chan StreamChunk) // never fed
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, truncated, err := Relay(ctx, src, nil)
	if err == nil {
		t.Error("expected context error")
	}
	if !truncated {
		t.Error("cancelled relay should report truncation")
	}
}
