package ws

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kaliguru/kaliguru/internal/auth"
	"github.com/kaliguru/kaliguru/internal/event"
	"github.com/kaliguru/kaliguru/internal/gateway"
	"github.com/kaliguru/kaliguru/pkg/plugin"
)

func testSubscriber(buffer int) *subscriber {
	return &subscriber{
		userID: "user-1",
		events: make(chan Message, buffer),
		logger: zap.NewNop(),
	}
}

func TestHub_AttachDetach(t *testing.T) {
	hub := NewHub(zap.NewNop())
	s := testSubscriber(1)

	hub.Attach(s)
	if hub.SubscriberCount() != 1 {
		t.Fatalf("count = %d, want 1", hub.SubscriberCount())
	}

	hub.Detach(s)
	if hub.SubscriberCount() != 0 {
		t.Fatalf("count = %d, want 0", hub.SubscriberCount())
	}
	if _, open := <-s.events; open {
		t.Error("event channel still open after detach")
	}
}

func TestHub_DetachTwiceDoesNotPanic(t *testing.T) {
	hub := NewHub(zap.NewNop())
	s := testSubscriber(1)

	hub.Attach(s)
	hub.Detach(s)
	hub.Detach(s)
}

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a, b := testSubscriber(4), testSubscriber(4)
	hub.Attach(a)
	hub.Attach(b)

	msg := Message{Type: MessageGatewayResult, Timestamp: time.Now()}
	hub.Broadcast(msg)

	for i, s := range []*subscriber{a, b} {
		select {
		case got := <-s.events:
			if got.Type != MessageGatewayResult {
				t.Errorf("subscriber %d got type %q", i, got.Type)
			}
		default:
			t.Errorf("subscriber %d received nothing", i)
		}
	}
}

func TestHub_LaggingSubscriberDisconnected(t *testing.T) {
	hub := NewHub(zap.NewNop())
	slow, fast := testSubscriber(1), testSubscriber(4)
	hub.Attach(slow)
	hub.Attach(fast)

	hub.Broadcast(Message{Type: MessageGatewayAttempt})

	// The second broadcast overflows the slow subscriber. It must not
	// block, and the laggard is detached so its timeline never has a
	// silent gap.
	done := make(chan struct{})
	go func() {
		hub.Broadcast(Message{Type: MessageGatewayAttempt})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full subscriber buffer")
	}

	if hub.SubscriberCount() != 1 {
		t.Fatalf("count = %d, want the fast subscriber only", hub.SubscriberCount())
	}

	// The laggard's channel is closed after its buffered event.
	<-slow.events
	if _, open := <-slow.events; open {
		t.Error("lagging subscriber channel left open")
	}

	// The fast subscriber saw both events in order.
	for i := 0; i < 2; i++ {
		select {
		case <-fast.events:
		default:
			t.Fatalf("fast subscriber missing event %d", i)
		}
	}
}

func TestHandler_ForwardsGatewayEvents(t *testing.T) {
	bus := event.NewBus(zap.NewNop())
	tokens := auth.NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute, 7*24*time.Hour)
	h := NewHandler(tokens, bus, zap.NewNop())

	s := testSubscriber(4)
	h.hub.Attach(s)

	err := bus.Publish(context.Background(), plugin.Event{
		Topic:     gateway.TopicAttempt,
		Source:    "gateway",
		Timestamp: time.Now(),
		Payload:   gateway.AttemptEvent{Attempt: 2, Outcome: "rate_limited", WaitMS: 2000},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-s.events:
		if msg.Type != MessageGatewayAttempt {
			t.Errorf("type = %q", msg.Type)
		}
		attempt, ok := msg.Data.(gateway.AttemptEvent)
		if !ok || attempt.Attempt != 2 || attempt.Outcome != "rate_limited" {
			t.Errorf("data = %+v", msg.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("no message forwarded from bus event")
	}

	if err := bus.Publish(context.Background(), plugin.Event{
		Topic:     gateway.TopicResult,
		Source:    "gateway",
		Timestamp: time.Now(),
		Payload:   gateway.ResultEvent{Success: true, Attempts: 3},
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-s.events:
		if msg.Type != MessageGatewayResult {
			t.Errorf("type = %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no result message forwarded")
	}
}

func TestHandler_IgnoresUnexpectedPayloads(t *testing.T) {
	bus := event.NewBus(zap.NewNop())
	tokens := auth.NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute, 7*24*time.Hour)
	h := NewHandler(tokens, bus, zap.NewNop())

	s := testSubscriber(4)
	h.hub.Attach(s)

	if err := bus.Publish(context.Background(), plugin.Event{
		Topic:   gateway.TopicAttempt,
		Payload: "not an attempt event",
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-s.events:
		t.Errorf("unexpected message forwarded: %+v", msg)
	default:
	}
}
