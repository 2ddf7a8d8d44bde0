package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/kaliguru/kaliguru/internal/store"
)

func testStore(t *testing.T) *ChatStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background(), "chat", migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewChatStore(db.DB())
}

func TestChatStore_SaveAndHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	turns := []struct{ role, content string }{
		{"user", "how do I start?"},
		{"mentor", "begin with networking fundamentals"},
		{"user", "which platform?"},
	}
	for _, turn := range turns {
		if err := s.SaveTurn(ctx, "user-1", turn.role, turn.content); err != nil {
			t.Fatalf("SaveTurn: %v", err)
		}
	}

	history, err := s.History(ctx, "user-1", 100)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("len = %d, want 3", len(history))
	}
	for i, turn := range turns {
		if history[i].Role != turn.role || history[i].Text != turn.content {
			t.Errorf("history[%d] = %+v, want %+v", i, history[i], turn)
		}
	}
}

func TestChatStore_HistoryLimitKeepsNewest(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := s.SaveTurn(ctx, "user-1", "user", fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("SaveTurn: %v", err)
		}
	}

	history, err := s.History(ctx, "user-1", 4)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("len = %d, want 4", len(history))
	}
	if history[0].Text != "message 6" || history[3].Text != "message 9" {
		t.Errorf("window = [%s .. %s], want the newest four in order",
			history[0].Text, history[3].Text)
	}
}

func TestChatStore_ClearIsPerUser(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.SaveTurn(ctx, "user-1", "user", "hello"); err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}
	if err := s.SaveTurn(ctx, "user-2", "user", "hi there"); err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}

	if err := s.Clear(ctx, "user-1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	gone, err := s.History(ctx, "user-1", 100)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(gone) != 0 {
		t.Errorf("user-1 history = %d entries after clear", len(gone))
	}
	kept, err := s.History(ctx, "user-2", 100)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(kept) != 1 {
		t.Errorf("user-2 history = %d entries, want 1", len(kept))
	}
}
