package roadmap

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kaliguru/kaliguru/internal/store"
)

func testStore(t *testing.T) *RoadmapStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background(), "roadmap", migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRoadmapStore(db.DB())
}

func TestRoadmapStore_SaveAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	r := &Roadmap{
		UserID:     "user-1",
		Title:      "OSCP Roadmap - Sep 1, 2026",
		TargetCert: "OSCP",
		Level:      "intermediate",
		Content:    json.RawMessage(`{"roadmap":[]}`),
	}
	if err := s.Save(ctx, r); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if r.ID == "" {
		t.Fatal("Save did not assign an ID")
	}

	got, err := s.Get(ctx, r.ID, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TargetCert != "OSCP" || got.Level != "intermediate" {
		t.Errorf("got %+v", got)
	}
	if string(got.Content) != `{"roadmap":[]}` {
		t.Errorf("content = %s", got.Content)
	}
}

func TestRoadmapStore_GetOtherUsersRoadmap(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	r := &Roadmap{UserID: "user-1", Content: json.RawMessage(`{}`)}
	if err := s.Save(ctx, r); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := s.Get(ctx, r.ID, "user-2"); err != ErrNotFound {
		t.Errorf("Get as another user = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(ctx, "no-such-id", "user-1"); err != ErrNotFound {
		t.Errorf("Get unknown id = %v, want ErrNotFound", err)
	}
}

func TestRoadmapStore_ListByUser(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, cert := range []string{"eJPT", "OSCP"} {
		r := &Roadmap{UserID: "user-1", TargetCert: cert, Content: json.RawMessage(`{}`)}
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save %s: %v", cert, err)
		}
	}
	other := &Roadmap{UserID: "user-2", TargetCert: "CRTO", Content: json.RawMessage(`{}`)}
	if err := s.Save(ctx, other); err != nil {
		t.Fatalf("Save: %v", err)
	}

	list, err := s.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	for _, r := range list {
		if r.UserID != "user-1" {
			t.Errorf("leaked roadmap for %s", r.UserID)
		}
	}
}
