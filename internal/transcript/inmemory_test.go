package transcript

import (
	"context"
	"testing"
)

func TestInMemoryStoreSaveAndRecent(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.SaveTurn(ctx, TurnRecord{SessionID: "s1", Role: "user", Content: "hi"}); err != nil {
			t.Fatalf("SaveTurn() error = %v", err)
		}
	}

	got, err := s.RecentTurns(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for _, r := range got {
		if r.ID == "" || r.CreatedAt.IsZero() {
			t.Fatalf("record not stamped: %+v", r)
		}
	}

	if other, _ := s.RecentTurns(ctx, "unknown", 3); other != nil {
		t.Fatalf("unexpected records for unknown session: %+v", other)
	}
}
