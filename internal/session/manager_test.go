package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestGetOrCreateThenReload(t *testing.T) {
	m := NewManager(NewMemoryStore(), time.Minute)
	ctx := context.Background()

	sess, created, err := m.GetOrCreate(ctx, "u1", "")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if !created || sess.ID == "" {
		t.Fatalf("expected a fresh session, got created=%v id=%q", created, sess.ID)
	}
	if sess.State != StateIdle {
		t.Fatalf("State = %q, want idle", sess.State)
	}

	sess.SetSlot("date", "2026-09-10")
	if err := m.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	again, created, err := m.GetOrCreate(ctx, "u1", sess.ID)
	if err != nil {
		t.Fatalf("GetOrCreate() reload error = %v", err)
	}
	if created {
		t.Fatalf("reload should not create")
	}
	if again.Slots["date"] != "2026-09-10" {
		t.Fatalf("slot not persisted: %+v", again.Slots)
	}
}

func TestResetFlowClearsSlots(t *testing.T) {
	sess := New("s1", "u1")
	sess.ActiveFlow = "appointment"
	sess.State = State("date")
	sess.SetSlot("service_type", "demo")
	sess.RecordSlotFailure("date")

	sess.ResetFlow()
	if sess.InFlow() || sess.State != StateIdle {
		t.Fatalf("flow not reset: %+v", sess)
	}
	if sess.Slots != nil || sess.SlotFailures != nil {
		t.Fatalf("slot state not cleared: %+v", sess)
	}
}

func TestAppendTurnTrimsHistory(t *testing.T) {
	sess := New("s1", "u1")
	for i := 0; i < 15; i++ {
		sess.AppendTurn(Turn{UserText: "x", At: time.Now()}, 10)
	}
	if len(sess.Turns) != 10 {
		t.Fatalf("len(Turns) = %d, want 10", len(sess.Turns))
	}
}

func TestLockSerializesSameSession(t *testing.T) {
	m := NewManager(NewMemoryStore(), time.Minute)

	var order []int
	var wg sync.WaitGroup
	unlock := m.Lock("s1")

	wg.Add(1)
	go func() {
		defer wg.Done()
		u := m.Lock("s1")
		order = append(order, 2)
		u()
	}()

	time.Sleep(20 * time.Millisecond)
	order = append(order, 1)
	unlock()
	wg.Wait()

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v, want [1 2]", order)
	}
}

func TestJanitorExpiresIdleSessions(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, 30*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expired := make(chan string, 1)
	m.SetExpireHook(func(s *Session) { expired <- s.ID })

	sess, _, err := m.GetOrCreate(ctx, "u1", "")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	m.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case id := <-expired:
		if id != sess.ID {
			t.Fatalf("expired id = %q, want %q", id, sess.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("session never expired")
	}

	if _, err := store.Get(ctx, sess.ID); err != ErrNotFound {
		t.Fatalf("Get after expiry error = %v, want ErrNotFound", err)
	}
}
