package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openautomata/windrive/internal/shared/types"
	"github.com/openautomata/windrive/internal/tree"
)

func TestCreateAssignsUniqueIDs(t *testing.T) {
	r := NewRegistry(nil)
	a := r.Create(time.Second, true)
	b := r.Create(time.Second, false)
	if a == b {
		t.Fatal("session ids must be unique")
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
}

func TestWithSessionUnknown(t *testing.T) {
	r := NewRegistry(nil)
	err := r.WithSession("sess_missing", func(*State) error { return nil })
	if !errors.Is(err, types.ErrUnknownSession) {
		t.Errorf("expected ErrUnknownSession, got %v", err)
	}
}

func TestDestroy(t *testing.T) {
	r := NewRegistry(nil)
	sid := r.Create(time.Second, true)

	if err := r.Destroy(sid); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if err := r.Destroy(sid); !errors.Is(err, types.ErrUnknownSession) {
		t.Errorf("second destroy should fail, got %v", err)
	}
	if err := r.WithSession(sid, func(*State) error { return nil }); !errors.Is(err, types.ErrUnknownSession) {
		t.Errorf("destroyed session should be unknown, got %v", err)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	r := NewRegistry(nil)
	a := r.Create(time.Second, true)
	b := r.Create(time.Second, true)

	snapA := tree.NewSnapshot(&tree.Node{Type: tree.TypePane, Name: "A", RuntimeID: tree.RuntimeID{1}}, time.Now())
	if err := r.WithSession(a, func(s *State) error {
		s.ReplaceSnapshot(snapA)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	// B never observes A's snapshot, and destroying A leaves B intact.
	if err := r.WithSession(b, func(s *State) error {
		if s.Snapshot() != nil {
			t.Error("session B should have no snapshot")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := r.Destroy(a); err != nil {
		t.Fatal(err)
	}
	if err := r.WithSession(b, func(s *State) error { return nil }); err != nil {
		t.Errorf("session B should survive destroying A: %v", err)
	}
}

func TestFailedOperationLeavesSlotUsable(t *testing.T) {
	r := NewRegistry(nil)
	sid := r.Create(time.Second, true)

	sentinel := errors.New("operation failed mid-update")
	if err := r.WithSession(sid, func(*State) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}

	// The slot lock must have been released and state kept consistent.
	done := make(chan error, 1)
	go func() {
		done <- r.WithSession(sid, func(*State) error { return nil })
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("slot unusable after failed operation: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("slot lock leaked by failed operation")
	}
}

func TestConcurrentAccessAcrossSessions(t *testing.T) {
	r := NewRegistry(nil)
	const n = 8
	ids := make([]string, n)
	for i := range ids {
		ids[i] = r.Create(time.Second, true)
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		for j := 0; j < 50; j++ {
			wg.Add(1)
			go func(sid string, j int) {
				defer wg.Done()
				_ = r.WithSession(sid, func(s *State) error {
					s.SetAutoRecover(j%2 == 0)
					_ = s.Snapshot()
					return nil
				})
			}(ids[i], j)
		}
	}
	wg.Wait()

	if r.Len() != n {
		t.Errorf("Len = %d, want %d", r.Len(), n)
	}
}

func TestList(t *testing.T) {
	r := NewRegistry(nil)
	r.Create(2*time.Second, true)
	r.Create(3*time.Second, false)

	infos := r.List()
	if len(infos) != 2 {
		t.Fatalf("List returned %d sessions, want 2", len(infos))
	}
	for _, info := range infos {
		if info.HasSnapshot {
			t.Error("fresh sessions have no snapshot")
		}
	}
}
