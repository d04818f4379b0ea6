package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openautomata/windrive/internal/shared/types"
	"github.com/openautomata/windrive/internal/tree"
)

// fakeCollector scripts the tree-walk collaborator.
type fakeCollector struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
	err   error
	// block, when set, never responds regardless of delay.
	block bool
	build func(call int) *tree.Snapshot
}

func (f *fakeCollector) CollectSnapshot(ctx context.Context) (*tree.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	delay, blocked, err, build := f.delay, f.block, f.err, f.build
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if build != nil {
		return build(call), nil
	}
	root := &tree.Node{Type: tree.TypePane, Name: "Desktop", RuntimeID: tree.RuntimeID{int32(call)}}
	return tree.NewSnapshot(root, time.Now()), nil
}

func (f *fakeCollector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRefreshInstallsSnapshot(t *testing.T) {
	r := NewRegistry(nil)
	sid := r.Create(time.Second, true)
	c := NewCoordinator(r, &fakeCollector{}, nil)

	snap, err := c.Refresh(context.Background(), sid)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if snap == nil {
		t.Fatal("Refresh returned nil snapshot")
	}

	current, err := c.Snapshot(sid)
	if err != nil {
		t.Fatal(err)
	}
	if current != snap {
		t.Error("session snapshot was not replaced")
	}
}

func TestRefreshTimeoutBoundsTheWait(t *testing.T) {
	r := NewRegistry(nil)
	sid := r.Create(100*time.Millisecond, true)
	c := NewCoordinator(r, &fakeCollector{block: true}, nil)

	start := time.Now()
	_, err := c.Refresh(context.Background(), sid)
	elapsed := time.Since(start)

	if !errors.Is(err, types.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("caller blocked for %v, far beyond the 100ms deadline", elapsed)
	}
}

func TestRefreshTimeoutKeepsStaleSnapshot(t *testing.T) {
	r := NewRegistry(nil)
	sid := r.Create(50*time.Millisecond, true)
	fc := &fakeCollector{}
	c := NewCoordinator(r, fc, nil)

	first, err := c.Refresh(context.Background(), sid)
	if err != nil {
		t.Fatal(err)
	}

	fc.mu.Lock()
	fc.block = true
	fc.mu.Unlock()

	if _, err := c.Refresh(context.Background(), sid); !errors.Is(err, types.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	current, _ := c.Snapshot(sid)
	if current != first {
		t.Error("timeout must leave the existing snapshot untouched")
	}
}

func TestRefreshCollectionFailure(t *testing.T) {
	r := NewRegistry(nil)
	sid := r.Create(time.Second, true)
	c := NewCoordinator(r, &fakeCollector{err: errors.New("walker crashed")}, nil)

	_, err := c.Refresh(context.Background(), sid)
	if !errors.Is(err, types.ErrCollectionFailed) {
		t.Fatalf("expected ErrCollectionFailed, got %v", err)
	}
}

func TestRefreshUnknownSession(t *testing.T) {
	r := NewRegistry(nil)
	fc := &fakeCollector{}
	c := NewCoordinator(r, fc, nil)

	_, err := c.Refresh(context.Background(), "sess_missing")
	if !errors.Is(err, types.ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
	if fc.callCount() != 0 {
		t.Error("unknown session must not trigger a collection")
	}
}

func TestRefreshSessionDestroyedMidCollection(t *testing.T) {
	r := NewRegistry(nil)
	sid := r.Create(time.Second, true)
	fc := &fakeCollector{delay: 50 * time.Millisecond}
	c := NewCoordinator(r, fc, nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = r.Destroy(sid)
	}()

	_, err := c.Refresh(context.Background(), sid)
	if !errors.Is(err, types.ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession after mid-flight destroy, got %v", err)
	}
}

func TestConcurrentRefreshSameSession(t *testing.T) {
	r := NewRegistry(nil)
	sid := r.Create(time.Second, true)
	c := NewCoordinator(r, &fakeCollector{}, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Refresh(context.Background(), sid)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent refresh failed: %v", err)
		}
	}
	if snap, _ := c.Snapshot(sid); snap == nil {
		t.Error("snapshot missing after concurrent refreshes")
	}
}

func TestRefreshObserver(t *testing.T) {
	r := NewRegistry(nil)
	sid := r.Create(time.Second, true)

	var mu sync.Mutex
	outcomes := map[string]int{}
	c := NewCoordinator(r, &fakeCollector{}, nil).WithObserver(func(outcome string, _ time.Duration) {
		mu.Lock()
		outcomes[outcome]++
		mu.Unlock()
	})

	if _, err := c.Refresh(context.Background(), sid); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if outcomes["ok"] != 1 {
		t.Errorf("observer outcomes = %v", outcomes)
	}
}
