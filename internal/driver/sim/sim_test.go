package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openautomata/windrive/internal/shared/types"
)

func TestRuntimeIDsChangeAcrossCollections(t *testing.T) {
	s := New()
	s.OpenApp("calc.exe")
	ctx := context.Background()

	first, err := s.CollectSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.CollectSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}

	nineA := first.FindByNameAndType("Nine", "Button")
	nineB := second.FindByNameAndType("Nine", "Button")
	if len(nineA) != 1 || len(nineB) != 1 {
		t.Fatal("Nine button missing")
	}
	if nineA[0].RuntimeID.Equal(nineB[0].RuntimeID) {
		t.Error("runtime ids must not be stable across collections")
	}
}

func TestCollectHonorsContext(t *testing.T) {
	s := New(WithCollectDelay(5 * time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := s.CollectSnapshot(ctx)
	if err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Error("collection did not return promptly on cancellation")
	}
}

func TestLaunchUnknownApp(t *testing.T) {
	s := New()
	_, err := s.LaunchProcess(context.Background(), "missing.exe")
	if !errors.Is(err, types.ErrLaunchFailure) {
		t.Errorf("expected ErrLaunchFailure, got %v", err)
	}
}

func TestLocateByCoordinates(t *testing.T) {
	s := New()
	s.OpenApp("calc.exe")
	ctx := context.Background()
	if _, err := s.CollectSnapshot(ctx); err != nil {
		t.Fatal(err)
	}

	raw, err := s.LocateByCoordinates(ctx, 300, 200)
	if err != nil {
		t.Fatal(err)
	}
	if raw.Node.Name != "Nine" {
		t.Errorf("hit-test at (300,200) = %s, want Nine", raw.Node.Name)
	}
	if len(raw.Ancestors) != 3 {
		t.Errorf("expected Desktop/Window/Keypad chain, got %d nodes", len(raw.Ancestors))
	}
}

func TestActOnStaleID(t *testing.T) {
	s := New()
	s.OpenApp("calc.exe")
	ctx := context.Background()

	first, _ := s.CollectSnapshot(ctx)
	stale := first.FindByNameAndType("Nine", "Button")[0].RuntimeID
	if _, err := s.CollectSnapshot(ctx); err != nil {
		t.Fatal(err)
	}

	err := s.ActOnRuntimeID(ctx, stale, types.ActionClick, nil)
	if !errors.Is(err, types.ErrElementNotFound) {
		t.Errorf("stale id should not resolve live, got %v", err)
	}
}
