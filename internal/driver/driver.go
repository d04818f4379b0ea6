package driver

import (
	"context"

	"github.com/openautomata/windrive/internal/shared/types"
	"github.com/openautomata/windrive/internal/tree"
)

// RawElement is the descriptor a Locator returns for a hit-tested element:
// the node itself plus its ancestor chain (root first), enough to seed a
// structural xpath without another collection pass.
type RawElement struct {
	Node      *tree.Node
	Ancestors []*tree.Node
}

// Collector captures a fresh snapshot of the full UI tree. Collection may
// take substantial wall-clock time; implementations must honor ctx
// cancellation where they can, but callers bound the wait regardless.
type Collector interface {
	CollectSnapshot(ctx context.Context) (*tree.Snapshot, error)
}

// Locator hit-tests screen coordinates against the current live tree.
type Locator interface {
	LocateByCoordinates(ctx context.Context, x, y int) (*RawElement, error)
}

// Actor performs an action against a live OS element addressed by runtime
// id. It reports types.ErrElementNotFound when the id no longer resolves
// live, independent of any cached snapshot.
type Actor interface {
	ActOnRuntimeID(ctx context.Context, id tree.RuntimeID, action types.Action, args map[string]string) error
}

// Launcher starts a process from an executable path and returns an opaque
// process reference.
type Launcher interface {
	LaunchProcess(ctx context.Context, path string) (ProcessRef, error)
}

// ProcessRef identifies a launched process.
type ProcessRef struct {
	PID  int
	Path string
}

// Foregrounder brings the window owning the given runtime id to the front.
type Foregrounder interface {
	BringToForeground(ctx context.Context, window tree.RuntimeID) error
}

// Screen reports display geometry for the primary monitor.
type Screen interface {
	ScreenContext(ctx context.Context) (types.ScreenContext, error)
}

// Driver aggregates every collaborator a full backend provides.
type Driver interface {
	Collector
	Locator
	Actor
	Launcher
	Foregrounder
	Screen
}
