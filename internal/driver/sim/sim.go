// Package sim provides a deterministic in-process driver backend.
//
// It models a small synthetic desktop whose applications can be "launched"
// and whose runtime ids change on every collection, exactly the behavior the
// recovery engine has to tolerate on a real desktop. It backs the service in
// development and exercises the engine end to end in tests without any OS
// automation API.
package sim

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/openautomata/windrive/internal/driver"
	"github.com/openautomata/windrive/internal/shared/types"
	"github.com/openautomata/windrive/internal/tree"
)

// app is a launchable application template.
type app struct {
	path   string
	window func() *tree.Node
}

// Sim implements driver.Driver against a synthetic desktop.
type Sim struct {
	mu           sync.Mutex
	seq          int32
	apps         map[string]*app
	open         []string // paths of open apps, front first
	last         *tree.Snapshot
	collectDelay time.Duration
	screen       types.ScreenContext
	nextPID      int
}

// Option configures a Sim.
type Option func(*Sim)

// WithCollectDelay makes every collection take d, simulating the slow
// tree-walk of a real desktop.
func WithCollectDelay(d time.Duration) Option {
	return func(s *Sim) { s.collectDelay = d }
}

// New creates a simulator with Calculator and Notepad registered and no
// windows open.
func New(opts ...Option) *Sim {
	s := &Sim{
		apps:    make(map[string]*app),
		screen:  types.ScreenContext{Width: 1920, Height: 1080, Scale: 1.25},
		nextPID: 1000,
	}
	s.Register("calc.exe", calculatorWindow)
	s.Register("notepad.exe", notepadWindow)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a launchable application. The window func builds the
// window's subtree without runtime ids; ids are assigned per collection.
func (s *Sim) Register(path string, window func() *tree.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[path] = &app{path: path, window: window}
}

// OpenApp opens an application window directly, without going through
// LaunchProcess. Useful to seed test scenarios.
func (s *Sim) OpenApp(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openLocked(path)
}

// CloseApp closes an application's window. The next collection will no
// longer contain it.
func (s *Sim) CloseApp(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.open {
		if p == path {
			s.open = append(s.open[:i], s.open[i+1:]...)
			return
		}
	}
}

func (s *Sim) openLocked(path string) {
	for _, p := range s.open {
		if p == path {
			return
		}
	}
	s.open = append(s.open, path)
}

// CollectSnapshot builds a fresh snapshot of the synthetic desktop. Every
// node receives a new runtime id, so ids never survive across collections.
func (s *Sim) CollectSnapshot(ctx context.Context) (*tree.Snapshot, error) {
	s.mu.Lock()
	delay := s.collectDelay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq += 1000
	root := &tree.Node{
		Type:      tree.TypePane,
		Name:      "Desktop",
		Attrs:     map[string]string{"bounds": "0,0,1920,1080"},
		RuntimeID: tree.RuntimeID{42, s.seq},
	}
	for _, path := range s.open {
		a := s.apps[path]
		if a == nil {
			continue
		}
		win := a.window()
		s.assignIDs(win)
		root.Children = append(root.Children, win)
	}

	snap := tree.NewSnapshot(root, time.Now())
	s.last = snap
	return snap, nil
}

func (s *Sim) assignIDs(n *tree.Node) {
	s.seq++
	n.RuntimeID = tree.RuntimeID{42, s.seq, s.seq * 3}
	for _, c := range n.Children {
		s.assignIDs(c)
	}
}

// LocateByCoordinates hit-tests against the most recent collection,
// returning the deepest node whose bounds contain the point.
func (s *Sim) LocateByCoordinates(ctx context.Context, x, y int) (*driver.RawElement, error) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		return nil, fmt.Errorf("locate (%d,%d): %w", x, y, types.ErrElementNotFound)
	}

	var best *tree.Node
	depth, bestDepth := 0, -1
	var walk func(n *tree.Node)
	walk = func(n *tree.Node) {
		if contains(n.Attr("bounds"), x, y) && depth > bestDepth {
			best, bestDepth = n, depth
		}
		depth++
		for _, c := range n.Children {
			walk(c)
		}
		depth--
	}
	walk(last.Root())

	if best == nil {
		return nil, fmt.Errorf("locate (%d,%d): %w", x, y, types.ErrElementNotFound)
	}
	return &driver.RawElement{Node: best, Ancestors: last.Ancestors(best)}, nil
}

func contains(bounds string, x, y int) bool {
	parts := strings.Split(bounds, ",")
	if len(parts) != 4 {
		return false
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return false
		}
		vals[i] = v
	}
	return x >= vals[0] && y >= vals[1] && x < vals[2] && y < vals[3]
}

// ActOnRuntimeID verifies the id still resolves in the latest collection.
func (s *Sim) ActOnRuntimeID(ctx context.Context, id tree.RuntimeID, action types.Action, args map[string]string) error {
	if !action.Valid() {
		return fmt.Errorf("unsupported action %q", action)
	}
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		return fmt.Errorf("act %s on %s: %w", action, id, types.ErrElementNotFound)
	}
	if _, ok := last.FindByRuntimeID(id); !ok {
		return fmt.Errorf("act %s on %s: %w", action, id, types.ErrElementNotFound)
	}
	return nil
}

// LaunchProcess opens the application registered at path.
func (s *Sim) LaunchProcess(ctx context.Context, path string) (driver.ProcessRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[path]; !ok {
		return driver.ProcessRef{}, fmt.Errorf("launch %s: %w", path, types.ErrLaunchFailure)
	}
	s.openLocked(path)
	s.nextPID++
	return driver.ProcessRef{PID: s.nextPID, Path: path}, nil
}

// BringToForeground succeeds when the window's runtime id exists in the
// latest collection.
func (s *Sim) BringToForeground(ctx context.Context, window tree.RuntimeID) error {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		return fmt.Errorf("foreground %s: %w", window, types.ErrElementNotFound)
	}
	if _, ok := last.FindByRuntimeID(window); !ok {
		return fmt.Errorf("foreground %s: %w", window, types.ErrElementNotFound)
	}
	return nil
}

// ScreenContext returns the synthetic display geometry.
func (s *Sim) ScreenContext(ctx context.Context) (types.ScreenContext, error) {
	return s.screen, nil
}

func calculatorWindow() *tree.Node {
	return &tree.Node{
		Type:  tree.TypeWindow,
		Name:  "Calculator",
		Attrs: map[string]string{"bounds": "100,100,500,600"},
		Children: []*tree.Node{
			{
				Type:  tree.TypeText,
				Name:  "Display",
				Attrs: map[string]string{"bounds": "110,110,490,160"},
			},
			{
				Type:  tree.TypePane,
				Name:  "Keypad",
				Attrs: map[string]string{"bounds": "110,170,490,590"},
				Children: []*tree.Node{
					{Type: tree.TypeButton, Name: "Seven", Attrs: map[string]string{"bounds": "110,170,200,260"}},
					{Type: tree.TypeButton, Name: "Eight", Attrs: map[string]string{"bounds": "200,170,290,260"}},
					{Type: tree.TypeButton, Name: "Nine", Attrs: map[string]string{"bounds": "290,170,380,260"}},
					{Type: tree.TypeButton, Name: "Plus", Attrs: map[string]string{"bounds": "380,170,470,260"}},
					{Type: tree.TypeButton, Name: "Equals", Attrs: map[string]string{"bounds": "380,500,470,590"}},
				},
			},
		},
	}
}

func notepadWindow() *tree.Node {
	return &tree.Node{
		Type:  tree.TypeWindow,
		Name:  "Untitled - Notepad",
		Attrs: map[string]string{"bounds": "600,100,1400,900"},
		Children: []*tree.Node{
			{Type: tree.TypeMenuBar, Name: "Menu", Attrs: map[string]string{"bounds": "600,100,1400,130"}},
			{Type: tree.TypeEdit, Name: "Text Editor", Attrs: map[string]string{"bounds": "600,130,1400,900"}},
		},
	}
}
