package activation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openautomata/windrive/internal/domain/element"
	"github.com/openautomata/windrive/internal/domain/session"
	"github.com/openautomata/windrive/internal/driver"
	"github.com/openautomata/windrive/internal/shared/types"
	"github.com/openautomata/windrive/internal/tree"
)

// State represents the activation state machine state
type State int

const (
	StateSearch State = iota
	StateLaunch
	StatePoll
	StateForeground
	StateDoneOK
	StateDoneFail
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateSearch:
		return "search"
	case StateLaunch:
		return "launch"
	case StatePoll:
		return "poll"
	case StateForeground:
		return "foreground"
	case StateDoneOK:
		return "done_ok"
	case StateDoneFail:
		return "done_fail"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state machine stops at this state.
func (s State) Terminal() bool {
	return s == StateDoneOK || s == StateDoneFail
}

// Settings configures the activation engine behavior
type Settings struct {
	// MaxAttempts bounds the number of poll cycles after a launch
	MaxAttempts int
	// ShortWait is the pause before each of the first few poll attempts
	ShortWait time.Duration
	// MediumWait is the pause once the short phase is exhausted
	MediumWait time.Duration
	// LongWait is the pause for every remaining attempt
	LongWait time.Duration
	// OnStateChange is called whenever the machine transitions
	OnStateChange func(from State, to State)
}

// Result reports the outcome of an activation run.
type Result struct {
	State     State
	Launched  bool
	PID       int
	RuntimeID tree.RuntimeID
	Elapsed   time.Duration
}

// OK reports whether the run reached its terminal success state.
func (r *Result) OK() bool {
	return r.State == StateDoneOK
}

// Engine drives find-or-launch-and-activate for one target window.
// It never re-enters a terminal state: each ActivateOrLaunch call runs
// the machine once, from SEARCH to DONE_OK or DONE_FAIL.
type Engine struct {
	registry    *session.Registry
	coordinator *session.Coordinator
	resolver    *element.Resolver
	launcher    driver.Launcher
	fore        driver.Foregrounder
	settings    Settings
	logger      *zap.Logger
}

// NewEngine creates an activation engine with the given settings
func NewEngine(
	registry *session.Registry,
	coordinator *session.Coordinator,
	resolver *element.Resolver,
	launcher driver.Launcher,
	fore driver.Foregrounder,
	settings Settings,
	logger *zap.Logger,
) *Engine {
	// Set default values
	if settings.MaxAttempts == 0 {
		settings.MaxAttempts = 20
	}
	if settings.ShortWait == 0 {
		settings.ShortWait = 200 * time.Millisecond
	}
	if settings.MediumWait == 0 {
		settings.MediumWait = 500 * time.Millisecond
	}
	if settings.LongWait == 0 {
		settings.LongWait = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		registry:    registry,
		coordinator: coordinator,
		resolver:    resolver,
		launcher:    launcher,
		fore:        fore,
		settings:    settings,
		logger:      logger,
	}
}

// ActivateOrLaunch searches the session's tree for the window addressed by
// xpath; if absent it launches path, then polls with progressive waits until
// the window resolves or the deadline elapses, and finally brings the window
// to the foreground. The whole run is bounded by ctx, or by the session
// timeout when ctx carries no deadline.
func (e *Engine) ActivateOrLaunch(ctx context.Context, sessionID, path, xpath string) (*Result, error) {
	start := time.Now()

	if _, ok := ctx.Deadline(); !ok {
		var timeout time.Duration
		if err := e.registry.WithSession(sessionID, func(s *session.State) error {
			timeout = s.Timeout()
			return nil
		}); err != nil {
			return &Result{State: StateDoneFail, Elapsed: time.Since(start)}, err
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res := &Result{State: StateSearch}
	fail := func(err error) (*Result, error) {
		e.transition(res, StateDoneFail)
		res.Elapsed = time.Since(start)
		e.logger.Debug("activation failed",
			zap.String("session_id", sessionID),
			zap.String("path", path),
			zap.Error(err))
		return res, err
	}

	resolved, err := e.resolver.LocateXPath(ctx, sessionID, xpath, true)
	switch {
	case err == nil:
		e.transition(res, StateForeground)
	case errors.Is(err, types.ErrElementNotFound):
		e.transition(res, StateLaunch)
	default:
		return fail(err)
	}

	if res.State == StateLaunch {
		proc, err := e.launcher.LaunchProcess(ctx, path)
		if err != nil {
			return fail(fmt.Errorf("%w: %s: %v", types.ErrLaunchFailure, path, err))
		}
		res.Launched = true
		res.PID = proc.PID
		e.logger.Info("process launched",
			zap.String("session_id", sessionID),
			zap.String("path", path),
			zap.Int("pid", proc.PID))

		e.transition(res, StatePoll)
		resolved, err = e.poll(ctx, sessionID, xpath)
		if err != nil {
			return fail(err)
		}
		e.transition(res, StateForeground)
	}

	window := e.windowFor(sessionID, resolved.RuntimeID)
	if err := e.fore.BringToForeground(ctx, window); err != nil {
		return fail(err)
	}

	e.transition(res, StateDoneOK)
	res.RuntimeID = resolved.RuntimeID
	res.Elapsed = time.Since(start)
	return res, nil
}

// poll retries resolution with progressive waits until the target appears,
// the attempts run out, or ctx expires.
func (e *Engine) poll(ctx context.Context, sessionID, xpath string) (*types.ResolvedElement, error) {
	for attempt := 1; attempt <= e.settings.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: window did not appear", types.ErrTimeout)
		case <-time.After(e.wait(attempt)):
		}

		resolved, err := e.resolver.LocateXPath(ctx, sessionID, xpath, true)
		if err == nil {
			return resolved, nil
		}
		if !errors.Is(err, types.ErrElementNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: window did not appear", types.ErrTimeout)
}

// wait returns the pause before the given 1-based poll attempt.
func (e *Engine) wait(attempt int) time.Duration {
	switch {
	case attempt < 5:
		return e.settings.ShortWait
	case attempt < 10:
		return e.settings.MediumWait
	default:
		return e.settings.LongWait
	}
}

// windowFor walks up from the resolved node to the nearest enclosing Window,
// falling back to the node itself when the tree has none.
func (e *Engine) windowFor(sessionID string, id tree.RuntimeID) tree.RuntimeID {
	snap, err := e.coordinator.Snapshot(sessionID)
	if err != nil || snap == nil {
		return id
	}
	node, ok := snap.FindByRuntimeID(id)
	if !ok {
		return id
	}
	for n := node; n != nil; n = snap.Parent(n) {
		if n.Type == tree.TypeWindow {
			return n.RuntimeID
		}
	}
	return id
}

// transition moves the machine to the next state
func (e *Engine) transition(res *Result, to State) {
	if res.State.Terminal() {
		return
	}
	from := res.State
	res.State = to
	if e.settings.OnStateChange != nil {
		e.settings.OnStateChange(from, to)
	}
}
