package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openautomata/windrive/internal/driver"
	"github.com/openautomata/windrive/internal/shared/types"
	"github.com/openautomata/windrive/internal/tree"
)

// Coordinator orchestrates snapshot (re)collection for sessions. Collection
// runs on its own goroutine and reports back through a single-value channel;
// the caller's deadline bounds the wait, and the session slot lock wraps
// only the final snapshot swap.
type Coordinator struct {
	registry  *Registry
	collector driver.Collector
	logger    *zap.Logger

	// observe, when set, receives refresh outcomes for metrics.
	observe func(outcome string, elapsed time.Duration)
}

// NewCoordinator wires a coordinator to the registry and the tree-walk
// collaborator.
func NewCoordinator(registry *Registry, collector driver.Collector, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{registry: registry, collector: collector, logger: logger}
}

// WithObserver registers a callback invoked once per refresh with the
// outcome label ("ok", "timeout", "failed") and elapsed time.
func (c *Coordinator) WithObserver(fn func(outcome string, elapsed time.Duration)) *Coordinator {
	c.observe = fn
	return c
}

type collectResult struct {
	snap *tree.Snapshot
	err  error
}

// Refresh collects a fresh snapshot for the session and installs it. The
// wait is bounded by ctx's deadline; when none is set, the session's
// configured timeout applies. On timeout the session's existing snapshot is
// left untouched; stale data is preferred over blocking forever.
//
// Refresh is idempotent and safe to call concurrently: the slot lock
// serializes only the swap, never the wait.
func (c *Coordinator) Refresh(ctx context.Context, sessionID string) (*tree.Snapshot, error) {
	start := time.Now()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var timeout time.Duration
		if err := c.registry.WithSession(sessionID, func(s *State) error {
			timeout = s.Timeout()
			return nil
		}); err != nil {
			return nil, err
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	} else {
		// Fail fast on unknown sessions before paying for a collection.
		if err := c.registry.WithSession(sessionID, func(*State) error { return nil }); err != nil {
			return nil, err
		}
	}

	// Collection runs off-lock on its own goroutine. The buffered channel
	// lets the goroutine finish even when nobody is left waiting.
	resultCh := make(chan collectResult, 1)
	go func() {
		snap, err := c.collector.CollectSnapshot(ctx)
		resultCh <- collectResult{snap: snap, err: err}
	}()

	var res collectResult
	select {
	case res = <-resultCh:
	case <-ctx.Done():
		c.record("timeout", start)
		c.logger.Warn("snapshot collection timed out",
			zap.String("session_id", sessionID),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("refresh %s: %w", sessionID, types.ErrTimeout)
	}

	if res.err != nil {
		if ctx.Err() != nil {
			c.record("timeout", start)
			return nil, fmt.Errorf("refresh %s: %w", sessionID, types.ErrTimeout)
		}
		c.record("failed", start)
		return nil, fmt.Errorf("refresh %s: %w: %v", sessionID, types.ErrCollectionFailed, res.err)
	}

	// Swap under the slot lock only. The session may have been destroyed
	// while we were collecting; that surfaces here as ErrUnknownSession.
	if err := c.registry.WithSession(sessionID, func(s *State) error {
		s.ReplaceSnapshot(res.snap)
		return nil
	}); err != nil {
		c.record("failed", start)
		return nil, err
	}

	c.record("ok", start)
	c.logger.Debug("snapshot refreshed",
		zap.String("session_id", sessionID),
		zap.Int("nodes", res.snap.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res.snap, nil
}

// Snapshot returns the session's current snapshot without refreshing. The
// snapshot may be nil before the first capture.
func (c *Coordinator) Snapshot(sessionID string) (*tree.Snapshot, error) {
	var snap *tree.Snapshot
	if err := c.registry.WithSession(sessionID, func(s *State) error {
		snap = s.Snapshot()
		return nil
	}); err != nil {
		return nil, err
	}
	return snap, nil
}

func (c *Coordinator) record(outcome string, start time.Time) {
	if c.observe != nil {
		c.observe(outcome, time.Since(start))
	}
}
