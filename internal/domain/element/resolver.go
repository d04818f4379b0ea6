package element

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/openautomata/windrive/internal/domain/session"
	"github.com/openautomata/windrive/internal/driver"
	"github.com/openautomata/windrive/internal/shared/types"
	"github.com/openautomata/windrive/internal/tree"
	"github.com/openautomata/windrive/internal/xpath"
)

// Resolver resolves handles against their session's current snapshot,
// refreshing and re-locating when the cached runtime id has gone stale.
type Resolver struct {
	registry    *session.Registry
	coordinator *session.Coordinator
	actor       driver.Actor
	logger      *zap.Logger

	// observe, when set, receives one resolution outcome per Resolve.
	observe func(path types.ResolutionPath, ok bool)
}

// NewResolver wires the recovery engine.
func NewResolver(registry *session.Registry, coordinator *session.Coordinator, actor driver.Actor, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		registry:    registry,
		coordinator: coordinator,
		actor:       actor,
		logger:      logger,
	}
}

// WithObserver registers a metrics callback.
func (r *Resolver) WithObserver(fn func(path types.ResolutionPath, ok bool)) *Resolver {
	r.observe = fn
	return r
}

// Resolve resolves a handle. Fast path: the cached runtime id still exists
// in the current snapshot. On a miss, sessions with auto-recovery disabled
// fail immediately; otherwise exactly one refresh cycle runs and the xpath
// is re-evaluated through the recovery tiers. On success the handle's
// runtime id is updated; its xpath never is.
func (r *Resolver) Resolve(ctx context.Context, h *Handle) (*types.ResolvedElement, error) {
	var (
		snap        *tree.Snapshot
		autoRecover bool
	)
	if err := r.registry.WithSession(h.SessionID(), func(s *session.State) error {
		snap = s.Snapshot()
		autoRecover = s.AutoRecover()
		return nil
	}); err != nil {
		return nil, err
	}

	if snap != nil {
		if node, ok := snap.FindByRuntimeID(h.LastRuntimeID()); ok {
			r.record(types.ResolvedFromCache, true)
			return r.resolved(h, node, types.ResolvedFromCache), nil
		}
	}

	if !autoRecover {
		r.record("", false)
		return nil, fmt.Errorf("resolve %s: %w", h.XPath(), types.ErrElementNotFound)
	}

	fresh, err := r.coordinator.Refresh(ctx, h.SessionID())
	if err != nil {
		r.record("", false)
		return nil, err
	}

	node, path, err := locate(fresh, h.XPath())
	if err != nil {
		r.record("", false)
		return nil, err
	}

	h.rememberRuntimeID(node.RuntimeID)
	r.record(path, true)
	r.logger.Debug("handle recovered",
		zap.String("session_id", h.SessionID()),
		zap.String("xpath", h.XPath()),
		zap.String("path", string(path)),
		zap.String("runtime_id", node.RuntimeID.String()),
	)
	return r.resolved(h, node, path), nil
}

// LocateXPath resolves an xpath that has no handle yet, e.g. for
// get-element-by-xpath or application activation. When the current snapshot
// yields nothing and refresh is allowed, exactly one refresh cycle runs.
func (r *Resolver) LocateXPath(ctx context.Context, sessionID, expr string, refresh bool) (*types.ResolvedElement, error) {
	var snap *tree.Snapshot
	if err := r.registry.WithSession(sessionID, func(s *session.State) error {
		snap = s.Snapshot()
		return nil
	}); err != nil {
		return nil, err
	}

	if snap != nil {
		if node, path, err := locate(snap, expr); err == nil {
			h := NewHandle(sessionID, expr, node.RuntimeID)
			return r.resolved(h, node, path), nil
		} else if _, parseErr := xpath.Parse(expr); parseErr != nil {
			return nil, parseErr
		}
	}

	if !refresh && snap != nil {
		return nil, fmt.Errorf("locate %s: %w", expr, types.ErrElementNotFound)
	}

	fresh, err := r.coordinator.Refresh(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	node, path, err := locate(fresh, expr)
	if err != nil {
		return nil, err
	}
	h := NewHandle(sessionID, expr, node.RuntimeID)
	return r.resolved(h, node, path), nil
}

// Act resolves the handle and performs the action against the live element.
func (r *Resolver) Act(ctx context.Context, h *Handle, action types.Action, args map[string]string) (*types.ResolvedElement, error) {
	resolved, err := r.Resolve(ctx, h)
	if err != nil {
		return nil, err
	}
	if err := r.actor.ActOnRuntimeID(ctx, resolved.RuntimeID, action, args); err != nil {
		return nil, err
	}
	return resolved, nil
}

func (r *Resolver) resolved(h *Handle, node *tree.Node, path types.ResolutionPath) *types.ResolvedElement {
	return &types.ResolvedElement{
		SessionID: h.SessionID(),
		XPath:     h.XPath(),
		Name:      node.Name,
		Type:      node.Type,
		RuntimeID: node.RuntimeID,
		Path:      path,
	}
}

func (r *Resolver) record(path types.ResolutionPath, ok bool) {
	if r.observe != nil {
		r.observe(path, ok)
	}
}

// locate runs the tiered matching policy against one snapshot:
//
//	(a) exact, unique structural match on the full xpath;
//	(b) otherwise, a unique name-and-type match on the final segment
//	    anywhere in the tree, regardless of full-path equality;
//	(c) otherwise, the first final-segment candidate, in document order,
//	    that exactly matches the full xpath;
//	(d) otherwise ErrElementNotFound.
//
// Precision first, then graceful degradation to structural similarity: this
// is what tolerates close/reopen cycles that renumber runtime ids but keep
// the logical structure.
func locate(snap *tree.Snapshot, rawExpr string) (*tree.Node, types.ResolutionPath, error) {
	expr, err := xpath.Parse(rawExpr)
	if err != nil {
		return nil, "", err
	}

	exact := xpath.LocateExpr(snap, expr)
	if len(exact) == 1 {
		return exact[0], types.ResolvedExact, nil
	}

	candidates := xpath.FindFinalCandidates(snap, expr)
	switch len(candidates) {
	case 0:
		return nil, "", fmt.Errorf("locate %s: %w", rawExpr, types.ErrElementNotFound)
	case 1:
		return candidates[0], types.ResolvedUnique, nil
	}

	for _, cand := range candidates {
		if xpath.Matches(snap, cand, expr) {
			return cand, types.ResolvedOrdered, nil
		}
	}
	return nil, "", fmt.Errorf("locate %s: %w", rawExpr, types.ErrElementNotFound)
}
