package session

import (
	"time"

	"github.com/openautomata/windrive/internal/shared/types"
	"github.com/openautomata/windrive/internal/tree"
)

// State is one automation session's mutable state. It is owned exclusively
// by the Registry and only reachable through WithSession, which serializes
// access on the session's slot lock.
type State struct {
	id          string
	timeout     time.Duration
	autoRecover bool
	snapshot    *tree.Snapshot // nil before the first capture
	createdAt   time.Time
}

// ID returns the session id.
func (s *State) ID() string { return s.id }

// Timeout returns the session's configured deadline for blocking operations.
func (s *State) Timeout() time.Duration { return s.timeout }

// AutoRecover reports whether stale handles trigger a refresh-and-relocate
// cycle instead of failing immediately.
func (s *State) AutoRecover() bool { return s.autoRecover }

// SetAutoRecover flips the recovery flag.
func (s *State) SetAutoRecover(v bool) { s.autoRecover = v }

// Snapshot returns the current snapshot, nil before the first capture. The
// returned snapshot is immutable and safe to use after the slot lock is
// released.
func (s *State) Snapshot() *tree.Snapshot { return s.snapshot }

// ReplaceSnapshot atomically installs a new snapshot. The old snapshot is
// wholly replaced; readers holding it keep a consistent, if stale, view.
func (s *State) ReplaceSnapshot(snap *tree.Snapshot) { s.snapshot = snap }

// Config returns the caller-visible configuration.
func (s *State) Config() types.SessionConfig {
	return types.SessionConfig{
		ID:          s.id,
		Timeout:     s.timeout,
		AutoRecover: s.autoRecover,
	}
}

// Info returns config plus snapshot bookkeeping.
func (s *State) Info() types.SessionInfo {
	info := types.SessionInfo{SessionConfig: s.Config()}
	if s.snapshot != nil {
		info.HasSnapshot = true
		info.SnapshotAge = time.Since(s.snapshot.CapturedAt()).Round(time.Millisecond).String()
		info.SnapshotNodes = s.snapshot.Len()
		info.CapturedAt = s.snapshot.CapturedAt()
	}
	return info
}
