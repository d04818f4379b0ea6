package types

import (
	"github.com/openautomata/windrive/internal/tree"
)

// Action identifies an interaction performed against a live element.
type Action string

// Actions supported by the OS-facing actor.
const (
	ActionClick       Action = "click"
	ActionDoubleClick Action = "double_click"
	ActionRightClick  Action = "right_click"
	ActionSendKeys    Action = "send_keys"
	ActionSendText    Action = "send_text"
	ActionContextMenu Action = "context_menu"
	ActionHighlight   Action = "highlight"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionClick, ActionDoubleClick, ActionRightClick,
		ActionSendKeys, ActionSendText, ActionContextMenu, ActionHighlight:
		return true
	}
	return false
}

// ResolutionPath records which tier of the recovery algorithm produced a
// resolved element.
type ResolutionPath string

const (
	// ResolvedFromCache: fast path, runtime id still valid, no refresh.
	ResolvedFromCache ResolutionPath = "cache"
	// ResolvedExact: unique structural match on the full xpath.
	ResolvedExact ResolutionPath = "exact"
	// ResolvedUnique: single final-segment candidate in the whole tree.
	ResolvedUnique ResolutionPath = "unique"
	// ResolvedOrdered: first exact full-path match among candidates, in
	// document order.
	ResolvedOrdered ResolutionPath = "ordered"
)

// ResolvedElement is the outcome of resolving a handle against the session's
// current snapshot.
type ResolvedElement struct {
	SessionID string           `json:"session_id"`
	XPath     string           `json:"xpath"`
	Name      string           `json:"name"`
	Type      tree.ControlType `json:"control_type"`
	RuntimeID tree.RuntimeID   `json:"runtime_id"`
	Path      ResolutionPath   `json:"resolution_path"`
}

// ScreenContext mirrors the primary display's geometry. Immutable value,
// passed through from the OS-facing layer.
type ScreenContext struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Scale  float64 `json:"scale"`
}
