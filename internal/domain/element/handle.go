package element

import (
	"sync"

	"github.com/openautomata/windrive/internal/tree"
)

// Handle is a client-held reference to one UI element: the owning session id
// (lookup only, no ownership), the canonical xpath, and the last-known
// runtime id. Handles are safe for concurrent use; only the runtime id ever
// changes after construction.
type Handle struct {
	sessionID string
	xpath     string

	mu     sync.Mutex
	lastID tree.RuntimeID
}

// NewHandle creates a handle. The xpath is fixed for the handle's lifetime.
func NewHandle(sessionID, xpath string, runtimeID tree.RuntimeID) *Handle {
	return &Handle{sessionID: sessionID, xpath: xpath, lastID: runtimeID}
}

// SessionID returns the owning session's id.
func (h *Handle) SessionID() string { return h.sessionID }

// XPath returns the handle's durable identity. Never recomputed.
func (h *Handle) XPath() string { return h.xpath }

// LastRuntimeID returns the cached runtime id hint. It may be invalid at
// any time.
func (h *Handle) LastRuntimeID() tree.RuntimeID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastID
}

func (h *Handle) rememberRuntimeID(id tree.RuntimeID) {
	h.mu.Lock()
	h.lastID = id
	h.mu.Unlock()
}
