package session

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openautomata/windrive/internal/shared/id"
	"github.com/openautomata/windrive/internal/shared/types"
)

// slot pairs one session's state with its own lock. The lock is held only
// for pointer-sized reads and replacements, never across a collection wait.
type slot struct {
	mu sync.Mutex
	// state is nil after Destroy; a goroutine that grabbed the slot
	// pointer before removal observes the tombstone instead of racing a
	// half-torn-down session.
	state *State
}

// Registry owns every SessionState, keyed by session id. Ids are never
// reused for the registry's lifetime.
type Registry struct {
	mu     sync.RWMutex
	slots  map[string]*slot
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		slots:  make(map[string]*slot),
		logger: logger,
	}
}

// Create allocates a new session and returns its id.
func (r *Registry) Create(timeout time.Duration, autoRecover bool) string {
	sessionID := id.NewSessionID()
	st := &State{
		id:          sessionID,
		timeout:     timeout,
		autoRecover: autoRecover,
		createdAt:   time.Now(),
	}

	r.mu.Lock()
	r.slots[sessionID] = &slot{state: st}
	r.mu.Unlock()

	r.logger.Info("session created",
		zap.String("session_id", sessionID),
		zap.Duration("timeout", timeout),
		zap.Bool("auto_recover", autoRecover),
	)
	return sessionID
}

// WithSession grants short-lived, lock-scoped access to one session's state.
// fn runs under the session's slot lock and must not block: no collection,
// no I/O. Returns ErrUnknownSession when the id was destroyed or never
// existed.
func (r *Registry) WithSession(sessionID string, fn func(*State) error) error {
	r.mu.RLock()
	sl, ok := r.slots[sessionID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, types.ErrUnknownSession)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.state == nil {
		return fmt.Errorf("session %s: %w", sessionID, types.ErrUnknownSession)
	}
	return fn(sl.state)
}

// Destroy removes a session. In-flight operations that already hold the
// slot observe the tombstone and fail with ErrUnknownSession rather than
// touching freed state.
func (r *Registry) Destroy(sessionID string) error {
	r.mu.Lock()
	sl, ok := r.slots[sessionID]
	if ok {
		delete(r.slots, sessionID)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, types.ErrUnknownSession)
	}

	sl.mu.Lock()
	sl.state = nil
	sl.mu.Unlock()

	r.logger.Info("session destroyed", zap.String("session_id", sessionID))
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}

// List returns the configuration of every live session.
func (r *Registry) List() []types.SessionInfo {
	r.mu.RLock()
	slots := make([]*slot, 0, len(r.slots))
	for _, sl := range r.slots {
		slots = append(slots, sl)
	}
	r.mu.RUnlock()

	infos := make([]types.SessionInfo, 0, len(slots))
	for _, sl := range slots {
		sl.mu.Lock()
		if sl.state != nil {
			infos = append(infos, sl.state.Info())
		}
		sl.mu.Unlock()
	}
	return infos
}
