package types

import "time"

// SessionConfig is the caller-visible configuration of one session.
type SessionConfig struct {
	ID          string        `json:"session_id"`
	Timeout     time.Duration `json:"timeout"`
	AutoRecover bool          `json:"auto_recover"`
}

// SessionInfo extends the config with snapshot bookkeeping for status
// endpoints.
type SessionInfo struct {
	SessionConfig
	HasSnapshot   bool      `json:"has_snapshot"`
	SnapshotAge   string    `json:"snapshot_age,omitempty"`
	SnapshotNodes int       `json:"snapshot_nodes,omitempty"`
	CapturedAt    time.Time `json:"captured_at,omitempty"`
}
