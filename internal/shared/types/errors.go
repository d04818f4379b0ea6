package types

import "errors"

// Sentinel errors for every failure the engine can surface. Callers branch
// with errors.Is; wrapping adds context without losing the category.
var (
	// ErrUnknownSession: the session id was destroyed or never existed.
	ErrUnknownSession = errors.New("unknown session")

	// ErrTimeout: a deadline elapsed during collection or polling. The
	// caller may retry with a fresh deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrElementNotFound: no structural candidate survived the full
	// recovery tiers. Not retried internally.
	ErrElementNotFound = errors.New("element not found")

	// ErrCollectionFailed: the tree-walk collaborator reported failure.
	ErrCollectionFailed = errors.New("snapshot collection failed")

	// ErrLaunchFailure: the target process could not be started.
	ErrLaunchFailure = errors.New("process launch failed")
)
