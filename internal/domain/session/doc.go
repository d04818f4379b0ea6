// Package session owns per-session automation state.
//
// The Registry maps session ids to independently lockable slots, so
// contention on one session never blocks another. Each State holds at most
// one current snapshot; the Coordinator replaces it atomically after a
// deadline-bounded collection, never holding the slot lock across the wait.
package session
