// Package driver declares the interfaces consumed from the OS-facing
// automation layer: tree collection, coordinate hit-testing, live element
// actions, process launch, and window foregrounding.
//
// The engine never talks to the OS directly; everything behind these
// interfaces runs on its own execution context and may take substantial
// wall-clock time, so callers must never invoke them while holding a lock.
package driver
