// Package activation finds or launches a target application window and
// brings it to the foreground, driven by a small state machine.
package activation
