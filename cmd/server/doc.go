// Command server runs the windrive HTTP service: UI tree sessions, element
// resolution with staleness recovery, and app activation.
package main
