// Package http exposes the engine over REST: session lifecycle, element
// discovery and resolution, actions, app activation, and tree queries.
package http
