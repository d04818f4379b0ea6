// Package monitoring collects Prometheus metrics: HTTP traffic, session
// counts, refresh outcomes, and element resolution tiers.
package monitoring
