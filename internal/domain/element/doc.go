// Package element implements client-held element handles and the staleness
// recovery engine that re-locates them after the UI tree mutates.
//
// A handle's xpath is its durable identity, computed once at discovery and
// never altered. The runtime id is only a cache hint: on a miss the resolver
// runs at most one refresh cycle and then degrades through progressively
// looser structural matching before giving up.
package element
