// Package types contains shared value types and the error taxonomy used
// across the element-location engine and its API surface.
package types
