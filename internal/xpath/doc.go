// Package xpath builds and evaluates structural path expressions against UI
// tree snapshots.
//
// The canonical path notation is not XML XPath: each segment encodes a
// control type, an optional quoted Name predicate, optional extra attribute
// predicates, and a 1-based sibling ordinal that is only written when more
// than one same-name-and-type sibling exists, e.g.
//
//	/Window[@Name="Calculator"]/Pane/Button[@Name="Nine"][2]
//
// Matching is case-sensitive and a missing ordinal means ordinal 1. A
// leading "//" anchors the first segment anywhere in the tree instead of at
// the root's children.
//
// Real XPath queries are also supported: Query evaluates arbitrary
// expressions through github.com/antchfx/xpath over a navigator view of the
// snapshot.
package xpath
