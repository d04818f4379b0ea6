// Package tree defines the immutable UI-tree snapshot model.
//
// A Snapshot is one capture of the desktop window hierarchy at a point in
// time. Nodes carry a control type, display name, attribute map, a 1-based
// ordinal among same-name-and-type siblings, and an opaque runtime id that is
// unique within the snapshot but never stable across snapshots.
//
// Snapshots are frozen at construction: a new capture wholly replaces the old
// one, so concurrent readers never observe partial mutation.
package tree
