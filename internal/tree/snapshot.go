package tree

import (
	"time"
)

// Snapshot is one immutable capture of the UI tree. All lookups run against
// indexes built at construction; nothing mutates after NewSnapshot returns.
type Snapshot struct {
	root       *Node
	capturedAt time.Time

	byRuntimeID map[string]*Node
	parents     map[*Node]*Node
	count       int
}

// NewSnapshot freezes root into a snapshot captured at the given time. It
// assigns sibling ordinals and builds the runtime-id and parent indexes.
func NewSnapshot(root *Node, capturedAt time.Time) *Snapshot {
	s := &Snapshot{
		root:        root,
		capturedAt:  capturedAt,
		byRuntimeID: make(map[string]*Node),
		parents:     make(map[*Node]*Node),
	}
	if root != nil {
		s.index(root, nil)
	}
	return s
}

func (s *Snapshot) index(n *Node, parent *Node) {
	s.parents[n] = parent
	s.count++
	if !n.RuntimeID.IsZero() {
		s.byRuntimeID[n.RuntimeID.Key()] = n
	}

	// Ordinals: 1-based position among same-name-and-type siblings.
	seen := make(map[string]int, len(n.Children))
	for _, c := range n.Children {
		key := string(c.Type) + "\x00" + c.Name
		seen[key]++
		c.Ordinal = seen[key]
	}
	for _, c := range n.Children {
		s.index(c, n)
	}
}

// Root returns the snapshot's single root node.
func (s *Snapshot) Root() *Node { return s.root }

// CapturedAt returns the capture timestamp.
func (s *Snapshot) CapturedAt() time.Time { return s.capturedAt }

// Len returns the number of nodes in the snapshot.
func (s *Snapshot) Len() int { return s.count }

// FindByRuntimeID resolves a runtime id against this snapshot. The id must
// have been produced by this same snapshot to be meaningful.
func (s *Snapshot) FindByRuntimeID(id RuntimeID) (*Node, bool) {
	if id.IsZero() {
		return nil, false
	}
	n, ok := s.byRuntimeID[id.Key()]
	return n, ok
}

// Parent returns the parent of n, or nil for the root or unknown nodes.
func (s *Snapshot) Parent(n *Node) *Node { return s.parents[n] }

// Ancestors returns the chain from the root down to n's parent. The result
// is empty when n is the root.
func (s *Snapshot) Ancestors(n *Node) []*Node {
	var chain []*Node
	for p := s.parents[n]; p != nil; p = s.parents[p] {
		chain = append(chain, p)
	}
	// Reverse: collected leaf-to-root, callers want root-to-leaf.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Walk visits every node in document order (depth-first, children in tree
// order) until fn returns false.
func (s *Snapshot) Walk(fn func(n *Node) bool) {
	if s.root == nil {
		return
	}
	s.walk(s.root, fn)
}

func (s *Snapshot) walk(n *Node, fn func(n *Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !s.walk(c, fn) {
			return false
		}
	}
	return true
}

// FindByNameAndType returns, in document order, every node with the given
// display name and control type. Comparison is case-sensitive.
func (s *Snapshot) FindByNameAndType(name string, ct ControlType) []*Node {
	var out []*Node
	s.Walk(func(n *Node) bool {
		if n.Name == name && n.Type == ct {
			out = append(out, n)
		}
		return true
	})
	return out
}
