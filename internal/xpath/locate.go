package xpath

import (
	"github.com/openautomata/windrive/internal/tree"
)

// Locate parses expr and returns every node in snap satisfying the full
// segment chain, in document order. Matching is case-sensitive; a segment
// without an ordinal matches sibling position 1.
func Locate(snap *tree.Snapshot, expr string) ([]*tree.Node, error) {
	parsed, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return LocateExpr(snap, parsed), nil
}

// LocateExpr evaluates an already-parsed expression.
func LocateExpr(snap *tree.Snapshot, expr *Expr) []*tree.Node {
	if snap == nil || snap.Root() == nil || len(expr.Segments) == 0 {
		return nil
	}

	first := expr.Segments[0]
	var frontier []*tree.Node
	if expr.Anywhere {
		snap.Walk(func(n *tree.Node) bool {
			if segmentMatches(first, n) {
				frontier = append(frontier, n)
			}
			return true
		})
	} else {
		for _, c := range snap.Root().Children {
			if segmentMatches(first, c) {
				frontier = append(frontier, c)
			}
		}
	}

	for _, seg := range expr.Segments[1:] {
		var next []*tree.Node
		for _, n := range frontier {
			for _, c := range n.Children {
				if segmentMatches(seg, c) {
					next = append(next, c)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		frontier = next
	}
	return frontier
}

// Matches reports whether node satisfies the full expression within snap,
// checking the segment chain upward through the node's ancestors and the
// expression's anchor.
func Matches(snap *tree.Snapshot, node *tree.Node, expr *Expr) bool {
	segs := expr.Segments
	n := node
	for i := len(segs) - 1; i >= 0; i-- {
		if n == nil || !segmentMatches(segs[i], n) {
			return false
		}
		n = snap.Parent(n)
	}
	if expr.Anywhere {
		return true
	}
	// Absolute paths must consume the chain up to the snapshot root.
	return n == snap.Root()
}

// FindFinalCandidates returns, in document order, every node matching the
// expression's final segment by name and control type alone. This is the
// recovery tier that tolerates ancestor restructuring.
func FindFinalCandidates(snap *tree.Snapshot, expr *Expr) []*tree.Node {
	final := FinalSegment(expr.Segments)
	var out []*tree.Node
	snap.Walk(func(n *tree.Node) bool {
		if n.Type == final.Type && (!final.HasName || n.Name == final.Name) {
			out = append(out, n)
		}
		return true
	})
	return out
}

func segmentMatches(seg Segment, n *tree.Node) bool {
	if n.Type != seg.Type {
		return false
	}
	if seg.HasName && n.Name != seg.Name {
		return false
	}
	for k, v := range seg.Attrs {
		if n.Attr(k) != v {
			return false
		}
	}
	ordinal := seg.Ordinal
	if ordinal == 0 {
		ordinal = 1
	}
	nodeOrdinal := n.Ordinal
	if nodeOrdinal == 0 {
		nodeOrdinal = 1
	}
	return nodeOrdinal == ordinal
}
