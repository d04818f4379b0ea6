package xpath

import (
	"strings"

	"github.com/openautomata/windrive/internal/tree"
)

// Separator joins path segments.
const Separator = "/"

// Segment is one step of a structural path.
type Segment struct {
	Type    tree.ControlType
	Name    string
	HasName bool
	// Attrs holds extra attribute predicates (ClassName, AutomationId, ...).
	Attrs map[string]string
	// Ordinal is the 1-based sibling position; 0 means unspecified and is
	// treated as 1 during matching.
	Ordinal int
}

// Build deterministically encodes the path from the snapshot root down to
// node. The ancestor chain runs root-first and includes the snapshot root,
// which is not encoded: paths start at the root's children, mirroring how
// the automation layer addresses elements beneath the desktop.
//
// The xpath is computed once at discovery time and becomes the handle's
// durable identity; Build must therefore stay stable for identical trees.
func Build(node *tree.Node, ancestors []*tree.Node) string {
	chain := make([]*tree.Node, 0, len(ancestors)+1)
	chain = append(chain, ancestors...)
	chain = append(chain, node)

	var b strings.Builder
	for i, n := range chain {
		if i == 0 && len(chain) > 1 {
			// Snapshot root, carried only as the ordinal context of
			// its children.
			continue
		}
		b.WriteString(Separator)
		writeSegment(&b, n, siblingCount(chain, i))
	}
	if b.Len() == 0 {
		b.WriteString(Separator)
		writeSegment(&b, node, 1)
	}
	return b.String()
}

// BuildFromSnapshot encodes the canonical path of a node that lives in snap.
func BuildFromSnapshot(snap *tree.Snapshot, node *tree.Node) string {
	return Build(node, snap.Ancestors(node))
}

// siblingCount returns how many children of chain[i]'s parent share its name
// and control type. Defaults to 1 when the parent is unknown.
func siblingCount(chain []*tree.Node, i int) int {
	if i == 0 {
		return 1
	}
	parent := chain[i-1]
	n := chain[i]
	count := 0
	for _, c := range parent.Children {
		if c.Name == n.Name && c.Type == n.Type {
			count++
		}
	}
	if count == 0 {
		count = 1
	}
	return count
}

func writeSegment(b *strings.Builder, n *tree.Node, siblings int) {
	b.WriteString(string(n.Type))
	if n.Name != "" {
		b.WriteString(`[@Name="`)
		b.WriteString(escapeName(n.Name))
		b.WriteString(`"]`)
	}
	if siblings > 1 {
		ordinal := n.Ordinal
		if ordinal == 0 {
			ordinal = 1
		}
		b.WriteByte('[')
		writeInt(b, ordinal)
		b.WriteByte(']')
	}
}

func writeInt(b *strings.Builder, v int) {
	if v >= 10 {
		writeInt(b, v/10)
	}
	b.WriteByte(byte('0' + v%10))
}

// escapeName backslash-escapes quotes so names containing '"' round-trip
// through the path grammar.
func escapeName(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FinalSegment returns the last segment of a parsed expression.
func FinalSegment(segs []Segment) Segment {
	return segs[len(segs)-1]
}
