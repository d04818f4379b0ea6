package xpath

import (
	"fmt"
	"sort"

	"github.com/antchfx/xpath"

	"github.com/openautomata/windrive/internal/tree"
)

// Query evaluates a real XPath expression against the snapshot and returns
// matching element nodes in document order. The snapshot is presented as a
// document whose elements are named after their control type, with Name,
// RuntimeId and the node's attribute map exposed as XML attributes.
func Query(snap *tree.Snapshot, expr string) ([]*tree.Node, error) {
	if snap == nil || snap.Root() == nil {
		return nil, nil
	}
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile xpath query: %w", err)
	}

	nav := newNavigator(snap)
	result := compiled.Evaluate(nav)
	iter, ok := result.(*xpath.NodeIterator)
	if !ok {
		return nil, fmt.Errorf("xpath query %q does not select nodes", expr)
	}

	var out []*tree.Node
	for iter.MoveNext() {
		cur, ok := iter.Current().(*navigator)
		if !ok || cur.node == nil || cur.attr >= 0 || cur.document {
			continue
		}
		out = append(out, cur.node)
	}
	return out, nil
}

// navigator adapts a Snapshot to antchfx/xpath's NodeNavigator. A virtual
// document node sits above the snapshot root so absolute paths behave like
// XML documents.
type navigator struct {
	snap     *tree.Snapshot
	node     *tree.Node
	document bool
	// attr is the current attribute index, -1 when positioned on the
	// element itself.
	attr int
}

func newNavigator(snap *tree.Snapshot) *navigator {
	return &navigator{snap: snap, document: true, attr: -1}
}

// attrNames returns the attribute order for a node: Name, RuntimeId, then
// the attribute map keys sorted for determinism.
func attrNames(n *tree.Node) []string {
	names := make([]string, 0, len(n.Attrs)+2)
	if n.Name != "" {
		names = append(names, "Name")
	}
	if !n.RuntimeID.IsZero() {
		names = append(names, "RuntimeId")
	}
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return append(names, keys...)
}

func (nav *navigator) attrValue(name string) string {
	switch name {
	case "Name":
		return nav.node.Name
	case "RuntimeId":
		return nav.node.RuntimeID.String()
	default:
		return nav.node.Attr(name)
	}
}

func (nav *navigator) NodeType() xpath.NodeType {
	switch {
	case nav.document:
		return xpath.RootNode
	case nav.attr >= 0:
		return xpath.AttributeNode
	default:
		return xpath.ElementNode
	}
}

func (nav *navigator) LocalName() string {
	switch {
	case nav.document:
		return ""
	case nav.attr >= 0:
		return attrNames(nav.node)[nav.attr]
	default:
		return string(nav.node.Type)
	}
}

func (nav *navigator) Prefix() string { return "" }

func (nav *navigator) Value() string {
	switch {
	case nav.document:
		return ""
	case nav.attr >= 0:
		return nav.attrValue(attrNames(nav.node)[nav.attr])
	default:
		return nav.node.Name
	}
}

func (nav *navigator) Copy() xpath.NodeNavigator {
	c := *nav
	return &c
}

func (nav *navigator) MoveToRoot() {
	nav.document = true
	nav.node = nil
	nav.attr = -1
}

func (nav *navigator) MoveToParent() bool {
	switch {
	case nav.document:
		return false
	case nav.attr >= 0:
		nav.attr = -1
		return true
	case nav.node == nav.snap.Root():
		nav.document = true
		nav.node = nil
		return true
	default:
		parent := nav.snap.Parent(nav.node)
		if parent == nil {
			return false
		}
		nav.node = parent
		return true
	}
}

func (nav *navigator) MoveToNextAttribute() bool {
	if nav.document || nav.node == nil {
		return false
	}
	if nav.attr+1 >= len(attrNames(nav.node)) {
		return false
	}
	nav.attr++
	return true
}

func (nav *navigator) MoveToChild() bool {
	if nav.attr >= 0 {
		return false
	}
	if nav.document {
		if nav.snap.Root() == nil {
			return false
		}
		nav.document = false
		nav.node = nav.snap.Root()
		return true
	}
	if len(nav.node.Children) == 0 {
		return false
	}
	nav.node = nav.node.Children[0]
	return true
}

func (nav *navigator) MoveToFirst() bool {
	if nav.document || nav.attr >= 0 {
		return false
	}
	parent := nav.snap.Parent(nav.node)
	if parent == nil {
		return true
	}
	nav.node = parent.Children[0]
	return true
}

func (nav *navigator) MoveToNext() bool {
	return nav.moveSibling(1)
}

func (nav *navigator) MoveToPrevious() bool {
	return nav.moveSibling(-1)
}

func (nav *navigator) moveSibling(delta int) bool {
	if nav.document || nav.attr >= 0 || nav.node == nil {
		return false
	}
	parent := nav.snap.Parent(nav.node)
	if parent == nil {
		return false
	}
	for i, c := range parent.Children {
		if c == nav.node {
			j := i + delta
			if j < 0 || j >= len(parent.Children) {
				return false
			}
			nav.node = parent.Children[j]
			return true
		}
	}
	return false
}

func (nav *navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*navigator)
	if !ok || o.snap != nav.snap {
		return false
	}
	nav.node = o.node
	nav.document = o.document
	nav.attr = o.attr
	return true
}
