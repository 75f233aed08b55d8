package ast

// Visitor is called for every node reached by Walk. Returning false skips
// the node's descendants.
type Visitor func(id NodeID, n *Node) bool

// Walk visits id and its descendants depth-first in source order: children,
// clause bodies, arm bodies and block-valued attributes.
func Walk(b *Builder, id NodeID, fn Visitor) {
	n := b.Get(id)
	if n == nil || !fn(id, n) {
		return
	}
	for _, a := range n.Attrs {
		WalkList(b, a.Body, fn)
	}
	for _, c := range n.Clauses {
		WalkList(b, c.Body, fn)
	}
	for _, a := range n.Arms {
		WalkList(b, a.Body, fn)
	}
	WalkList(b, n.Children, fn)
}

// WalkList walks each id in order.
func WalkList(b *Builder, ids []NodeID, fn Visitor) {
	for _, id := range ids {
		Walk(b, id, fn)
	}
}

// Collect returns the ids of every node of kind k under root.
func Collect(b *Builder, root NodeID, k Kind) []NodeID {
	var out []NodeID
	Walk(b, root, func(id NodeID, n *Node) bool {
		if n.Kind == k {
			out = append(out, id)
		}
		return true
	})
	return out
}
