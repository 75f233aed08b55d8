package ast

import (
	"quill/internal/source"
)

type Hints struct{ Nodes uint }

// Builder owns the node arena of one parsed template.
type Builder struct {
	Nodes *Arena[Node]
	File  source.FileID
}

func NewBuilder(file source.FileID, hints Hints) *Builder {
	if hints.Nodes == 0 {
		hints.Nodes = 1 << 7
	}
	return &Builder{
		Nodes: NewArena[Node](hints.Nodes),
		File:  file,
	}
}

// New allocates an empty node of the given kind.
func (b *Builder) New(kind Kind, sp source.Span) NodeID {
	return NodeID(b.Nodes.Allocate(Node{Kind: kind, Span: sp}))
}

// Add allocates a fully populated node.
func (b *Builder) Add(n Node) NodeID {
	return NodeID(b.Nodes.Allocate(n))
}

func (b *Builder) Get(id NodeID) *Node {
	return b.Nodes.Get(uint32(id))
}

func (b *Builder) NewText(kind Kind, sp source.Span, value string) NodeID {
	return b.Add(Node{Kind: kind, Span: sp, Value: value})
}

func (b *Builder) NewExpr(kind Kind, sp, code source.Span, text string, escaped bool) NodeID {
	return b.Add(Node{Kind: kind, Span: sp, Code: text, CodeSpan: code, Escaped: escaped})
}

// Append adds child to a node with a Children list.
func (b *Builder) Append(parent, child NodeID) {
	p := b.Get(parent)
	p.Children = append(p.Children, child)
}
