package ast

type (
	// NodeID addresses a node inside a Builder.
	NodeID uint32
	// TemplateRef points at a resolved template in the resolver's table.
	TemplateRef uint32
)

const (
	NoNodeID      NodeID      = 0
	NoTemplateRef TemplateRef = 0
)

func (id NodeID) IsValid() bool      { return id != NoNodeID }
func (id TemplateRef) IsValid() bool { return id != NoTemplateRef }
