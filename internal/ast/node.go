package ast

import (
	"quill/internal/source"
)

// Node is one parsed construct. Kind selects which payload fields are
// meaningful:
//
//	Text, InnerText, Raw      Value (markers collapsed for text)
//	Comment                   Value
//	ExtendsDirective          Path, PathSpan, Target
//	UseDirective              Name (alias), Path, PathSpan, Target
//	ParamDecl                 Name, Code (default), HasDefault
//	RenderDirective           Name, Optional
//	SectionDirective          Name, Code (inline content)
//	SectionBlock              Name, Children
//	CodeBlock                 Code
//	Simple/ParenExpression    Code, Escaped
//	ConditionalOrLoop         Clauses
//	MatchExpression           Code (head), Arms
//	Component                 Name (tag), Attrs, Children, SelfClosing
//	Template                  Children
type Node struct {
	Kind Kind
	Span source.Span

	Value    string
	Code     string
	CodeSpan source.Span
	Escaped  bool

	Name     string
	NameSpan source.Span
	Path     string
	PathSpan source.Span
	Target   TemplateRef

	Optional    bool
	HasDefault  bool
	SelfClosing bool

	Children []NodeID
	Clauses  []Clause
	Arms     []Arm
	Attrs    []Attr
}

// Clause is one branch of an if/else chain or the single clause of a loop.
type Clause struct {
	Kind     ClauseKind
	Head     string
	HeadSpan source.Span
	Body     []NodeID
	Span     source.Span
}

// Arm is a match arm; order is source order.
type Arm struct {
	Pattern     string
	PatternSpan source.Span
	Body        []NodeID
	Span        source.Span
}

// Attr is a component attribute.
type Attr struct {
	Name      string
	NameSpan  source.Span
	Kind      AttrKind
	Value     string
	ValueSpan source.Span
	Body      []NodeID // AttrBlock only
	Span      source.Span
}
