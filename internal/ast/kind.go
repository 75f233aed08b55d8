package ast

import "strings"

// Kind is the closed set of template constructs.
type Kind uint8

const (
	KindTemplate Kind = iota
	KindText
	KindInnerText
	KindComment
	KindExtendsDirective
	KindUseDirective
	KindParamDecl
	KindRenderDirective
	KindRenderBody
	KindSectionDirective
	KindSectionBlock
	KindCodeBlock
	KindSimpleExpression
	KindParenExpression
	KindConditionalOrLoop
	KindMatchExpression
	KindComponent
	KindChildContent
	KindContinue
	KindBreak
	KindRaw

	kindCount
)

var kindNames = [kindCount]string{
	KindTemplate:          "Template",
	KindText:              "Text",
	KindInnerText:         "InnerText",
	KindComment:           "Comment",
	KindExtendsDirective:  "ExtendsDirective",
	KindUseDirective:      "UseDirective",
	KindParamDecl:         "ParamDecl",
	KindRenderDirective:   "RenderDirective",
	KindRenderBody:        "RenderBody",
	KindSectionDirective:  "SectionDirective",
	KindSectionBlock:      "SectionBlock",
	KindCodeBlock:         "CodeBlock",
	KindSimpleExpression:  "SimpleExpression",
	KindParenExpression:   "ParenExpression",
	KindConditionalOrLoop: "ConditionalOrLoop",
	KindMatchExpression:   "MatchExpression",
	KindComponent:         "Component",
	KindChildContent:      "ChildContent",
	KindContinue:          "Continue",
	KindBreak:             "Break",
	KindRaw:               "Raw",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "Invalid"
}

// IsLiteral reports whether the node emits fixed text.
func (k Kind) IsLiteral() bool {
	return k == KindText || k == KindInnerText || k == KindRaw
}

// IsDirective reports whether the node only affects composition.
func (k Kind) IsDirective() bool {
	switch k {
	case KindExtendsDirective, KindUseDirective, KindParamDecl,
		KindSectionDirective, KindSectionBlock:
		return true
	}
	return false
}

// ClauseKind distinguishes the clauses of a ConditionalOrLoop.
type ClauseKind uint8

const (
	ClauseIf ClauseKind = iota
	ClauseElseIf
	ClauseElse
	ClauseFor
	ClauseWhile
)

func (k ClauseKind) String() string {
	switch k {
	case ClauseIf:
		return "if"
	case ClauseElseIf:
		return "else if"
	case ClauseElse:
		return "else"
	case ClauseFor:
		return "for"
	case ClauseWhile:
		return "while"
	}
	return "?"
}

// IsLoop reports whether the clause repeats its body.
func (k ClauseKind) IsLoop() bool {
	return k == ClauseFor || k == ClauseWhile
}

// AttrKind is the value form of a component attribute.
type AttrKind uint8

const (
	AttrString AttrKind = iota
	AttrFlag
	AttrNumber
	AttrExpr
	AttrBlock
)

func (k AttrKind) String() string {
	switch k {
	case AttrString:
		return "string"
	case AttrFlag:
		return "flag"
	case AttrNumber:
		return "number"
	case AttrExpr:
		return "expr"
	case AttrBlock:
		return "block"
	}
	return "?"
}

// IsBlank reports whether n produces no visible output: a comment or
// whitespace-only text.
func IsBlank(n *Node) bool {
	switch n.Kind {
	case KindComment:
		return true
	case KindText, KindInnerText:
		return strings.TrimLeft(n.Value, " \t\r\n") == ""
	}
	return false
}
