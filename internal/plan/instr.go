package plan

import (
	"fmt"

	"quill/internal/source"
)

type Op uint8

const (
	OpText           Op = iota // emit Text verbatim
	OpExpr                     // evaluate Code, emit escaped when Escaped
	OpCode                     // run the statements in Code
	OpIf                       // first clause whose head holds; else clause has none
	OpFor                      // Clauses[0].Head is "x in xs"
	OpWhile                    // Clauses[0].Head is the condition
	OpMatch                    // Code is the scrutinee, Arms in source order
	OpBind                     // bind Name for the next OpInvoke
	OpBindChildren             // bind Body as the callee's child content
	OpInvoke                   // call Unit with the pending bindings
	OpInvokeChildren           // render the current unit's child content
	OpSplice                   // render the root section Name
	OpContinue
	OpBreak
	opCount
)

var opNames = [...]string{
	OpText:           "text",
	OpExpr:           "expr",
	OpCode:           "code",
	OpIf:             "if",
	OpFor:            "for",
	OpWhile:          "while",
	OpMatch:          "match",
	OpBind:           "bind",
	OpBindChildren:   "bind_children",
	OpInvoke:         "invoke",
	OpInvokeChildren: "invoke_children",
	OpSplice:         "splice",
	OpContinue:       "continue",
	OpBreak:          "break",
}

func (o Op) String() string {
	if o < opCount {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

func (o Op) MarshalText() ([]byte, error) {
	if o >= opCount {
		return nil, fmt.Errorf("unknown op %d", uint8(o))
	}
	return []byte(opNames[o]), nil
}

func (o *Op) UnmarshalText(b []byte) error {
	for i, name := range opNames {
		if name == string(b) {
			*o = Op(i)
			return nil
		}
	}
	return fmt.Errorf("unknown op %q", b)
}

// BindKind selects how an OpBind value is produced.
type BindKind uint8

const (
	BindString BindKind = iota // Text
	BindNumber                 // Text holds the literal
	BindFlag                   // true
	BindExpr                   // Code, evaluated in the caller's scope
	BindBlock                  // Body, rendered lazily in the caller's scope
)

func (k BindKind) String() string {
	switch k {
	case BindString:
		return "string"
	case BindNumber:
		return "number"
	case BindFlag:
		return "flag"
	case BindExpr:
		return "expr"
	case BindBlock:
		return "block"
	default:
		return fmt.Sprintf("BindKind(%d)", uint8(k))
	}
}

type ClauseKind uint8

const (
	ClauseIf ClauseKind = iota
	ClauseElseIf
	ClauseElse
	ClauseFor
	ClauseWhile
)

// Instr is one step of a render routine. Op selects the meaningful fields.
type Instr struct {
	Op       Op          `msgpack:"op" json:"op"`
	Text     string      `msgpack:"text,omitempty" json:"text,omitempty"`
	Code     string      `msgpack:"code,omitempty" json:"code,omitempty"`
	Escaped  bool        `msgpack:"escaped,omitempty" json:"escaped,omitempty"`
	Name     string      `msgpack:"name,omitempty" json:"name,omitempty"`
	Bind     BindKind    `msgpack:"bind,omitempty" json:"bind,omitempty"`
	Unit     UnitID      `msgpack:"unit,omitempty" json:"unit,omitempty"`
	Optional bool        `msgpack:"optional,omitempty" json:"optional,omitempty"`
	Body     []Instr     `msgpack:"body,omitempty" json:"body,omitempty"`
	Clauses  []Clause    `msgpack:"clauses,omitempty" json:"clauses,omitempty"`
	Arms     []Arm       `msgpack:"arms,omitempty" json:"arms,omitempty"`
	Span     source.Span `msgpack:"span" json:"span"`
}

type Clause struct {
	Kind ClauseKind `msgpack:"kind" json:"kind"`
	Head string     `msgpack:"head,omitempty" json:"head,omitempty"`
	Body []Instr    `msgpack:"body" json:"body"`
}

type Arm struct {
	Pattern string  `msgpack:"pattern" json:"pattern"`
	Body    []Instr `msgpack:"body" json:"body"`
}

// StaticSize sums literal bytes in instrs and every nested stream.
func StaticSize(instrs []Instr) int {
	n := 0
	for i := range instrs {
		in := &instrs[i]
		if in.Op == OpText {
			n += len(in.Text)
		}
		n += StaticSize(in.Body)
		for _, c := range in.Clauses {
			n += StaticSize(c.Body)
		}
		for _, a := range in.Arms {
			n += StaticSize(a.Body)
		}
	}
	return n
}
