package hostexpr

import (
	"regexp"
	"strings"

	"quill/internal/lexer"
)

// Wildcard is the catch-all match pattern.
const Wildcard = "_"

// ForHead is a parsed "x in xs" or "k, v in m" loop head.
type ForHead struct {
	Vars []string
	Iter string
}

var forHeadRe = regexp.MustCompile(`(?s)^\s*([\pL_][\pL\pN_]*)(?:\s*,\s*([\pL_][\pL\pN_]*))?\s+in\s+(.+?)\s*$`)

// SplitForHead recognises the iteration form of a for head.
func SplitForHead(head string) (ForHead, bool) {
	m := forHeadRe.FindStringSubmatch(head)
	if m == nil {
		return ForHead{}, false
	}
	h := ForHead{Vars: []string{m[1]}, Iter: m[3]}
	if m[2] != "" {
		h.Vars = append(h.Vars, m[2])
	}
	return h, true
}

// SplitAlternatives splits a match pattern on top-level '|'.
func SplitAlternatives(pattern string) []string {
	segs := lexer.SplitTopLevel(pattern, '|')
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Text
	}
	return out
}

type StmtKind uint8

const (
	StmtExpr StmtKind = iota
	StmtLet
	StmtAssign
)

// Statement is one line of a code block.
type Statement struct {
	Kind StmtKind
	Name string
	Expr string
}

var (
	letRe    = regexp.MustCompile(`(?s)^(?:let|var|const)\s+([\pL_][\pL\pN_]*)\s*(?::=|=)\s*(.+)$`)
	assignRe = regexp.MustCompile(`(?s)^([\pL_][\pL\pN_]*)\s*(?::=|=)\s*([^=].*)$`)
)

// ParseStatement classifies a statement as a binding, an assignment or a
// bare expression.
func ParseStatement(stmt string) Statement {
	stmt = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(stmt), ";"))
	if m := letRe.FindStringSubmatch(stmt); m != nil {
		return Statement{Kind: StmtLet, Name: m[1], Expr: m[2]}
	}
	if m := assignRe.FindStringSubmatch(stmt); m != nil {
		return Statement{Kind: StmtAssign, Name: m[1], Expr: m[2]}
	}
	return Statement{Kind: StmtExpr, Expr: stmt}
}

// SplitStatements splits a code block at top-level ';' and at line ends
// where the text read so far is balanced. Empty statements are dropped.
func SplitStatements(code string) []string {
	var out []string
	for _, seg := range lexer.SplitTopLevel(code, ';') {
		var pending strings.Builder
		for _, line := range strings.Split(seg.Text, "\n") {
			if pending.Len() > 0 {
				pending.WriteByte('\n')
			}
			pending.WriteString(line)
			if lexer.Balanced(pending.String()) == nil {
				if s := strings.TrimSpace(pending.String()); s != "" {
					out = append(out, s)
				}
				pending.Reset()
			}
		}
		if s := strings.TrimSpace(pending.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
