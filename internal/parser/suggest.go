package parser

import (
	"path"
	"strings"
	"unicode"

	"quill/internal/diag"
	"quill/internal/lexer"
)

// looksLikeDirective reports whether a non-keyword word after the marker
// has directive shape: `@word head {` on one line, or `@word("...")` close
// to a directive taking a string argument.
func (p *Parser) looksLikeDirective(word string) bool {
	m := p.c.Mark()
	defer p.c.Reset(m)

	switch p.c.Peek() {
	case '(':
		p.c.Bump()
		p.c.SkipSpaces()
		if b := p.c.Peek(); b != '"' && b != '\'' {
			return false
		}
		for _, k := range []string{"extends", "section", "render"} {
			if word[0] == k[0] && editDistance(word, k) <= 2 {
				return true
			}
		}
		return false
	case ' ', '\t', '{':
	default:
		return false
	}

	head, ok := lexer.ScanHead(&p.c, nil)
	if !ok || p.c.Peek() != '{' {
		return false
	}
	return !strings.Contains(p.c.Text(head), "\n")
}

func (p *Parser) unknownDirective(start lexer.Mark, word string) {
	var b strings.Builder
	b.WriteString("unknown directive '@")
	b.WriteString(word)
	b.WriteString("'")
	if s := Closest(word, keywords); s != "" {
		b.WriteString("; did you mean '@")
		b.WriteString(s)
		b.WriteString("'?")
	}
	b.WriteString(" valid directives: ")
	for i, k := range keywords {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("@")
		b.WriteString(k)
	}
	b.WriteString("; write '@@' for a literal '@'")
	p.fatalf(diag.SynUnknownDirective, p.c.SpanFrom(start), "%s", b.String())
}

// Closest returns the candidate within edit distance 2 of word, or "".
// Ties go to the earlier candidate.
func Closest(word string, candidates []string) string {
	best, bestDist := "", 3
	for _, k := range candidates {
		if d := editDistance(word, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

// editDistance is the Levenshtein distance between a and b.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// DefaultAlias derives a component alias from a template path: the file
// stem split on '-', '_' and '.', each part capitalised.
// "components/user-card.tpl" becomes "UserCard".
func DefaultAlias(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	var b strings.Builder
	for _, part := range strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == ' '
	}) {
		rs := []rune(part)
		rs[0] = unicode.ToUpper(rs[0])
		b.WriteString(string(rs))
	}
	return b.String()
}
