package lexer

import (
	"quill/internal/diag"
	"quill/internal/source"
)

// ScanBalanced consumes a delimited group starting at the opener under the
// cursor, through its matching closer. The returned span covers the content
// between the delimiters.
func ScanBalanced(c *Cursor, r diag.Reporter) (inner source.Span, ok bool) {
	start := c.Mark()
	if closerFor(c.Peek()) == 0 {
		return c.SpanFrom(start), false
	}
	s := hostScanner{c: c, r: r, untilClosed: true}
	if s.run(nil) != outcomeStopped {
		return c.SpanFrom(start), false
	}
	sp := c.SpanFrom(start)
	sp.Start++
	sp.End--
	return sp, true
}

// ScanHead consumes a control head up to an unnested '{', which is left
// under the cursor. A newline at depth zero ends the head unless the next
// non-blank character is the '{'. The span is trimmed of surrounding blanks.
// ok is false only when a lexical error was reported; callers check for the
// brace themselves.
func ScanHead(c *Cursor, r diag.Reporter) (head source.Span, ok bool) {
	c.SkipSpaces()
	start := c.Mark()
	s := hostScanner{c: c, r: r}
	out := s.run(func(b byte, depth int) bool {
		if depth > 0 {
			return false
		}
		switch b {
		case '{':
			return true
		case '\n':
			m := c.Mark()
			c.SkipWhitespace()
			brace := c.Peek() == '{'
			c.Reset(m)
			return !brace
		}
		return false
	})
	return TrimSpan(c.File, c.SpanFrom(start)), out != outcomeFailed
}

// ScanPattern consumes a match-arm pattern up to an unnested "=>", which is
// left under the cursor.
func ScanPattern(c *Cursor, r diag.Reporter) (pattern source.Span, ok bool) {
	c.SkipWhitespace()
	start := c.Mark()
	s := hostScanner{c: c, r: r}
	out := s.run(func(b byte, depth int) bool {
		if depth > 0 {
			return false
		}
		if b == '=' && c.PeekAt(1) == '>' {
			return true
		}
		return b == '}' || b == '\n'
	})
	return TrimSpan(c.File, c.SpanFrom(start)), out != outcomeFailed
}

// ScanSimpleExpr consumes an implicit expression after the marker: an
// optional run of '&', an identifier, then any chain of ".ident", "::ident",
// "&&ident", call and index groups. A '.', "::" or "&&" not followed by an
// identifier is not part of the expression; a single '&' never is.
func ScanSimpleExpr(c *Cursor, r diag.Reporter) (expr source.Span, ok bool) {
	start := c.Mark()
	for c.Peek() == '&' {
		c.Bump()
	}
	if !ScanIdent(c) {
		c.Reset(start)
		return c.SpanFrom(start), false
	}
	for {
		m := c.Mark()
		switch b := c.Peek(); {
		case b == '.':
			c.Bump()
			if !ScanIdent(c) {
				c.Reset(m)
				return c.SpanFrom(start), true
			}
		case b == ':' && c.PeekAt(1) == ':':
			c.Bump()
			c.Bump()
			if !ScanIdent(c) {
				c.Reset(m)
				return c.SpanFrom(start), true
			}
		case b == '&' && c.PeekAt(1) == '&':
			c.Bump()
			c.Bump()
			if !ScanIdent(c) {
				c.Reset(m)
				return c.SpanFrom(start), true
			}
		case b == '(' || b == '[':
			if _, ok := ScanBalanced(c, r); !ok {
				return c.SpanFrom(start), false
			}
		default:
			return c.SpanFrom(start), true
		}
	}
}

// ScanQuoted consumes a "..." or '...' literal and returns the span of its
// content. Escapes are skipped, not decoded.
func ScanQuoted(c *Cursor, r diag.Reporter) (inner source.Span, ok bool) {
	start := c.Mark()
	q := c.Bump()
	for !c.EOF() {
		b := c.Bump()
		switch {
		case b == '\\':
			c.Bump()
		case b == q:
			sp := c.SpanFrom(start)
			sp.Start++
			sp.End--
			return sp, true
		case b == '\n':
			report(r, diag.LexUnterminatedString, c.SpanFrom(start), "unterminated string literal")
			return c.SpanFrom(start), false
		}
	}
	report(r, diag.LexUnterminatedString, c.SpanFrom(start), "unterminated string literal")
	return c.SpanFrom(start), false
}

// TrimSpan narrows sp to exclude leading and trailing whitespace.
func TrimSpan(f *source.File, sp source.Span) source.Span {
	for sp.Start < sp.End && isBlank(f.Content[sp.Start]) {
		sp.Start++
	}
	for sp.End > sp.Start && isBlank(f.Content[sp.End-1]) {
		sp.End--
	}
	return sp
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
