package parser

import (
	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/lexer"
	"quill/internal/source"
)

// parseComponent reads `<Name attrs/>` or `<Name attrs>body</Name>`.
func (p *Parser) parseComponent() ast.NodeID {
	start := p.c.Mark()
	p.c.Bump()
	nameStart := p.c.Mark()
	scanTagName(&p.c)
	n := ast.Node{Kind: ast.KindComponent, NameSpan: p.c.SpanFrom(nameStart)}
	n.Name = p.c.Text(n.NameSpan)
	tagSp := p.c.SpanFrom(start)

	if !p.enter(tagSp) {
		return ast.NoNodeID
	}
	defer p.leave()

	for !p.halted {
		p.c.SkipWhitespace()
		switch {
		case p.c.EOF():
			p.fatalf(diag.SynUnclosedTag, tagSp, "component tag <%s> is never closed", n.Name)
			return ast.NoNodeID
		case p.c.EatString("/>"):
			n.SelfClosing = true
			n.Span = p.c.SpanFrom(start)
			return p.b.Add(n)
		case p.c.Eat('>'):
			return p.parseComponentBody(start, tagSp, n)
		}
		attr, ok := p.parseAttr()
		if !ok {
			p.skipBadAttr()
			continue
		}
		n.Attrs = append(n.Attrs, attr)
	}
	return ast.NoNodeID
}

func (p *Parser) parseComponentBody(start lexer.Mark, tagSp source.Span, n ast.Node) ast.NodeID {
	body, closed := p.parseContent(modeComponent)
	if p.halted {
		return ast.NoNodeID
	}
	if !closed {
		p.fatalf(diag.SynUnclosedTag, tagSp, "component <%s> is never closed; expected </%s>", n.Name, n.Name)
		return ast.NoNodeID
	}
	closeStart := p.c.Mark()
	p.c.Bump()
	p.c.Bump()
	nameStart := p.c.Mark()
	scanTagName(&p.c)
	closing := p.c.Text(p.c.SpanFrom(nameStart))
	p.c.SkipSpaces()
	if !p.c.Eat('>') {
		p.errorf(diag.SynUnclosedTag, p.c.SpanFrom(closeStart), "expected '>' to finish </%s>", closing)
	}
	if closing != n.Name {
		p.errorf(diag.SynMismatchedTag, p.c.SpanFrom(closeStart), "closing tag </%s> does not match <%s>", closing, n.Name).
			WithNote(tagSp, "opened here")
	}
	n.Children = body
	n.Span = p.c.SpanFrom(start)
	return p.b.Add(n)
}

func (p *Parser) parseAttr() (ast.Attr, bool) {
	start := p.c.Mark()
	if !scanAttrName(&p.c) {
		p.errorf(diag.SynBadAttribute, p.here(), "expected an attribute name")
		return ast.Attr{}, false
	}
	a := ast.Attr{NameSpan: p.c.SpanFrom(start)}
	a.Name = p.c.Text(a.NameSpan)

	m := p.c.Mark()
	p.c.SkipSpaces()
	if !p.c.Eat('=') {
		p.c.Reset(m)
		a.Kind = ast.AttrFlag
		a.Value = "true"
		a.Span = a.NameSpan
		return a, true
	}
	p.c.SkipSpaces()

	switch b0, b1 := p.c.Peek(), p.c.PeekAt(1); {
	case b0 == '"' || b0 == '\'':
		inner, ok := lexer.ScanQuoted(&p.c, p.lex())
		if !ok {
			return a, false
		}
		a.Kind, a.ValueSpan = ast.AttrString, inner
	case b0 == '{':
		inner, ok := lexer.ScanBalanced(&p.c, p.lex())
		if !ok {
			return a, false
		}
		a.Kind, a.ValueSpan = ast.AttrExpr, lexer.TrimSpan(p.file, inner)
	case b0 == lexer.Marker && b1 == '(':
		p.c.Bump()
		inner, ok := lexer.ScanBalanced(&p.c, p.lex())
		if !ok {
			return a, false
		}
		a.Kind, a.ValueSpan = ast.AttrExpr, lexer.TrimSpan(p.file, inner)
	case b0 == lexer.Marker:
		p.c.Bump()
		code, ok := lexer.ScanSimpleExpr(&p.c, p.lex())
		if !ok {
			p.errorf(diag.SynBadAttribute, p.here(), "expected an expression after '@' in attribute %q", a.Name)
			return a, false
		}
		a.Kind, a.ValueSpan = ast.AttrExpr, code
	case isDigit(b0) || ((b0 == '-' || b0 == '+') && isDigit(b1)):
		a.Kind, a.ValueSpan = ast.AttrNumber, p.scanNumber()
	case b0 == '<' && b1 == '>':
		body, sp, ok := p.parseFragment()
		if !ok {
			return a, false
		}
		a.Kind, a.ValueSpan, a.Body = ast.AttrBlock, sp, body
	default:
		p.errorf(diag.SynBadAttribute, p.here(), "attribute %q has no valid value", a.Name)
		return a, false
	}
	if a.Kind != ast.AttrBlock {
		a.Value = p.c.Text(a.ValueSpan)
	}
	a.Span = p.c.SpanFrom(start)
	return a, true
}

// parseFragment reads `<> content </>` used as a block-valued attribute.
func (p *Parser) parseFragment() ([]ast.NodeID, source.Span, bool) {
	start := p.c.Mark()
	p.c.Bump()
	p.c.Bump()
	if !p.enter(p.c.SpanFrom(start)) {
		return nil, p.c.SpanFrom(start), false
	}
	defer p.leave()

	body, closed := p.parseContent(modeFragment)
	if p.halted {
		return nil, p.c.SpanFrom(start), false
	}
	if !closed || !p.c.EatString("</>") {
		open := source.Span{File: p.file.ID, Start: uint32(start), End: uint32(start) + 2}
		p.fatalf(diag.SynUnclosedBlock, open, "fragment is never closed; expected '</>'")
		return nil, p.c.SpanFrom(start), false
	}
	return body, p.c.SpanFrom(start), true
}

func (p *Parser) scanNumber() source.Span {
	start := p.c.Mark()
	if b := p.c.Peek(); b == '-' || b == '+' {
		p.c.Bump()
	}
	dot := false
	for !p.c.EOF() {
		b := p.c.Peek()
		if isDigit(b) || b == '_' {
			p.c.Bump()
			continue
		}
		if b == '.' && !dot && isDigit(p.c.PeekAt(1)) {
			dot = true
			p.c.Bump()
			continue
		}
		break
	}
	return p.c.SpanFrom(start)
}

// skipBadAttr resynchronises after a malformed attribute.
func (p *Parser) skipBadAttr() {
	for !p.c.EOF() {
		switch b := p.c.Peek(); {
		case b == ' ' || b == '\t' || b == '\n' || b == '>':
			return
		case b == '/' && p.c.PeekAt(1) == '>':
			return
		}
		p.c.Bump()
	}
}

func scanTagName(c *lexer.Cursor) {
	for !c.EOF() {
		b := c.Peek()
		if !(b == '_' || b == '.' || isDigit(b) || (b|0x20 >= 'a' && b|0x20 <= 'z')) {
			return
		}
		c.Bump()
	}
}

func scanAttrName(c *lexer.Cursor) bool {
	if !lexer.AtIdentStart(c) {
		return false
	}
	lexer.ScanIdent(c)
	for c.Peek() == '-' || c.Peek() == ':' {
		m := c.Mark()
		c.Bump()
		if !lexer.ScanIdent(c) {
			c.Reset(m)
			break
		}
	}
	return true
}
