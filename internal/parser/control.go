package parser

import (
	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/lexer"
	"quill/internal/source"
)

// parseClause reads `head { body }` for a clause of kind k.
func (p *Parser) parseClause(start lexer.Mark, k ast.ClauseKind) (ast.Clause, bool) {
	cl := ast.Clause{Kind: k}
	if k != ast.ClauseElse {
		head, ok := lexer.ScanHead(&p.c, p.lex())
		if !ok {
			return cl, false
		}
		cl.HeadSpan = head
		cl.Head = p.c.Text(head)
		if cl.Head == "" {
			p.errorf(diag.SynEmptyHead, p.c.SpanFrom(start), "'%s' needs a condition before '{'", k)
		}
	}
	p.c.SkipWhitespace()
	if p.c.Peek() != '{' {
		p.errorf(diag.SynExpectBrace, p.here(), "expected '{' to open the '%s' body", k)
		return cl, false
	}
	body, _, ok := p.parseBody()
	if !ok {
		return cl, false
	}
	cl.Body = body
	cl.Span = p.c.SpanFrom(start)
	return cl, true
}

func (p *Parser) parseIf(start lexer.Mark) ast.NodeID {
	first, ok := p.parseClause(start, ast.ClauseIf)
	if !ok {
		return ast.NoNodeID
	}
	n := ast.Node{Kind: ast.KindConditionalOrLoop, Clauses: []ast.Clause{first}}

	for !p.halted {
		m := p.c.Mark()
		p.c.SkipWhitespace()
		p.c.Eat(lexer.Marker)
		if !p.atWord("else") {
			p.c.Reset(m)
			break
		}
		clStart := p.c.Mark()
		p.c.EatString("else")
		p.c.SkipWhitespace()
		if p.c.Peek() != '{' && !p.atWord("if") {
			p.c.Reset(m)
			break
		}
		if p.atWord("if") {
			p.c.EatString("if")
			cl, ok := p.parseClause(clStart, ast.ClauseElseIf)
			if !ok {
				return ast.NoNodeID
			}
			n.Clauses = append(n.Clauses, cl)
			continue
		}
		cl, ok := p.parseClause(clStart, ast.ClauseElse)
		if !ok {
			return ast.NoNodeID
		}
		n.Clauses = append(n.Clauses, cl)
		break
	}
	n.Span = p.c.SpanFrom(start)
	return p.b.Add(n)
}

func (p *Parser) parseLoop(start lexer.Mark, k ast.ClauseKind) ast.NodeID {
	cl, ok := p.parseClause(start, k)
	if !ok {
		return ast.NoNodeID
	}
	return p.b.Add(ast.Node{
		Kind:    ast.KindConditionalOrLoop,
		Span:    p.c.SpanFrom(start),
		Clauses: []ast.Clause{cl},
	})
}

func (p *Parser) parseMatch(start lexer.Mark) ast.NodeID {
	head, ok := lexer.ScanHead(&p.c, p.lex())
	if !ok {
		return ast.NoNodeID
	}
	n := ast.Node{Kind: ast.KindMatchExpression, CodeSpan: head, Code: p.c.Text(head)}
	if n.Code == "" {
		p.errorf(diag.SynEmptyHead, p.c.SpanFrom(start), "'match' needs a value before '{'")
	}
	p.c.SkipWhitespace()
	if p.c.Peek() != '{' {
		p.errorf(diag.SynExpectBrace, p.here(), "expected '{' to open the match arms")
		return ast.NoNodeID
	}
	open := p.c.Mark()
	p.c.Bump()
	if !p.enter(p.c.SpanFrom(open)) {
		return ast.NoNodeID
	}
	defer p.leave()

	for !p.halted {
		p.skipArmTrivia()
		if p.c.EOF() {
			openSp := source.Span{File: p.file.ID, Start: uint32(open), End: uint32(open) + 1}
			p.fatalf(diag.SynUnclosedBlock, openSp, "match block is never closed; expected '}'")
			return ast.NoNodeID
		}
		if p.c.Eat('}') {
			n.Span = p.c.SpanFrom(start)
			return p.b.Add(n)
		}
		arm, ok := p.parseArm()
		if !ok {
			if !p.halted {
				p.recoverArm()
			}
			continue
		}
		n.Arms = append(n.Arms, arm)
	}
	return ast.NoNodeID
}

func (p *Parser) parseArm() (ast.Arm, bool) {
	armStart := p.c.Mark()
	pat, ok := lexer.ScanPattern(&p.c, p.lex())
	if !ok {
		return ast.Arm{}, false
	}
	arm := ast.Arm{PatternSpan: pat, Pattern: p.c.Text(pat)}
	if arm.Pattern == "" {
		p.errorf(diag.SynBadMatchArm, p.here(), "expected a pattern before '=>'")
		return arm, false
	}
	if !p.c.EatString("=>") {
		p.errorf(diag.SynBadMatchArm, p.here(), "expected '=>' after pattern %q", arm.Pattern)
		return arm, false
	}
	p.c.SkipWhitespace()
	if p.c.Peek() != '{' {
		p.errorf(diag.SynExpectBrace, p.here(), "expected '{' to open the arm body")
		return arm, false
	}
	body, _, ok := p.parseBody()
	if !ok {
		return arm, false
	}
	arm.Body = body
	arm.Span = p.c.SpanFrom(armStart)
	return arm, true
}

// skipArmTrivia skips blanks, commas and template comments between arms.
func (p *Parser) skipArmTrivia() {
	for {
		p.c.SkipWhitespace()
		switch {
		case p.c.Eat(','):
		case p.c.HasPrefix("@*"):
			start := p.c.Mark()
			p.c.Bump()
			p.parseComment(start)
		default:
			return
		}
	}
}

// recoverArm skips to the next line so a broken arm does not stall the loop.
func (p *Parser) recoverArm() {
	for !p.c.EOF() && p.c.Peek() != '\n' && p.c.Peek() != '}' {
		p.c.Bump()
	}
	p.c.Eat('\n')
}

// atWord reports whether the keyword w starts at the cursor and is not a
// prefix of a longer identifier.
func (p *Parser) atWord(w string) bool {
	if !p.c.HasPrefix(w) {
		return false
	}
	m := p.c.Mark()
	p.c.EatString(w)
	next := lexer.AtIdentStart(&p.c) || isDigit(p.c.Peek())
	p.c.Reset(m)
	return !next
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
