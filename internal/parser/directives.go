package parser

import (
	"strings"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/lexer"
	"quill/internal/source"
)

// keywords lists every directive that may follow the marker.
var keywords = []string{
	"if", "for", "while", "match", "continue", "break",
	"extends", "use", "param", "section", "render", "render_body",
	"children", "raw",
}

func isKeyword(word string) bool {
	for _, k := range keywords {
		if k == word {
			return true
		}
	}
	return false
}

// parseMarker dispatches on what follows a single marker.
func (p *Parser) parseMarker(m mode) ast.NodeID {
	start := p.c.Mark()
	p.c.Bump()

	switch b := p.c.Peek(); {
	case b == '*':
		return p.parseComment(start)
	case b == '(':
		return p.parseParenExpr(start, true)
	case b == '{':
		return p.parseCodeBlock(start)
	case b == '!':
		p.c.Bump()
		switch {
		case p.c.Peek() == '(':
			return p.parseParenExpr(start, false)
		case p.c.Peek() == '&' || lexer.AtIdentStart(&p.c):
			return p.parseSimpleExpr(start, false)
		}
		p.errorf(diag.SynExpectIdentifier, p.c.SpanFrom(start), "expected an expression after '@!'")
		return ast.NoNodeID
	case b == '&':
		return p.parseSimpleExpr(start, true)
	case lexer.AtIdentStart(&p.c):
		wordStart := p.c.Mark()
		lexer.ScanIdent(&p.c)
		word := p.c.Text(p.c.SpanFrom(wordStart))
		if isKeyword(word) {
			return p.parseDirective(start, word, m)
		}
		switch word {
		case "else":
			p.errorf(diag.SynStrayElse, p.c.SpanFrom(start), "'else' without a preceding '@if' block")
			return ast.NoNodeID
		case "endraw":
			p.errorf(diag.SynDirectivePosition, p.c.SpanFrom(start), "'@endraw' without a matching '@raw'")
			return ast.NoNodeID
		}
		if p.looksLikeDirective(word) {
			p.unknownDirective(start, word)
			return ast.NoNodeID
		}
		p.c.Reset(wordStart)
		return p.parseSimpleExpr(start, true)
	}

	p.errorf(diag.SynExpectIdentifier, p.c.SpanFrom(start),
		"expected an expression or directive after '@'; write '@@' for a literal '@'")
	return ast.NoNodeID
}

func (p *Parser) parseComment(start lexer.Mark) ast.NodeID {
	p.c.Bump()
	bodyStart := p.c.Mark()
	for !p.c.EOF() {
		if p.c.HasPrefix("*@") {
			body := p.c.Text(p.c.SpanFrom(bodyStart))
			p.c.Bump()
			p.c.Bump()
			return p.b.NewText(ast.KindComment, p.c.SpanFrom(start), body)
		}
		p.c.Bump()
	}
	open := source.Span{File: p.file.ID, Start: uint32(start), End: uint32(start) + 2}
	p.fatalf(diag.SynUnclosedComment, open, "comment is never closed; expected '*@'")
	return ast.NoNodeID
}

func (p *Parser) parseParenExpr(start lexer.Mark, escaped bool) ast.NodeID {
	inner, ok := lexer.ScanBalanced(&p.c, p.lex())
	if !ok {
		return ast.NoNodeID
	}
	code := lexer.TrimSpan(p.file, inner)
	if code.Empty() {
		p.errorf(diag.LexEmptyExpression, p.c.SpanFrom(start), "empty expression")
		return ast.NoNodeID
	}
	return p.b.NewExpr(ast.KindParenExpression, p.c.SpanFrom(start), code, p.c.Text(code), escaped)
}

func (p *Parser) parseSimpleExpr(start lexer.Mark, escaped bool) ast.NodeID {
	code, ok := lexer.ScanSimpleExpr(&p.c, p.lex())
	if !ok {
		if code.Empty() {
			p.errorf(diag.SynExpectIdentifier, p.c.SpanFrom(start), "expected an identifier")
		}
		return ast.NoNodeID
	}
	return p.b.NewExpr(ast.KindSimpleExpression, p.c.SpanFrom(start), code, p.c.Text(code), escaped)
}

func (p *Parser) parseCodeBlock(start lexer.Mark) ast.NodeID {
	inner, ok := lexer.ScanBalanced(&p.c, p.lex())
	if !ok {
		p.fatal = true
		p.halted = true
		return ast.NoNodeID
	}
	code := lexer.TrimSpan(p.file, inner)
	return p.b.NewExpr(ast.KindCodeBlock, p.c.SpanFrom(start), code, p.c.Text(code), false)
}

func (p *Parser) parseDirective(start lexer.Mark, word string, m mode) ast.NodeID {
	switch word {
	case "if":
		return p.parseIf(start)
	case "for":
		return p.parseLoop(start, ast.ClauseFor)
	case "while":
		return p.parseLoop(start, ast.ClauseWhile)
	case "match":
		return p.parseMatch(start)
	case "continue":
		return p.b.New(ast.KindContinue, p.c.SpanFrom(start))
	case "break":
		return p.b.New(ast.KindBreak, p.c.SpanFrom(start))
	case "render_body":
		return p.b.New(ast.KindRenderBody, p.c.SpanFrom(start))
	case "children":
		return p.b.New(ast.KindChildContent, p.c.SpanFrom(start))
	case "render":
		return p.parseRender(start)
	case "raw":
		return p.parseRaw(start)
	}

	// Composition directives are only meaningful at the top of a template.
	if m != modeTop || p.depth > 0 {
		p.errorf(diag.SynDirectivePosition, p.c.SpanFrom(start), "'@%s' is only allowed at the top level of a template", word)
	}
	var id ast.NodeID
	switch word {
	case "extends":
		id = p.parseExtends(start)
	case "use":
		id = p.parseUse(start)
	case "param":
		id = p.parseParam(start)
	case "section":
		id = p.parseSection(start)
	}
	if id.IsValid() {
		p.eatLineEnd()
	}
	return id
}

// parsePathArg reads `("path")` or `"path"`.
func (p *Parser) parsePathArg(start lexer.Mark, directive string) (string, source.Span, bool) {
	p.c.SkipSpaces()
	paren := p.c.Eat('(')
	if paren {
		p.c.SkipSpaces()
	}
	if b := p.c.Peek(); b != '"' && b != '\'' {
		p.errorf(diag.SynExpectString, p.here(), "'@%s' expects a quoted template path", directive)
		return "", p.c.SpanFrom(start), false
	}
	inner, ok := lexer.ScanQuoted(&p.c, p.lex())
	if !ok {
		return "", inner, false
	}
	if paren {
		p.c.SkipSpaces()
		if !p.c.Eat(')') {
			p.errorf(diag.SynBadDirectiveArgs, p.here(), "expected ')' after the path of '@%s'", directive)
			return "", inner, false
		}
	}
	path := p.c.Text(inner)
	if strings.TrimSpace(path) == "" {
		p.errorf(diag.SynExpectString, inner, "'@%s' path is empty", directive)
		return "", inner, false
	}
	return path, inner, true
}

func (p *Parser) parseExtends(start lexer.Mark) ast.NodeID {
	path, pathSp, ok := p.parsePathArg(start, "extends")
	if !ok {
		return ast.NoNodeID
	}
	return p.b.Add(ast.Node{
		Kind:     ast.KindExtendsDirective,
		Span:     p.c.SpanFrom(start),
		Path:     path,
		PathSpan: pathSp,
	})
}

func (p *Parser) parseUse(start lexer.Mark) ast.NodeID {
	path, pathSp, ok := p.parsePathArg(start, "use")
	if !ok {
		return ast.NoNodeID
	}
	alias := DefaultAlias(path)
	aliasSp := pathSp

	m := p.c.Mark()
	p.c.SkipSpaces()
	if p.c.HasPrefix("as") && !lexer.IsIdentifier(string(p.c.PeekAt(2))) {
		p.c.EatString("as")
		p.c.SkipSpaces()
		nameStart := p.c.Mark()
		if !lexer.ScanIdent(&p.c) {
			p.errorf(diag.SynExpectIdentifier, p.here(), "expected an alias after 'as'")
			return ast.NoNodeID
		}
		aliasSp = p.c.SpanFrom(nameStart)
		alias = p.c.Text(aliasSp)
	} else {
		p.c.Reset(m)
	}

	return p.b.Add(ast.Node{
		Kind:     ast.KindUseDirective,
		Span:     p.c.SpanFrom(start),
		Name:     alias,
		NameSpan: aliasSp,
		Path:     path,
		PathSpan: pathSp,
	})
}

func (p *Parser) parseParam(start lexer.Mark) ast.NodeID {
	p.c.SkipSpaces()
	nameStart := p.c.Mark()
	if !lexer.ScanIdent(&p.c) {
		p.errorf(diag.SynExpectIdentifier, p.here(), "'@param' expects a parameter name")
		return ast.NoNodeID
	}
	n := ast.Node{
		Kind:     ast.KindParamDecl,
		NameSpan: p.c.SpanFrom(nameStart),
	}
	n.Name = p.c.Text(n.NameSpan)

	m := p.c.Mark()
	p.c.SkipSpaces()
	if p.c.Eat('=') {
		p.c.SkipSpaces()
		if p.c.Peek() != '{' {
			p.errorf(diag.SynExpectBrace, p.here(), "parameter default must be a '{ ... }' code block")
			return ast.NoNodeID
		}
		inner, ok := lexer.ScanBalanced(&p.c, p.lex())
		if !ok {
			return ast.NoNodeID
		}
		n.CodeSpan = lexer.TrimSpan(p.file, inner)
		n.Code = p.c.Text(n.CodeSpan)
		n.HasDefault = true
	} else {
		p.c.Reset(m)
	}
	n.Span = p.c.SpanFrom(start)
	return p.b.Add(n)
}

func (p *Parser) parseSection(start lexer.Mark) ast.NodeID {
	p.c.SkipSpaces()
	if p.c.Peek() == '(' {
		return p.parseInlineSection(start)
	}

	n := ast.Node{Kind: ast.KindSectionBlock}
	switch {
	case p.c.Peek() == '"' || p.c.Peek() == '\'':
		inner, ok := lexer.ScanQuoted(&p.c, p.lex())
		if !ok {
			return ast.NoNodeID
		}
		n.NameSpan = inner
	default:
		nameStart := p.c.Mark()
		if !lexer.ScanIdent(&p.c) {
			p.errorf(diag.SynExpectIdentifier, p.here(), "'@section' expects a section name")
			return ast.NoNodeID
		}
		n.NameSpan = p.c.SpanFrom(nameStart)
	}
	n.Name = p.c.Text(n.NameSpan)

	p.c.SkipWhitespace()
	if p.c.Peek() != '{' {
		p.errorf(diag.SynExpectBrace, p.here(), "expected '{' to open section %q", n.Name)
		return ast.NoNodeID
	}
	body, _, ok := p.parseBody()
	if !ok {
		return ast.NoNodeID
	}
	n.Children = body
	n.Span = p.c.SpanFrom(start)
	return p.b.Add(n)
}

// parseInlineSection reads `("name", content-code)`.
func (p *Parser) parseInlineSection(start lexer.Mark) ast.NodeID {
	inner, ok := lexer.ScanBalanced(&p.c, p.lex())
	if !ok {
		return ast.NoNodeID
	}
	args := lexer.SplitTopLevel(p.c.Text(inner), ',')
	if len(args) != 2 || !isQuoted(args[0].Text) || args[1].Text == "" {
		p.errorf(diag.SynBadDirectiveArgs, p.c.SpanFrom(start), `inline '@section' expects ("name", content)`)
		return ast.NoNodeID
	}
	nameSp := subSpan(inner, args[0].Off+1, len(args[0].Text)-2)
	codeSp := subSpan(inner, args[1].Off, len(args[1].Text))
	return p.b.Add(ast.Node{
		Kind:     ast.KindSectionDirective,
		Span:     p.c.SpanFrom(start),
		Name:     unquote(args[0].Text),
		NameSpan: nameSp,
		Code:     args[1].Text,
		CodeSpan: codeSp,
	})
}

// parseRender reads `("name")` or `("name", optional)`.
func (p *Parser) parseRender(start lexer.Mark) ast.NodeID {
	if p.c.Peek() != '(' {
		p.errorf(diag.SynBadDirectiveArgs, p.here(), `'@render' expects ("section-name")`)
		return ast.NoNodeID
	}
	inner, ok := lexer.ScanBalanced(&p.c, p.lex())
	if !ok {
		return ast.NoNodeID
	}
	args := lexer.SplitTopLevel(p.c.Text(inner), ',')
	if len(args) == 0 || len(args) > 2 || !isQuoted(args[0].Text) {
		p.errorf(diag.SynBadDirectiveArgs, p.c.SpanFrom(start), `'@render' expects ("section-name") or ("section-name", optional)`)
		return ast.NoNodeID
	}
	n := ast.Node{
		Kind:     ast.KindRenderDirective,
		Name:     unquote(args[0].Text),
		NameSpan: subSpan(inner, args[0].Off+1, len(args[0].Text)-2),
	}
	if len(args) == 2 {
		switch args[1].Text {
		case "optional", "false":
			n.Optional = true
		case "required", "true":
		default:
			p.errorf(diag.SynBadDirectiveArgs, subSpan(inner, args[1].Off, len(args[1].Text)),
				"second '@render' argument must be 'optional' or 'required'")
		}
	}
	n.Span = p.c.SpanFrom(start)
	return p.b.Add(n)
}

func (p *Parser) parseRaw(start lexer.Mark) ast.NodeID {
	bodyStart := p.c.Mark()
	for !p.c.EOF() {
		if p.c.HasPrefix("@endraw") {
			body := p.c.SpanFrom(bodyStart)
			p.c.EatString("@endraw")
			return p.b.NewText(ast.KindRaw, p.c.SpanFrom(start), p.c.Text(body))
		}
		p.c.Bump()
	}
	open := source.Span{File: p.file.ID, Start: uint32(start), End: uint32(bodyStart)}
	p.fatalf(diag.SynUnclosedRaw, open, "'@raw' block is never closed; expected '@endraw'")
	return ast.NoNodeID
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0]
}

func unquote(s string) string {
	return s[1 : len(s)-1]
}

func subSpan(base source.Span, off, n int) source.Span {
	start := base.Start + uint32(off)
	return source.Span{File: base.File, Start: start, End: start + uint32(n)}
}
