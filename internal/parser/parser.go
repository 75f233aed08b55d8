package parser

import (
	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/lexer"
	"quill/internal/source"
)

// DefaultMaxDepth bounds nesting of blocks, components and fragments.
const DefaultMaxDepth = 256

type Options struct {
	MaxDepth  int
	MaxErrors uint
	Reporter  diag.Reporter
}

// enough reports whether the error budget is exhausted.
func (o *Options) enough(current uint) bool {
	return o.MaxErrors != 0 && current >= o.MaxErrors
}

type Result struct {
	Builder *ast.Builder
	Root    ast.NodeID
	// Fatal is set when parsing stopped on unrecoverable structural breakage.
	Fatal  bool
	Errors uint
}

// mode selects the text terminators of the content being parsed.
type mode uint8

const (
	modeTop mode = iota
	modeBlock
	modeComponent
	modeFragment
)

// Parser holds the state for one template file.
type Parser struct {
	c      lexer.Cursor
	b      *ast.Builder
	file   *source.File
	opts   Options
	errors uint
	depth  int
	halted bool
	fatal  bool
}

// ParseFile parses one template file into a fresh ast.Builder.
func ParseFile(fs *source.FileSet, id source.FileID, opts Options) Result {
	f := fs.Get(id)
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	p := &Parser{
		c:    lexer.NewCursor(f),
		b:    ast.NewBuilder(id, ast.Hints{Nodes: uint(len(f.Content)/16 + 8)}),
		file: f,
		opts: opts,
	}

	root := p.b.Add(ast.Node{
		Kind: ast.KindTemplate,
		Path: f.Path,
		Span: source.Span{File: id, Start: 0, End: p.c.Limit},
	})
	children, _ := p.parseContent(modeTop)
	p.b.Get(root).Children = children

	return Result{
		Builder: p.b,
		Root:    root,
		Fatal:   p.fatal,
		Errors:  p.errors,
	}
}

// parseContent reads nodes until the terminator of m. For nested modes
// closed reports whether the terminator was found before EOF.
func (p *Parser) parseContent(m mode) (nodes []ast.NodeID, closed bool) {
	braceDepth := 0
	for !p.halted {
		if p.c.EOF() {
			return nodes, m == modeTop
		}
		b0 := p.c.Peek()
		b1 := p.c.PeekAt(1)
		switch {
		case b0 == lexer.Marker && b1 != lexer.Marker:
			nodes = p.appendNode(nodes, p.parseMarker(m))
			continue
		case b0 == '<' && lexer.IsUpperStart(b1):
			nodes = p.appendNode(nodes, p.parseComponent())
			continue
		case b0 == '<' && b1 == '/' && lexer.IsUpperStart(p.c.PeekAt(2)):
			if m == modeComponent {
				return nodes, true
			}
			p.strayClosingTag()
			continue
		case b0 == '<' && b1 == '/' && p.c.PeekAt(2) == '>' && m == modeFragment:
			return nodes, true
		case b0 == '}' && m == modeBlock && braceDepth == 0:
			return nodes, true
		}
		if id := p.parseText(m, &braceDepth); id.IsValid() {
			nodes = append(nodes, id)
		}
	}
	return nodes, false
}

func (p *Parser) appendNode(nodes []ast.NodeID, id ast.NodeID) []ast.NodeID {
	if id.IsValid() {
		nodes = append(nodes, id)
	}
	return nodes
}

// parseText consumes a run of literal text. Doubled markers stay in the run
// and are collapsed in the node value. Inside brace bodies balanced '{' '}'
// pairs are text; braceDepth carries the balance across interleaved nodes.
func (p *Parser) parseText(m mode, braceDepth *int) ast.NodeID {
	start := p.c.Mark()
loop:
	for !p.c.EOF() {
		b0 := p.c.Peek()
		b1 := p.c.PeekAt(1)
		switch {
		case b0 == lexer.Marker:
			if b1 != lexer.Marker {
				break loop
			}
			p.c.Bump()
		case b0 == '<' && lexer.IsUpperStart(b1):
			break loop
		case b0 == '<' && b1 == '/' && (lexer.IsUpperStart(p.c.PeekAt(2)) || (m == modeFragment && p.c.PeekAt(2) == '>')):
			break loop
		case b0 == '{' && m == modeBlock:
			*braceDepth++
		case b0 == '}' && m == modeBlock:
			if *braceDepth == 0 {
				break loop
			}
			*braceDepth--
		}
		p.c.Bump()
	}
	sp := p.c.SpanFrom(start)
	if sp.Empty() {
		return ast.NoNodeID
	}
	kind := ast.KindText
	if m == modeBlock {
		kind = ast.KindInnerText
	}
	return p.b.NewText(kind, sp, lexer.CollapseMarkers(p.c.Text(sp)))
}

// parseBody parses a '{ ... }' template body. The cursor must be on '{'.
func (p *Parser) parseBody() (nodes []ast.NodeID, sp source.Span, ok bool) {
	open := p.c.Mark()
	p.c.Bump()
	if !p.enter(p.c.SpanFrom(open)) {
		return nil, p.c.SpanFrom(open), false
	}
	defer p.leave()

	nodes, closed := p.parseContent(modeBlock)
	if p.halted {
		return nodes, p.c.SpanFrom(open), false
	}
	if !closed || !p.c.Eat('}') {
		openSp := source.Span{File: p.file.ID, Start: uint32(open), End: uint32(open) + 1}
		p.fatalf(diag.SynUnclosedBlock, openSp, "block is never closed; expected '}'")
		return nodes, p.c.SpanFrom(open), false
	}
	return nodes, p.c.SpanFrom(open), true
}

func (p *Parser) enter(sp source.Span) bool {
	p.depth++
	if p.depth > p.opts.MaxDepth {
		p.fatalf(diag.SynNestingTooDeep, sp, "nesting exceeds the maximum depth")
		return false
	}
	return true
}

func (p *Parser) leave() {
	p.depth--
}

// eatLineEnd consumes trailing blanks and one newline after a directive
// that produces no output, when nothing else follows on the line.
func (p *Parser) eatLineEnd() {
	m := p.c.Mark()
	p.c.SkipSpaces()
	if p.c.EOF() {
		return
	}
	if p.c.Eat('\n') {
		return
	}
	if p.c.Peek() == '\r' && p.c.PeekAt(1) == '\n' {
		p.c.Bump()
		p.c.Bump()
		return
	}
	p.c.Reset(m)
}

func (p *Parser) strayClosingTag() {
	start := p.c.Mark()
	p.c.Bump()
	p.c.Bump()
	lexer.ScanIdent(&p.c)
	name := p.c.Text(p.c.SpanFrom(start))[2:]
	p.c.SkipSpaces()
	p.c.Eat('>')
	p.errorf(diag.SynUnexpectedCloseTag, p.c.SpanFrom(start), "closing tag </%s> has no matching opening tag", name)
}
