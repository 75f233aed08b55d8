package lexer

import (
	"fmt"

	"quill/internal/diag"
	"quill/internal/source"
)

type scanState uint8

const (
	stateLiteral scanState = iota
	stateInString
	stateInChar
	stateInLineComment
	stateInBlockComment
)

type opener struct {
	b  byte
	at uint32
}

type scanOutcome uint8

const (
	// outcomeStopped means the stop predicate fired or the outermost group closed.
	outcomeStopped scanOutcome = iota
	// outcomeEOF means input ended cleanly with no open delimiter.
	outcomeEOF
	// outcomeFailed means a diagnostic was reported.
	outcomeFailed
)

// stopFunc is consulted in literal state before each byte is consumed.
// depth is the number of open delimiters.
type stopFunc func(b byte, depth int) bool

// hostScanner walks embedded host-language code tracking delimiter depth,
// skipping the bodies of string, character and comment literals.
type hostScanner struct {
	c     *Cursor
	r     diag.Reporter
	stack []opener
	// untilClosed stops right after the delimiter that empties the stack.
	untilClosed bool
}

func closerFor(b byte) byte {
	switch b {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	}
	return 0
}

func openerFor(b byte) byte {
	switch b {
	case ')':
		return '('
	case ']':
		return '['
	case '}':
		return '{'
	}
	return 0
}

func (s *hostScanner) run(stop stopFunc) scanOutcome {
	state := stateLiteral
	var litStart Mark
	var quote byte

	for !s.c.EOF() {
		b := s.c.Peek()
		switch state {
		case stateLiteral:
			if stop != nil && stop(b, len(s.stack)) {
				return outcomeStopped
			}
			switch b {
			case '"', '`':
				state, quote, litStart = stateInString, b, s.c.Mark()
			case '\'':
				state, quote, litStart = stateInChar, b, s.c.Mark()
			case '/':
				if _, b1, ok := s.c.Peek2(); ok && b1 == '/' {
					state = stateInLineComment
					s.c.Bump()
				} else if ok && b1 == '*' {
					state, litStart = stateInBlockComment, s.c.Mark()
					s.c.Bump()
				}
			case '(', '[', '{':
				s.stack = append(s.stack, opener{b: b, at: s.c.Off})
			case ')', ']', '}':
				if !s.close(b) {
					return outcomeFailed
				}
				s.c.Bump()
				if s.untilClosed && len(s.stack) == 0 {
					return outcomeStopped
				}
				continue
			}
			s.c.Bump()

		case stateInString, stateInChar:
			s.c.Bump()
			switch {
			case b == '\\' && quote != '`':
				s.c.Bump()
			case b == quote:
				state = stateLiteral
			case b == '\n' && quote != '`':
				s.reportLiteral(state, litStart)
				return outcomeFailed
			}

		case stateInLineComment:
			if b == '\n' {
				state = stateLiteral
				continue
			}
			s.c.Bump()

		case stateInBlockComment:
			if b0, b1, ok := s.c.Peek2(); ok && b0 == '*' && b1 == '/' {
				s.c.Bump()
				s.c.Bump()
				state = stateLiteral
				continue
			}
			s.c.Bump()
		}
	}

	switch state {
	case stateInString, stateInChar, stateInBlockComment:
		s.reportLiteral(state, litStart)
		return outcomeFailed
	}
	if len(s.stack) > 0 {
		top := s.stack[len(s.stack)-1]
		sp := s.c.SpanFrom(Mark(top.at))
		sp.End = sp.Start + 1
		report(s.r, diag.LexUnclosedDelimiter, sp, fmt.Sprintf("'%c' is never closed", top.b))
		return outcomeFailed
	}
	return outcomeEOF
}

func (s *hostScanner) close(b byte) bool {
	at := s.c.Mark()
	if len(s.stack) == 0 {
		sp := s.c.SpanFrom(at)
		sp.End++
		report(s.r, diag.LexUnbalancedDelimiter, sp, fmt.Sprintf("unexpected '%c'", b))
		return false
	}
	top := s.stack[len(s.stack)-1]
	if top.b != openerFor(b) {
		sp := s.c.SpanFrom(at)
		sp.End++
		msg := fmt.Sprintf("mismatched '%c', expected '%c'", b, closerFor(top.b))
		bld := diag.ReportError(s.r, diag.LexUnbalancedDelimiter, sp, msg)
		open := sp
		open.Start, open.End = top.at, top.at+1
		bld.WithNote(open, fmt.Sprintf("'%c' opened here", top.b)).Emit()
		return false
	}
	s.stack = s.stack[:len(s.stack)-1]
	return true
}

func (s *hostScanner) reportLiteral(state scanState, start Mark) {
	sp := s.c.SpanFrom(start)
	switch state {
	case stateInString:
		report(s.r, diag.LexUnterminatedString, sp, "unterminated string literal")
	case stateInChar:
		report(s.r, diag.LexUnterminatedChar, sp, "unterminated character literal")
	case stateInBlockComment:
		report(s.r, diag.LexUnterminatedBlockComment, sp, "unterminated block comment")
	}
}

func report(r diag.Reporter, code diag.Code, sp source.Span, msg string) {
	diag.ReportError(r, code, sp, msg).Emit()
}
