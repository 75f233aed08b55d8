package parser

import (
	"fmt"

	"quill/internal/diag"
	"quill/internal/source"
)

func (p *Parser) reporter() diag.Reporter {
	return p.opts.Reporter
}

// errorf reports a recoverable syntax error.
func (p *Parser) errorf(code diag.Code, sp source.Span, format string, args ...any) *diag.Diagnostic {
	return p.report(diag.SevError, code, sp, fmt.Sprintf(format, args...))
}

// fatalf reports an error and stops parsing the file.
func (p *Parser) fatalf(code diag.Code, sp source.Span, format string, args ...any) *diag.Diagnostic {
	d := p.report(diag.SevError, code, sp, fmt.Sprintf(format, args...))
	p.fatal = true
	p.halted = true
	return d
}

func (p *Parser) report(sev diag.Severity, code diag.Code, sp source.Span, msg string) *diag.Diagnostic {
	if sev == diag.SevError {
		p.errors++
	}
	d := diag.New(sev, code, sp, msg)
	if p.opts.Reporter != nil {
		p.opts.Reporter.Report(d)
	}
	if p.opts.enough(p.errors) {
		p.halted = true
	}
	return d
}

// lexReporter counts errors reported by the scanners against the budget.
type lexReporter struct{ p *Parser }

func (r lexReporter) Report(d *diag.Diagnostic) {
	if d.Severity == diag.SevError {
		r.p.errors++
	}
	if r.p.opts.Reporter != nil {
		r.p.opts.Reporter.Report(d)
	}
	if r.p.opts.enough(r.p.errors) {
		r.p.halted = true
	}
}

func (p *Parser) lex() diag.Reporter {
	return lexReporter{p: p}
}

// here returns a zero-width span at the cursor.
func (p *Parser) here() source.Span {
	return source.Span{File: p.file.ID, Start: p.c.Off, End: p.c.Off}
}
