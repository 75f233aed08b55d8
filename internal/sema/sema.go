// Package sema runs the static checks over a resolved template graph.
//
// Every check runs independently and all findings are collected before
// the caller decides whether compilation may proceed: Error findings are
// fatal, Warning and Caution findings are advisory.
package sema

import (
	"context"
	"fmt"

	"quill/internal/diag"
	"quill/internal/hostexpr"
	"quill/internal/resolve"
	"quill/internal/trace"
)

type Options struct {
	// Fields lists the context names expressions may read. Nil disables
	// the field existence check.
	Fields     []string
	NoWarnings bool
	Checker    hostexpr.Checker
	Reporter   diag.Reporter
}

// Result counts the reported findings by severity.
type Result struct {
	Errors   int
	Warnings int
	Cautions int
}

// Fatal reports whether an Error was found.
func (r Result) Fatal() bool { return r.Errors > 0 }

type checker struct {
	g      *resolve.Graph
	opts   Options
	rep    *counter
	fields map[string]bool
	used   map[*resolve.UseRecord]bool
}

// Analyze checks every template of the graph.
func Analyze(ctx context.Context, g *resolve.Graph, opts Options) Result {
	span, ctx := trace.Start(ctx, trace.ScopePass, "sema")
	if opts.Checker == nil {
		opts.Checker = hostexpr.Default
	}
	var res Result
	c := &checker{
		g:    g,
		opts: opts,
		rep:  &counter{next: opts.Reporter, noWarnings: opts.NoWarnings, res: &res},
		used: make(map[*resolve.UseRecord]bool),
	}
	if opts.Fields != nil {
		c.fields = make(map[string]bool, len(opts.Fields))
		for _, f := range opts.Fields {
			c.fields[f] = true
		}
	}

	for _, ref := range g.Order {
		tmpl := g.Template(ref)
		tspan, _ := trace.Start(trace.WithTemplate(ctx, tmpl.Path), trace.ScopeTemplate, "analyze")
		w := newWalker(c, tmpl)
		w.declarations()
		w.list(tmpl.TopLevel())
		tspan.End("")
	}
	c.checkImports()
	c.checkSections()

	span.Set("errors", fmt.Sprint(res.Errors)).
		Set("warnings", fmt.Sprint(res.Warnings)).
		Set("cautions", fmt.Sprint(res.Cautions)).
		End("")
	return res
}

// reporter returns the reporter for findings inside tmpl.
func (c *checker) reporter(tmpl *resolve.Template) diag.Reporter {
	return diag.ChainReporter{Next: c.rep, Outer: tmpl.Chain}
}

// counter tallies findings and drops warnings when asked to.
type counter struct {
	next       diag.Reporter
	noWarnings bool
	res        *Result
}

func (c *counter) Report(d *diag.Diagnostic) {
	switch d.Severity {
	case diag.SevWarning:
		if c.noWarnings {
			return
		}
		c.res.Warnings++
	case diag.SevCaution:
		c.res.Cautions++
	case diag.SevError:
		c.res.Errors++
	}
	if c.next != nil {
		c.next.Report(d)
	}
}
