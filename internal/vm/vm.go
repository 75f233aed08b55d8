// Package vm renders a compiled plan.Program against a data map.
//
// Host expressions are evaluated through an Evaluator; the default one
// compiles expressions with expr-lang and caches the compiled programs
// for the lifetime of the VM.
package vm

import (
	"bytes"
	"context"
	"io"
	"maps"

	"quill/internal/plan"
	"quill/internal/trace"
)

const (
	DefaultMaxIterations = 100_000
	DefaultMaxDepth      = 256
)

// Options configures rendering.
type Options struct {
	// NoEscape emits every expression raw.
	NoEscape bool
	// MaxIterations bounds each @while loop.
	MaxIterations int
	// MaxDepth bounds nested component invocations.
	MaxDepth  int
	Evaluator Evaluator
}

// VM executes one program. It is safe for concurrent Render calls when its
// Evaluator is.
type VM struct {
	P    *plan.Program
	opts Options
}

// New creates a VM for prog.
func New(prog *plan.Program, opts Options) *VM {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Evaluator == nil {
		opts.Evaluator = NewExprEvaluator()
	}
	return &VM{P: prog, opts: opts}
}

// Render executes prog with default options.
func Render(ctx context.Context, prog *plan.Program, data map[string]any, w io.Writer) error {
	return New(prog, Options{}).Render(ctx, data, w)
}

// Render executes the root unit and writes the output to w. Nothing is
// written when rendering fails.
func (vm *VM) Render(ctx context.Context, data map[string]any, w io.Writer) error {
	span, ctx := trace.Start(ctx, trace.ScopePass, "render")
	defer span.End("")

	root := vm.P.RootUnit()
	if root == nil {
		return &VMError{Code: PanicNoRoot, Message: "program has no root unit"}
	}
	var buf bytes.Buffer
	buf.Grow(root.StaticSize)

	r := &run{
		vm:   vm,
		ctx:  ctx,
		out:  &buf,
		root: root,
		data: maps.Clone(data),
	}
	fr := &Frame{Unit: root, Scope: newScope(nil, r.data).Child()}
	if _, err := r.exec(fr, root.Instrs); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
