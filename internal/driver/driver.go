// Package driver runs the compile pipeline for one root template or a
// directory of them: resolve, analyze, compile.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quill/internal/codegen"
	"quill/internal/diag"
	"quill/internal/hostexpr"
	"quill/internal/observ"
	"quill/internal/plan"
	"quill/internal/resolve"
	"quill/internal/sema"
	"quill/internal/source"
	"quill/internal/trace"
)

// ErrFatal reports that a compilation produced no program because of
// Error diagnostics.
var ErrFatal = errors.New("compilation failed")

// Options configures one compilation.
type Options struct {
	Loader    resolve.Loader
	Extension string
	// Fields is the known context field set; nil disables the check.
	Fields           []string
	Checker          hostexpr.Checker
	NoWarnings       bool
	WarningsAsErrors bool
	MaxDiagnostics   int
	MaxChain         int
	// Cache, when set, short-circuits analysis for an unchanged closure.
	Cache    *DiskCache
	Observer PhaseObserver
	Timings  bool
	// Jobs bounds CompileDir parallelism; zero means GOMAXPROCS.
	Jobs int
}

// Result carries everything a compilation produced. Graph is nil when
// resolution failed before the root was loaded.
type Result struct {
	Path    string
	FileSet *source.FileSet
	Bag     *diag.Bag
	Graph   *resolve.Graph
	Program *plan.Program
	Sema    sema.Result
	Timing  observ.Report
	Cached  bool
	// Err is the error Compile returned; set by CompileFiles.
	Err error
}

// Compile resolves, analyzes and compiles the template at path. The
// result is never nil; the error is set exactly when no program was
// produced and wraps a resolve sentinel or ErrFatal.
func Compile(ctx context.Context, path string, opts Options) (*Result, error) {
	return compileWith(ctx, source.NewFileSet(), path, opts)
}

func compileWith(ctx context.Context, fs *source.FileSet, path string, opts Options) (*Result, error) {
	ctx = trace.WithTemplate(ctx, path)
	span, ctx := trace.Start(ctx, trace.ScopeDriver, "compile")
	defer span.End("")

	res := &Result{Path: path, FileSet: fs, Bag: diag.NewBag(opts.MaxDiagnostics)}
	timer := observ.NewTimer()
	defer func() {
		res.Timing = timer.Report()
		if opts.Timings {
			appendTiming(res.Bag, res.Timing.Diagnostic(path))
		}
		res.Bag.Sort()
	}()

	rep := diag.NewDedupReporter(diag.BagReporter{Bag: res.Bag})
	var err error
	measure(opts.Observer, path, timer, "resolve", func() {
		r := resolve.New(opts.Loader, fs, rep, resolve.Options{
			Extension: opts.Extension,
			MaxChain:  opts.MaxChain,
		})
		res.Graph, err = r.Resolve(ctx, path)
	})
	if err != nil {
		return res, err
	}

	key := cacheKey(res.Graph, opts)
	if opts.Cache != nil {
		if prog, diags, ok := opts.Cache.Lookup(key); ok {
			res.Program = prog
			res.Cached = true
			res.Bag = diag.NewBag(opts.MaxDiagnostics)
			for _, d := range diags {
				res.Bag.Add(d)
			}
			trace.Point(ctx, trace.ScopeDriver, "cache hit", "")
			return res, nil
		}
	}

	measure(opts.Observer, path, timer, "sema", func() {
		res.Sema = sema.Analyze(ctx, res.Graph, sema.Options{
			Fields:     opts.Fields,
			NoWarnings: opts.NoWarnings,
			Checker:    opts.Checker,
			Reporter:   rep,
		})
	})
	if opts.WarningsAsErrors {
		promoteWarnings(res)
	}
	if res.Sema.Fatal() || res.Bag.HasErrors() {
		return res, fmt.Errorf("%s: %w", path, ErrFatal)
	}

	measure(opts.Observer, path, timer, "codegen", func() {
		var bag *diag.Bag
		res.Program, bag = codegen.Compile(ctx, res.Graph, codegen.Options{
			MaxChain:       opts.MaxChain,
			MaxDiagnostics: opts.MaxDiagnostics,
		})
		res.Bag.Merge(bag)
	})
	if res.Program == nil {
		return res, fmt.Errorf("%s: %w", path, ErrFatal)
	}

	if opts.Cache != nil {
		if err := opts.Cache.Store(key, res.Program, res.Bag.Items()); err != nil {
			trace.Point(ctx, trace.ScopeDriver, "cache store failed", err.Error())
		}
	}
	return res, nil
}

func measure(obs PhaseObserver, path string, timer *observ.Timer, name string, fn func()) {
	if obs != nil {
		obs(PhaseEvent{File: path, Name: name, Status: PhaseStart})
	}
	start := time.Now()
	timer.Measure(name, fn)
	if obs != nil {
		obs(PhaseEvent{File: path, Name: name, Status: PhaseEnd, Elapsed: time.Since(start)})
	}
}

// promoteWarnings turns every Warning into an Error.
func promoteWarnings(res *Result) {
	for _, d := range res.Bag.Items() {
		if d.Severity == diag.SevWarning {
			d.Severity = diag.SevError
			res.Sema.Warnings--
			res.Sema.Errors++
		}
	}
}

// appendTiming adds d even when the bag is full.
func appendTiming(bag *diag.Bag, d *diag.Diagnostic) {
	if bag.Add(d) {
		return
	}
	overflow := diag.NewBag(0)
	overflow.Add(d)
	bag.Merge(overflow)
}
