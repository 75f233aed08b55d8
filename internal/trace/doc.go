// Package trace records what the template pipeline is doing, to help
// diagnose slow builds and hangs.
//
// A Tracer travels in the context. Passes open spans with Start, which
// nest under the span already in the context and inherit the template
// path set by WithTemplate:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx = trace.WithTemplate(ctx, "pages/home.tpl")
//	span, ctx := trace.Start(ctx, trace.ScopePass, "sema")
//	defer span.End("")
//
// The level picks the finest scope that is emitted: LevelPhase keeps
// driver and pass spans, LevelDetail adds per-template spans and
// LevelDebug everything.
//
// From the command line:
//
//	quill check --trace=- --trace-level=detail pages/home.tpl
//	quill build --trace=build.ndjson --trace-mode=ring --trace-ring-size=256
package trace
