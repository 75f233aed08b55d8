package trace

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

var spanIDs atomic.Uint64

// scopeState is what a context carries: the tracer, the innermost open
// span and the template being processed.
type scopeState struct {
	tracer   Tracer
	spanID   uint64
	template string
}

type ctxKey struct{}

func stateOf(ctx context.Context) scopeState {
	if ctx != nil {
		if st, ok := ctx.Value(ctxKey{}).(scopeState); ok {
			return st
		}
	}
	return scopeState{tracer: Nop}
}

// WithTracer attaches t to ctx. A nil t disables tracing.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	st := stateOf(ctx)
	st.tracer = t
	return context.WithValue(ctx, ctxKey{}, st)
}

// FromContext returns the tracer carried by ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return stateOf(ctx).tracer
}

// WithTemplate marks every event started under ctx as concerning the
// template at path.
func WithTemplate(ctx context.Context, path string) context.Context {
	st := stateOf(ctx)
	if !st.tracer.Enabled() {
		return ctx
	}
	st.template = path
	return context.WithValue(ctx, ctxKey{}, st)
}

// Span is an open interval of work. A Span from a disabled or filtered
// scope is inert; all methods are safe on it.
type Span struct {
	tracer   Tracer
	id       uint64
	parent   uint64
	scope    Scope
	name     string
	template string
	started  time.Time

	mu    sync.Mutex
	attrs []Attr
}

var inert = &Span{tracer: Nop}

// Start opens a span nested under the span carried by ctx and returns
// a context carrying the new span.
func Start(ctx context.Context, scope Scope, name string) (*Span, context.Context) {
	st := stateOf(ctx)
	if !st.tracer.Enabled() || !st.tracer.Level().ShouldEmit(scope) {
		return inert, ctx
	}
	sp := &Span{
		tracer:   st.tracer,
		id:       spanIDs.Add(1),
		parent:   st.spanID,
		scope:    scope,
		name:     name,
		template: st.template,
		started:  time.Now(),
	}
	open.begin(sp)
	sp.tracer.Emit(&Event{
		Time:     sp.started,
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   sp.id,
		ParentID: sp.parent,
		Name:     name,
		Template: sp.template,
	})
	st.spanID = sp.id
	return sp, context.WithValue(ctx, ctxKey{}, st)
}

// Set annotates the end event of s with key=value. Later values for the
// same key win.
func (s *Span) Set(key, value string) *Span {
	if s == nil || s.id == 0 {
		return s
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.attrs {
		if s.attrs[i].Key == key {
			s.attrs[i].Value = value
			return s
		}
	}
	s.attrs = append(s.attrs, Attr{Key: key, Value: value})
	return s
}

// End closes s and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.id == 0 {
		return 0
	}
	elapsed := time.Since(s.started)
	open.end(s)
	s.mu.Lock()
	attrs := s.attrs
	s.mu.Unlock()
	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Name:     s.name,
		Template: s.template,
		Detail:   detail,
		Elapsed:  elapsed,
		Attrs:    attrs,
	})
	return elapsed
}

// ID returns the span id, 0 for an inert span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event under the span carried by ctx.
func Point(ctx context.Context, scope Scope, name, detail string) {
	st := stateOf(ctx)
	if !st.tracer.Enabled() || !st.tracer.Level().ShouldEmit(scope) {
		return
	}
	st.tracer.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: st.spanID,
		Name:     name,
		Template: st.template,
		Detail:   detail,
	})
}
