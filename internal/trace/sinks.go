package trace

import (
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

var seq atomic.Uint64

type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop discards everything.
var Nop Tracer = nopTracer{}

func admit(level Level, ev *Event) bool {
	return ev.Kind == KindHeartbeat || level.ShouldEmit(ev.Scope)
}

// WriterTracer formats each event onto w as it arrives.
type WriterTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
}

func NewWriter(w io.Writer, level Level, format Format) *WriterTracer {
	return &WriterTracer{w: w, level: level, format: format}
}

func (t *WriterTracer) Emit(ev *Event) {
	if !admit(t.level, ev) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ev.Seq = seq.Add(1)
	// best effort: a broken trace sink never fails a build
	_, _ = t.w.Write(FormatEvent(ev, t.format))
}

func (t *WriterTracer) Flush() error {
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close flushes and closes w unless it is a standard stream.
func (t *WriterTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if t.w == os.Stderr || t.w == os.Stdout {
		return nil
	}
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *WriterTracer) Level() Level  { return t.level }
func (t *WriterTracer) Enabled() bool { return t.level > LevelOff }

// Recorder keeps the most recent events in a fixed-size ring. When it
// has a writer, Close writes the retained tail to it.
type Recorder struct {
	mu     sync.Mutex
	buf    []Event
	next   int
	filled bool
	level  Level
	w      io.Writer
	format Format
}

func NewRecorder(capacity int, level Level, w io.Writer, format Format) *Recorder {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Recorder{buf: make([]Event, capacity), level: level, w: w, format: format}
}

func (r *Recorder) Emit(ev *Event) {
	if !admit(r.level, ev) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *ev
	stored.Seq = seq.Add(1)
	r.buf[r.next] = stored
	r.next++
	if r.next == len(r.buf) {
		r.next, r.filled = 0, true
	}
}

// Events returns the retained events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.filled {
		return append([]Event(nil), r.buf[:r.next]...)
	}
	out := make([]Event, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

// Dump writes the retained events to w.
func (r *Recorder) Dump(w io.Writer, format Format) error {
	for _, ev := range r.Events() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) Flush() error { return nil }

func (r *Recorder) Close() error {
	if r.w == nil {
		return nil
	}
	err := r.Dump(r.w, r.format)
	if c, ok := r.w.(io.Closer); ok && r.w != os.Stderr && r.w != os.Stdout {
		err = errors.Join(err, c.Close())
	}
	return err
}

func (r *Recorder) Level() Level  { return r.level }
func (r *Recorder) Enabled() bool { return r.level > LevelOff }

type tee struct {
	level   Level
	tracers []Tracer
}

// Tee sends every event to each of tracers.
func Tee(level Level, tracers ...Tracer) Tracer {
	return &tee{level: level, tracers: tracers}
}

func (t *tee) Emit(ev *Event) {
	for _, tr := range t.tracers {
		// sinks stamp Seq; give each its own copy
		cp := *ev
		tr.Emit(&cp)
	}
}

func (t *tee) Flush() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Flush())
	}
	return errors.Join(errs...)
}

func (t *tee) Close() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Close())
	}
	return errors.Join(errs...)
}

func (t *tee) Level() Level  { return t.level }
func (t *tee) Enabled() bool { return t.level > LevelOff }
