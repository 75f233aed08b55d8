package trace

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// openSpans tracks spans that have begun but not ended, so a heartbeat
// can say where the pipeline is when it appears stuck.
type openSpans struct {
	mu    sync.Mutex
	spans map[uint64]*Span
}

var open = &openSpans{spans: make(map[uint64]*Span)}

func (o *openSpans) begin(s *Span) {
	o.mu.Lock()
	o.spans[s.id] = s
	o.mu.Unlock()
}

func (o *openSpans) end(s *Span) {
	o.mu.Lock()
	delete(o.spans, s.id)
	o.mu.Unlock()
}

// describe lists the innermost open spans as "name[template] 1.2s",
// longest-running first.
func (o *openSpans) describe(now time.Time, limit int) (int, string) {
	o.mu.Lock()
	spans := make([]*Span, 0, len(o.spans))
	for _, s := range o.spans {
		spans = append(spans, s)
	}
	o.mu.Unlock()

	sort.Slice(spans, func(i, j int) bool { return spans[i].started.Before(spans[j].started) })
	if len(spans) > limit {
		spans = spans[len(spans)-limit:]
	}
	parts := make([]string, 0, len(spans))
	for _, s := range spans {
		label := s.name
		if s.template != "" {
			label += "[" + s.template + "]"
		}
		parts = append(parts, fmt.Sprintf("%s %s", label, now.Sub(s.started).Round(time.Millisecond)))
	}
	return len(o.spans), strings.Join(parts, ", ")
}

// Heartbeat periodically reports the open spans. A trace whose
// heartbeats keep naming the same span points at a hang.
type Heartbeat struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartHeartbeat emits a heartbeat to t every interval until Stop. It
// returns nil when t is disabled or interval is not positive.
func StartHeartbeat(t Tracer, interval time.Duration) *Heartbeat {
	if t == nil || !t.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(h.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for n := 1; ; n++ {
			select {
			case now := <-ticker.C:
				count, detail := open.describe(now, 3)
				t.Emit(&Event{
					Time:   now,
					Kind:   KindHeartbeat,
					Scope:  ScopeDriver,
					Name:   "heartbeat",
					Detail: detail,
					Attrs:  []Attr{{Key: "beat", Value: fmt.Sprint(n)}, {Key: "open", Value: fmt.Sprint(count)}},
				})
			case <-h.stop:
				return
			}
		}
	}()
	return h
}

// Stop ends the heartbeat and waits for its goroutine. It is safe to
// call more than once and on nil.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stop) })
	<-h.done
}
