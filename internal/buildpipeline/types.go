package buildpipeline

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageAnalyze Stage = "analyze"
	StageCompile Stage = "compile"
	// StageWrite stores the compiled plan under the output directory.
	StageWrite Stage = "write"
)

// Stages lists the stages in pipeline order.
var Stages = []Stage{StageResolve, StageAnalyze, StageCompile, StageWrite}

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	// StatusCached marks a template whose plan came from the disk cache.
	StatusCached Status = "cached"
)

// Event reports progress for a file (or for the overall pipeline when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Build calls it from several
// goroutines at once.
type ProgressSink interface {
	OnEvent(Event)
}

// Format selects how plans are written.
type Format string

const (
	FormatListing Format = "listing"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// Ext returns the file extension written for f.
func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return ".plan.json"
	case FormatMsgpack:
		return ".plan"
	default:
		return ".plan.txt"
	}
}

// Timings holds stage durations summed over every template.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Add accumulates dur onto stage.
func (t *Timings) Add(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] += dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
