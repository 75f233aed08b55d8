// Package buildpipeline compiles a directory of templates and writes one
// plan per root template, reporting progress per file.
package buildpipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"quill/internal/driver"
	"quill/internal/plan"
	"quill/internal/resolve"
)

// ErrBuildFailed reports that at least one template did not compile.
var ErrBuildFailed = errors.New("build failed")

// BuildRequest configures a batch build.
type BuildRequest struct {
	// Dir is the template root.
	Dir string
	// Components is skipped when listing root templates.
	Components string
	// Files restricts the build to these templates; empty means every
	// root template under Dir.
	Files []string
	// OutDir receives the plans; empty compiles without writing.
	OutDir   string
	Format   Format
	Driver   driver.Options
	Progress ProgressSink
}

// BuildResult captures the per-template results and stage timings.
type BuildResult struct {
	Files   []string
	Results []*driver.Result
	Outputs []string
	Timings Timings
	Failed  int
}

// Build compiles the requested templates in parallel and writes their
// plans. It returns ErrBuildFailed, wrapped, when any template failed;
// the result is complete either way.
func Build(ctx context.Context, req *BuildRequest) (BuildResult, error) {
	var result BuildResult
	if req == nil {
		return result, fmt.Errorf("missing build request")
	}
	if req.Dir == "" {
		return result, fmt.Errorf("missing template root")
	}
	reqCopy := *req
	req = &reqCopy
	if req.Driver.Loader == nil {
		req.Driver.Loader = resolve.DirLoader(req.Dir)
	}

	files := normalizeFiles(req.Files, req.Dir)
	if len(req.Files) == 0 {
		listed, err := driver.ListTemplates(os.DirFS(req.Dir), req.Driver.Extension, req.Components)
		if err != nil {
			return result, fmt.Errorf("list templates: %w", err)
		}
		files = listed
	}
	result.Files = files
	emitQueued(req.Progress, files)

	obs := &phaseObserver{sink: req.Progress, timings: &result.Timings}
	opts := req.Driver
	opts.Observer = obs.OnPhase
	results, err := driver.CompileFiles(ctx, files, opts)
	result.Results = results
	if err != nil {
		emitStage(req.Progress, nil, StageCompile, StatusError, err, 0)
		return result, err
	}

	writeStart := time.Now()
	for _, res := range results {
		if res.Err != nil {
			result.Failed++
			emitFile(req.Progress, res.Path, failedStage(res), StatusError, res.Err, 0)
			continue
		}
		if res.Cached {
			emitFile(req.Progress, res.Path, StageCompile, StatusCached, nil, 0)
		}
		if req.OutDir == "" {
			emitFile(req.Progress, res.Path, StageWrite, StatusDone, nil, 0)
			continue
		}
		start := time.Now()
		out := outputPath(req.OutDir, res.Path, req.Driver.Extension, req.Format)
		if err := WritePlan(out, res.Program, req.Format); err != nil {
			result.Failed++
			res.Err = err
			emitFile(req.Progress, res.Path, StageWrite, StatusError, err, time.Since(start))
			continue
		}
		result.Outputs = append(result.Outputs, out)
		emitFile(req.Progress, res.Path, StageWrite, StatusDone, nil, time.Since(start))
	}
	result.Timings.Add(StageWrite, time.Since(writeStart))

	if result.Failed > 0 {
		return result, fmt.Errorf("%w: %d of %d templates", ErrBuildFailed, result.Failed, len(files))
	}
	return result, nil
}

// WritePlan encodes prog in format f and writes it to path, creating
// parent directories.
func WritePlan(path string, prog *plan.Program, f Format) error {
	data, err := EncodePlan(prog, f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	// #nosec G306 -- plans are build artefacts
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write plan %q: %w", path, err)
	}
	return nil
}

// EncodePlan renders prog in format f.
func EncodePlan(prog *plan.Program, f Format) ([]byte, error) {
	switch f {
	case FormatListing, "":
		return []byte(prog.Listing()), nil
	case FormatJSON:
		data, err := json.MarshalIndent(prog, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("plan: json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatMsgpack:
		var buf bytes.Buffer
		if err := plan.Encode(&buf, prog); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown plan format %q (supported: listing, json, msgpack)", f)
	}
}

// failedStage names the stage a failed result stopped in.
func failedStage(res *driver.Result) Stage {
	switch {
	case res.Graph == nil || errors.Is(res.Err, resolve.ErrSyntax):
		return StageResolve
	case res.Sema.Fatal():
		return StageAnalyze
	default:
		return StageCompile
	}
}

// phaseObserver turns driver phase events into progress events.
type phaseObserver struct {
	sink    ProgressSink
	mu      sync.Mutex
	timings *Timings
}

func (p *phaseObserver) OnPhase(ev driver.PhaseEvent) {
	stage := stageFor(ev.Name)
	if ev.Status == driver.PhaseStart {
		emitFile(p.sink, ev.File, stage, StatusWorking, nil, 0)
		return
	}
	p.mu.Lock()
	p.timings.Add(stage, ev.Elapsed)
	p.mu.Unlock()
	emitFile(p.sink, ev.File, stage, StatusDone, nil, ev.Elapsed)
}

func stageFor(phase string) Stage {
	switch phase {
	case "resolve":
		return StageResolve
	case "sema":
		return StageAnalyze
	default:
		return StageCompile
	}
}

func emitQueued(sink ProgressSink, files []string) {
	if sink == nil {
		return
	}
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: StageResolve, Status: StatusQueued})
	}
}

func emitFile(sink ProgressSink, file string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}

func emitStage(sink ProgressSink, files []string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	}
}
