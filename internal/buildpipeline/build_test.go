package buildpipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"quill/internal/driver"
	"quill/internal/plan"
)

type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordSink) OnEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordSink) last(file string) Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out Event
	for _, ev := range s.events {
		if ev.File == file {
			out = ev
		}
	}
	return out
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestBuildWritesPlans(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"components/card.tpl": "@param title\n<b>@title</b>",
		"pages/home.tpl":      "@use \"components/card.tpl\" as Card\n<Card title=\"x\" />",
		"about.tpl":           "about",
	})
	out := t.TempDir()
	sink := &recordSink{}
	res, err := Build(context.Background(), &BuildRequest{
		Dir:        dir,
		Components: "components",
		OutDir:     out,
		Format:     FormatMsgpack,
		Driver:     driver.Options{Extension: ".tpl", Jobs: 2},
		Progress:   sink,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !slices.Equal(res.Files, []string{"about.tpl", "pages/home.tpl"}) {
		t.Fatalf("files %v", res.Files)
	}
	if len(res.Outputs) != 2 {
		t.Fatalf("outputs %v", res.Outputs)
	}
	f, err := os.Open(filepath.Join(out, "pages", "home.plan"))
	if err != nil {
		t.Fatalf("open plan: %v", err)
	}
	defer f.Close()
	prog, err := plan.Decode(f)
	if err != nil || prog.RootUnit().Path != "pages/home.tpl" {
		t.Fatalf("decode: %v", err)
	}
	if ev := sink.last("pages/home.tpl"); ev.Stage != StageWrite || ev.Status != StatusDone {
		t.Fatalf("last event %+v", ev)
	}
	if !res.Timings.Has(StageAnalyze) || !res.Timings.Has(StageWrite) {
		t.Fatalf("timings missing stages")
	}
}

func TestBuildReportsFailures(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"ok.tpl":    "fine",
		"bad.tpl":   "<Missing />",
		"cycle.tpl": "@extends(\"cycle.tpl\")\nx",
	})
	sink := &recordSink{}
	res, err := Build(context.Background(), &BuildRequest{
		Dir:      dir,
		Driver:   driver.Options{Extension: ".tpl"},
		Progress: sink,
	})
	if !errors.Is(err, ErrBuildFailed) || res.Failed != 2 {
		t.Fatalf("err=%v failed=%d", err, res.Failed)
	}
	if ev := sink.last("bad.tpl"); ev.Status != StatusError || ev.Stage != StageAnalyze {
		t.Fatalf("bad.tpl event %+v", ev)
	}
	if ev := sink.last("cycle.tpl"); ev.Status != StatusError || ev.Stage != StageResolve {
		t.Fatalf("cycle.tpl event %+v", ev)
	}
	if ev := sink.last("ok.tpl"); ev.Status != StatusDone {
		t.Fatalf("ok.tpl event %+v", ev)
	}
}

func TestBuildExplicitFiles(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.tpl": "a", "b.tpl": "b"})
	res, err := Build(context.Background(), &BuildRequest{
		Dir:    dir,
		Files:  []string{filepath.Join(dir, "b.tpl"), filepath.Join(dir, "b.tpl"), "/elsewhere/c.tpl"},
		Driver: driver.Options{Extension: ".tpl"},
	})
	if err != nil || !slices.Equal(res.Files, []string{"b.tpl"}) {
		t.Fatalf("err=%v files=%v", err, res.Files)
	}
}

func TestEncodePlanFormats(t *testing.T) {
	prog := plan.NewProgram()
	u := &plan.Unit{ID: plan.UnitIDFor("x.tpl"), Path: "x.tpl", Instrs: []plan.Instr{{Op: plan.OpText, Text: "hi"}}}
	prog.Units[u.ID] = u
	prog.Root = u.ID
	prog.Order = []plan.UnitID{u.ID}

	listing, err := EncodePlan(prog, FormatListing)
	if err != nil || !strings.Contains(string(listing), "x.tpl (root)") {
		t.Fatalf("listing: %v\n%s", err, listing)
	}
	js, err := EncodePlan(prog, FormatJSON)
	if err != nil || !strings.Contains(string(js), `"root"`) {
		t.Fatalf("json: %v\n%s", err, js)
	}
	if _, err := EncodePlan(prog, Format("yaml")); err == nil {
		t.Fatalf("unknown format accepted")
	}
}

func TestOutputPath(t *testing.T) {
	got := outputPath("out", "pages/home.tpl", ".tpl", FormatJSON)
	if want := filepath.Join("out", "pages", "home.plan.json"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
