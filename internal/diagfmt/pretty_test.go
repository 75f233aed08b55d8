package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"quill/internal/diag"
	"quill/internal/source"
)

func TestPrettyPathModes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("<h1>@(title</h1>\n")
	fileID := fs.AddVirtual("/home/user/site/pages/index.tpl", content)
	fs.SetBaseDir("/home/user/site")

	bag := diag.NewBag(10)
	bag.Add(diag.New(
		diag.SevError,
		diag.LexUnclosedDelimiter,
		source.Span{File: fileID, Start: 5, End: 6},
		"'(' is never closed",
	))

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"absolute", PathModeAbsolute, "/home/user/site/pages/index.tpl:1:6"},
		{"relative", PathModeRelative, "pages/index.tpl:1:6"},
		{"basename", PathModeBasename, "index.tpl:1:6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode})
			out := buf.String()
			if !strings.Contains(out, tt.contains) {
				t.Errorf("expected %q in output:\n%s", tt.contains, out)
			}
			if !strings.Contains(out, "ERROR") || !strings.Contains(out, "LEX1005") {
				t.Errorf("missing severity or code:\n%s", out)
			}
		})
	}
}

func TestPrettyUnderline(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("a.tpl", []byte("x\n  @if cond {\n"))

	bag := diag.NewBag(0)
	bag.Add(diag.New(diag.SevError, diag.SynUnclosedBlock, source.Span{File: fileID, Start: 4, End: 7}, "block never closed"))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	lines := strings.Split(buf.String(), "\n")
	if len(lines) < 3 {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
	if lines[1] != "2 |   @if cond {" {
		t.Fatalf("source line: %q", lines[1])
	}
	if lines[2] != "  |   ^~~" {
		t.Fatalf("marker line: %q", lines[2])
	}
}

func TestPrettyChainOutermostFirst(t *testing.T) {
	fs := source.NewFileSet()
	frame := fs.AddVirtual("frame.tpl", []byte("@render(\"title\")\n"))
	box := fs.AddVirtual("box.tpl", []byte("\n\n @extends(\"frame.tpl\")\n"))
	page := fs.AddVirtual("page.tpl", []byte("@use \"box.tpl\"\n<Box />\n"))

	bag := diag.NewBag(0)
	bag.Add(diag.New(diag.SevError, diag.SemaSectionUndefined, source.Span{File: frame, Start: 0, End: 16}, "section 'title' is not defined").
		WithChain([]source.Span{{File: page, Start: 0, End: 15}, {File: box, Start: 3, End: 23}}))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, ShowChain: true})
	want := "required from page.tpl:1:1 > box.tpl:3:2\n"
	if !strings.Contains(buf.String(), want) {
		t.Fatalf("expected %q in:\n%s", want, buf.String())
	}
}

func TestPrettyNotesAndChain(t *testing.T) {
	fs := source.NewFileSet()
	layout := fs.AddVirtual("base.tpl", []byte("@render(\"side\")\n"))
	page := fs.AddVirtual("home.tpl", []byte("@extends(\"base.tpl\")\n"))

	bag := diag.NewBag(0)
	d := diag.New(diag.SevCaution, diag.SemaSectionUndefined, source.Span{File: layout, Start: 0, End: 15}, "section \"side\" is not defined").
		WithNote(source.Span{File: layout, Start: 8, End: 14}, "name used here").
		WithChain([]source.Span{{File: page, Start: 0, End: 20}})
	bag.Add(d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, ShowNotes: true, ShowChain: true})
	out := buf.String()
	for _, want := range []string{"CAUTION", "note: base.tpl:1:9: name used here", "required from home.tpl:1:1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}
