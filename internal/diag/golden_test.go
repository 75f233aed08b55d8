package diag

import (
	"testing"

	"quill/internal/source"
)

func TestFormatShortDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/workspace")

	page := fs.Add("/workspace/pages/home.tpl", []byte("a\nb\n"), 0)
	layout := fs.Add("/workspace/layouts/base.tpl", []byte("x\n"), 0)

	diags := []*Diagnostic{
		{
			Severity: SevError,
			Code:     SynUnclosedBlock,
			Message:  "first line\nsecond",
			Primary:  source.Span{File: page, Start: 0, End: 1},
			Notes: []Note{
				{Span: source.Span{File: page, Start: 2, End: 3}, Msg: "opened here"},
			},
		},
		{
			Severity: SevCaution,
			Code:     SemaSectionUnused,
			Message:  "section never rendered",
			Primary:  source.Span{File: layout, Start: 0, End: 1},
			Chain:    []source.Span{{File: page, Start: 2, End: 3}},
		},
	}

	expected := "caution SEM3006 layouts/base.tpl:1:1 section never rendered\n" +
		"error SYN2002 pages/home.tpl:1:1 first line second\n" +
		"note SEM3006 pages/home.tpl:2:1 required from here\n" +
		"note SYN2002 pages/home.tpl:2:1 opened here"

	if got := FormatShortDiagnostics(diags, fs, true); got != expected {
		t.Fatalf("unexpected short diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestFormatShortDiagnosticsSkipsUnknownFiles(t *testing.T) {
	fs := source.NewFileSet()
	d := NewError(ResFileNotFound, source.Span{File: 7}, "missing")
	if got := FormatShortDiagnostics([]*Diagnostic{d}, fs, false); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}
