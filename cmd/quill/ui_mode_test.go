package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"quill/internal/buildpipeline"
)

func TestReadUIMode(t *testing.T) {
	cases := []struct {
		in   string
		want uiMode
		err  bool
	}{
		{"", uiModeAuto, false},
		{"AUTO", uiModeAuto, false},
		{" on ", uiModeOn, false},
		{"off", uiModeOff, false},
		{"sometimes", "", true},
	}
	for _, tc := range cases {
		got, err := readUIMode(tc.in)
		if (err != nil) != tc.err {
			t.Fatalf("readUIMode(%q) err = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("readUIMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if !shouldUseTUI(uiModeOn) || shouldUseTUI(uiModeOff) {
		t.Fatalf("explicit ui modes are not honoured")
	}
}

func TestPrintStageTimings(t *testing.T) {
	var tm buildpipeline.Timings
	tm.Add(buildpipeline.StageResolve, 2*time.Millisecond)
	tm.Add(buildpipeline.StageCompile, 3*time.Millisecond)
	var buf bytes.Buffer
	printStageTimings(&buf, tm)
	out := buf.String()
	if strings.Contains(out, string(buildpipeline.StageAnalyze)) {
		t.Fatalf("unrecorded stage printed:\n%s", out)
	}
	if !strings.Contains(out, "total        5.00 ms") {
		t.Fatalf("missing total line:\n%s", out)
	}
}
