package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"quill/internal/diag"
	"quill/internal/diagfmt"
	"quill/internal/driver"
	"quill/internal/source"
)

// printDiagnostics writes the findings of one compilation.
func printDiagnostics(w io.Writer, bag *diag.Bag, fs *source.FileSet, d diagOptions) error {
	switch d.format {
	case "pretty":
		diagfmt.Pretty(w, bag, fs, diagfmt.PrettyOpts{
			Color:     !color.NoColor,
			Context:   1,
			PathMode:  d.pathMode,
			ShowNotes: d.withNotes,
			ShowChain: d.withNotes,
		})
		return nil
	case "json":
		return diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         d.pathMode,
			IncludeNotes:     d.withNotes,
			IncludeChain:     d.withNotes,
		})
	case "short":
		return diagfmt.Short(w, bag, fs, d.withNotes)
	default:
		return fmt.Errorf("unknown diagnostic format %q (expected pretty|json|short)", d.format)
	}
}

// printSummary writes the one-line outcome of a compilation to w.
func printSummary(w io.Writer, res *driver.Result) {
	errs, warns := res.Bag.Count(diag.SevError), res.Bag.Count(diag.SevWarning)
	cautions := res.Bag.Count(diag.SevCaution)
	status := color.GreenString("ok")
	if errs > 0 {
		status = color.RedString("failed")
	}
	cached := ""
	if res.Cached {
		cached = " (cached)"
	}
	fmt.Fprintf(w, "%s: %s%s, %d error(s), %d warning(s), %d caution(s)\n", res.Path, status, cached, errs, warns, cautions)
}

// printTimings writes the phase table when --timings is set and the
// diagnostics format does not already carry it.
func printTimings(w io.Writer, s *settings, d diagOptions, res *driver.Result) {
	if !s.timings || d.format == "json" || len(res.Timing.Phases) == 0 {
		return
	}
	fmt.Fprint(w, res.Timing.String())
}

// exitFor maps a compilation outcome onto a process exit code: 1 for
// Error findings or a failed compilation, 0 otherwise.
func exitFor(res *driver.Result, err error) error {
	if err != nil || res.Bag.HasErrors() {
		return exitError{code: 1}
	}
	return nil
}
