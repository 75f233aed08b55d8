package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"quill/internal/buildpipeline"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

type buildOutcome struct {
	result buildpipeline.BuildResult
	err    error
}

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}

// printStageTimings writes the per-stage durations summed over all
// templates of a build.
func printStageTimings(w io.Writer, t buildpipeline.Timings) {
	for _, stage := range buildpipeline.Stages {
		if !t.Has(stage) {
			continue
		}
		fmt.Fprintf(w, "%-8s %8.2f ms\n", stage, msOf(t.Duration(stage)))
	}
	fmt.Fprintf(w, "%-8s %8.2f ms\n", "total", msOf(t.Sum(buildpipeline.Stages...)))
}

func msOf(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
