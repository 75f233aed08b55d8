package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"quill/internal/buildpipeline"
	"quill/internal/diag"
	"quill/internal/ui"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [templates...]",
	Short: "Compile every root template of a project and write the plans",
	Long: `Build compiles the root templates under the template root (or only the
listed ones) in parallel and writes one plan per template into the output
directory, mirroring the template layout.`,
	RunE: runBuild,
}

func init() {
	addAnalysisFlags(buildCmd)
	addDiagFlags(buildCmd, "pretty|json|short")
	buildCmd.Flags().StringP("out", "o", "build", "output directory for plans")
	buildCmd.Flags().String("format", "listing", "plan format (listing|json|msgpack)")
	buildCmd.Flags().String("ui", "auto", "progress UI mode (auto|on|off)")
	buildCmd.Flags().Bool("dry-run", false, "compile without writing plans")
	buildCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	startDir := "."
	if len(args) > 0 {
		startDir = startDirFor(args[0])
	}
	s, err := loadSettings(cmd, startDir)
	if err != nil {
		return err
	}
	d, err := readDiagFlags(cmd)
	if err != nil {
		return err
	}
	opts, err := s.driverOptions(cmd)
	if err != nil {
		return err
	}

	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	switch buildpipeline.Format(format) {
	case buildpipeline.FormatListing, buildpipeline.FormatJSON, buildpipeline.FormatMsgpack:
	default:
		return fmt.Errorf("unknown plan format %q (expected listing|json|msgpack)", format)
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return fmt.Errorf("failed to get dry-run flag: %w", err)
	}
	if dryRun {
		outDir = ""
	} else if !filepath.IsAbs(outDir) && s.found {
		outDir = filepath.Join(s.cfg.Dir, outDir)
	}

	req := &buildpipeline.BuildRequest{
		Dir:        s.root,
		Components: s.cfg.Templates.Components,
		Files:      args,
		OutDir:     outDir,
		Format:     buildpipeline.Format(format),
		Driver:     opts,
	}

	var res buildpipeline.BuildResult
	var buildErr error
	if shouldUseTUI(mode) && !s.quiet {
		res, buildErr = runBuildWithUI(cmd.Context(), "quill build", req)
	} else {
		res, buildErr = buildpipeline.Build(cmd.Context(), req)
	}
	if buildErr != nil && !errors.Is(buildErr, buildpipeline.ErrBuildFailed) {
		return buildErr
	}

	errOut := cmd.ErrOrStderr()
	for _, r := range res.Results {
		if r.Bag != nil && r.Bag.Len() > 0 {
			if err := printDiagnostics(errOut, r.Bag, r.FileSet, d); err != nil {
				return err
			}
		}
		if r.Err != nil && (r.Bag == nil || r.Bag.Count(diag.SevError) == 0) {
			fmt.Fprintf(errOut, "%s: %v\n", r.Path, r.Err)
		}
		if !s.quiet {
			printSummary(errOut, r)
		}
	}
	if s.timings {
		printStageTimings(errOut, res.Timings)
	}
	if !s.quiet && len(res.Outputs) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d plan(s) to %s\n", len(res.Outputs), outDir)
	}
	if buildErr != nil {
		return exitError{code: 1}
	}
	return nil
}

// runBuildWithUI runs the build in the background and feeds its events
// into the progress model until the build finishes.
func runBuildWithUI(ctx context.Context, title string, req *buildpipeline.BuildRequest) (buildpipeline.BuildResult, error) {
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	go func() {
		reqCopy := *req
		reqCopy.Progress = buildpipeline.ChannelSink{Ch: events}
		res, err := buildpipeline.Build(ctx, &reqCopy)
		outcomeCh <- buildOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, nil, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout), tea.WithContext(ctx))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
