package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"quill/internal/buildpipeline"
	"quill/internal/driver"
	"quill/internal/resolve"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] <file.tpl>",
	Short: "Compile a root template and print its render plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

func init() {
	addAnalysisFlags(compileCmd)
	addDiagFlags(compileCmd, "pretty|json|short")
	compileCmd.Flags().String("format", "listing", "plan format (listing|json|msgpack)")
	compileCmd.Flags().StringP("output", "o", "", "write the plan to file instead of stdout")
}

// compileOne runs the pipeline for the template at arg and prints its
// diagnostics to stderr. The result is nil only when arg is unusable.
func compileOne(cmd *cobra.Command, arg string) (*settings, *driver.Result, error) {
	s, err := loadSettings(cmd, startDirFor(arg))
	if err != nil {
		return nil, nil, err
	}
	d, err := readDiagFlags(cmd)
	if err != nil {
		return nil, nil, err
	}
	opts, err := s.driverOptions(cmd)
	if err != nil {
		return nil, nil, err
	}
	opts.Timings = s.timings && d.format == "json"
	rel, err := s.templatePath(arg)
	if err != nil {
		return nil, nil, err
	}

	res, cerr := driver.Compile(cmd.Context(), rel, opts)
	res.Err = cerr
	if errors.Is(cerr, resolve.ErrNotFound) && res.Bag.Len() == 0 {
		return nil, nil, cerr
	}
	if res.Bag.Len() > 0 {
		if err := printDiagnostics(cmd.ErrOrStderr(), res.Bag, res.FileSet, d); err != nil {
			return nil, nil, err
		}
	}
	printTimings(cmd.ErrOrStderr(), s, d, res)
	return s, res, nil
}

func runCompile(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}

	_, res, err := compileOne(cmd, args[0])
	if err != nil {
		return err
	}
	if res.Program == nil {
		return exitError{code: 1}
	}
	f := buildpipeline.Format(format)
	if output != "" {
		return buildpipeline.WritePlan(output, res.Program, f)
	}
	data, err := buildpipeline.EncodePlan(res.Program, f)
	if err != nil {
		return err
	}
	if f == buildpipeline.FormatMsgpack && isTerminal(os.Stdout) {
		return fmt.Errorf("refusing to write msgpack to a terminal; use -o")
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
