package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"quill/internal/ctxfields"
	"quill/internal/vm"
)

var renderCmd = &cobra.Command{
	Use:   "render [flags] <file.tpl>",
	Short: "Compile a template and render it with JSON data",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	addAnalysisFlags(renderCmd)
	addDiagFlags(renderCmd, "pretty|json|short")
	renderCmd.Flags().StringP("data", "d", "", "JSON object file with the render context")
	renderCmd.Flags().Bool("no-escape", false, "emit expressions without HTML escaping")
	renderCmd.Flags().Int("max-iterations", vm.DefaultMaxIterations, "iteration cap for @while loops")
}

func runRender(cmd *cobra.Command, args []string) error {
	dataPath, err := cmd.Flags().GetString("data")
	if err != nil {
		return fmt.Errorf("failed to get data flag: %w", err)
	}
	maxIter, err := cmd.Flags().GetInt("max-iterations")
	if err != nil {
		return fmt.Errorf("failed to get max-iterations flag: %w", err)
	}

	s, res, err := compileOne(cmd, args[0])
	if err != nil {
		return err
	}
	if res.Program == nil {
		return exitError{code: 1}
	}

	noEscape := !s.cfg.Render.Escape
	if cmd.Flags().Changed("no-escape") {
		noEscape, _ = cmd.Flags().GetBool("no-escape")
	}
	data := map[string]any{}
	if dataPath != "" {
		if data, err = ctxfields.LoadData(dataPath); err != nil {
			return err
		}
	}

	machine := vm.New(res.Program, vm.Options{NoEscape: noEscape, MaxIterations: maxIter})
	if err := machine.Render(cmd.Context(), data, cmd.OutOrStdout()); err != nil {
		var verr *vm.VMError
		if errors.As(err, &verr) {
			fmt.Fprintln(cmd.ErrOrStderr(), verr.FormatWithFiles(res.FileSet))
			return exitError{code: 2}
		}
		return err
	}
	return nil
}
