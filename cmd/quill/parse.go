package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quill/internal/diag"
	"quill/internal/diagfmt"
	"quill/internal/parser"
	"quill/internal/source"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] <file.tpl>",
	Short: "Parse one template and print its syntax tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().String("format", "pretty", "tree format (pretty|json)")
	addDiagFlags(parseCmd, "pretty|json|short")
}

func runParse(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown tree format %q (expected pretty|json)", format)
	}
	d, err := readDiagFlags(cmd)
	if err != nil {
		return err
	}

	fs := source.NewFileSet()
	id, err := fs.Load(args[0])
	if err != nil {
		return err
	}
	bag := diag.NewBag(0)
	res := parser.ParseFile(fs, id, parser.Options{Reporter: diag.BagReporter{Bag: bag}})
	bag.Sort()

	out := cmd.OutOrStdout()
	if format == "json" {
		err = diagfmt.FormatASTJSON(out, res.Builder, res.Root)
	} else {
		err = diagfmt.FormatASTPretty(out, res.Builder, res.Root, fs)
	}
	if err != nil {
		return err
	}
	if bag.Len() > 0 {
		if err := printDiagnostics(cmd.ErrOrStderr(), bag, fs, d); err != nil {
			return err
		}
	}
	if bag.HasErrors() {
		return exitError{code: 1}
	}
	return nil
}
