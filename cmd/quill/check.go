package main

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"quill/internal/driver"
	"quill/internal/resolve"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <file.tpl|directory>",
	Short: "Report diagnostics for a template or every root template of a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	addAnalysisFlags(checkCmd)
	addDiagFlags(checkCmd, "pretty|json|short")
	checkCmd.Flags().Int("jobs", 0, "max parallel workers for directories (0=auto)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd, startDirFor(args[0]))
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
	opts.Timings = s.timings && d.format == "json"

	var results []*driver.Result
	if st, statErr := os.Stat(args[0]); statErr == nil && st.IsDir() {
		results, err = compileDirectory(cmd.Context(), s, args[0], opts)
		if err != nil {
			return err
		}
	} else {
		rel, err := s.templatePath(args[0])
		if err != nil {
			return err
		}
		res, cerr := driver.Compile(cmd.Context(), rel, opts)
		res.Err = cerr
		results = []*driver.Result{res}
	}

	out := cmd.OutOrStdout()
	failed := false
	for _, res := range results {
		if errors.Is(res.Err, resolve.ErrNotFound) && res.Bag.Len() == 0 {
			return res.Err
		}
		if err := printDiagnostics(out, res.Bag, res.FileSet, d); err != nil {
			return err
		}
		if !s.quiet && d.format == "pretty" {
			printSummary(cmd.ErrOrStderr(), res)
		}
		printTimings(cmd.ErrOrStderr(), s, d, res)
		if exitFor(res, res.Err) != nil {
			failed = true
		}
	}
	if failed {
		return exitError{code: 1}
	}
	return nil
}

// compileDirectory compiles the root templates under dir. The whole
// template root goes through driver.CompileDir; a subdirectory is listed
// and its files compiled against the root.
func compileDirectory(ctx context.Context, s *settings, dir string, opts driver.Options) ([]*driver.Result, error) {
	rel, err := s.templatePath(dir)
	if err != nil {
		return nil, err
	}
	if rel == "." {
		return driver.CompileDir(ctx, s.root, driver.DirOptions{
			Options:    opts,
			Components: s.cfg.Templates.Components,
		})
	}
	files, err := driver.ListTemplates(os.DirFS(filepath.Join(s.root, filepath.FromSlash(rel))), opts.Extension, "")
	if err != nil {
		return nil, err
	}
	roots := make([]string, 0, len(files))
	for _, f := range files {
		full := path.Join(rel, f)
		if !s.cfg.IsComponentPath(full) {
			roots = append(roots, full)
		}
	}
	return driver.CompileFiles(ctx, roots, opts)
}
