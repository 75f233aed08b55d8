package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"quill/internal/ctxfields"
	"quill/internal/diagfmt"
	"quill/internal/driver"
	"quill/internal/project"
	"quill/internal/resolve"
)

// settings is the merged view of quill.toml and the command line.
type settings struct {
	cfg      project.Config
	found    bool
	root     string // absolute template root
	maxDiags int
	timings  bool
	quiet    bool
}

// loadSettings discovers quill.toml starting at startDir, or loads the
// file named by --config, and applies the persistent flags.
func loadSettings(cmd *cobra.Command, startDir string) (*settings, error) {
	flags := cmd.Root().PersistentFlags()
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	s := &settings{}
	if configPath != "" {
		s.cfg, err = project.LoadConfig(configPath)
		s.found = err == nil
	} else {
		s.cfg, s.found, err = project.Discover(startDir)
	}
	if err != nil {
		return nil, err
	}
	s.root, err = filepath.Abs(s.cfg.TemplateRoot())
	if err != nil {
		return nil, err
	}

	if s.maxDiags, err = flags.GetInt("max-diagnostics"); err != nil {
		return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if s.maxDiags <= 0 {
		s.maxDiags = int(s.cfg.Diagnostics.Max)
	}
	if s.timings, err = flags.GetBool("timings"); err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if s.quiet, err = flags.GetBool("quiet"); err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	return s, nil
}

// templatePath maps a file system path onto the template root.
func (s *settings) templatePath(arg string) (string, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the template root %s", arg, s.root)
	}
	return filepath.ToSlash(rel), nil
}

// driverOptions builds compile options from the configuration and the
// analysis flags of cmd, when it defines them.
func (s *settings) driverOptions(cmd *cobra.Command) (driver.Options, error) {
	opts := driver.Options{
		Loader:           resolve.DirLoader(s.root),
		Extension:        s.cfg.Templates.Extension,
		NoWarnings:       s.cfg.Diagnostics.NoWarnings,
		WarningsAsErrors: s.cfg.Diagnostics.WarningsAsErrors,
		MaxDiagnostics:   s.maxDiags,
		Timings:          s.timings,
	}
	flags := cmd.Flags()
	if flags.Changed("no-warnings") {
		opts.NoWarnings, _ = flags.GetBool("no-warnings")
	}
	if flags.Changed("warnings-as-errors") {
		opts.WarningsAsErrors, _ = flags.GetBool("warnings-as-errors")
	}
	if opts.NoWarnings && opts.WarningsAsErrors {
		return opts, fmt.Errorf("no-warnings and warnings-as-errors cannot be used together")
	}
	if flags.Lookup("jobs") != nil {
		opts.Jobs, _ = flags.GetInt("jobs")
	}

	sources := ctxfields.FromConfig(s.cfg)
	if f := flags.Lookup("fields"); f != nil && f.Changed {
		list, _ := flags.GetStringSlice("fields")
		sources.Fields = append(sources.Fields, list...)
	}
	if f := flags.Lookup("context-data"); f != nil && f.Changed {
		sources.DataFile, _ = flags.GetString("context-data")
	}
	if f := flags.Lookup("context-type"); f != nil && f.Changed {
		sources.GoType, _ = flags.GetString("context-type")
		if wd, err := os.Getwd(); err == nil {
			sources.Dir = wd
		}
	}
	fields, err := ctxfields.Resolve(cmd.Context(), sources)
	if err != nil {
		return opts, fmt.Errorf("context fields: %w", err)
	}
	opts.Fields = fields

	if f := flags.Lookup("cache"); f != nil {
		if enabled, _ := flags.GetBool("cache"); enabled {
			cache, err := driver.OpenDiskCache("quill")
			if err != nil {
				return opts, fmt.Errorf("open cache: %w", err)
			}
			opts.Cache = cache
		}
	}
	return opts, nil
}

// addAnalysisFlags registers the flags read by driverOptions.
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-warnings", false, "drop warnings")
	cmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
	cmd.Flags().StringSlice("fields", nil, "declared context fields (enables the field check)")
	cmd.Flags().String("context-data", "", "JSON file whose top-level keys are the context fields")
	cmd.Flags().String("context-type", "", "Go type providing the context fields, as ./pkg.TypeName")
	cmd.Flags().Bool("cache", false, "reuse plans from the on-disk cache")
}

// diagOptions reads the output flags shared by commands that print
// diagnostics.
type diagOptions struct {
	format    string
	pathMode  diagfmt.PathMode
	withNotes bool
}

func addDiagFlags(cmd *cobra.Command, formats string) {
	cmd.Flags().String("diag-format", "pretty", "diagnostic format ("+formats+")")
	cmd.Flags().String("path-mode", "auto", "path display (auto|relative|absolute|basename)")
	cmd.Flags().Bool("with-notes", true, "include notes and composition chains")
}

func readDiagFlags(cmd *cobra.Command) (diagOptions, error) {
	var d diagOptions
	var err error
	if d.format, err = cmd.Flags().GetString("diag-format"); err != nil {
		return d, fmt.Errorf("failed to get diag-format flag: %w", err)
	}
	mode, err := cmd.Flags().GetString("path-mode")
	if err != nil {
		return d, fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	var ok bool
	if d.pathMode, ok = diagfmt.ParsePathMode(mode); !ok {
		return d, fmt.Errorf("invalid --path-mode %q", mode)
	}
	if d.withNotes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return d, fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	return d, nil
}

// startDirFor picks the directory quill.toml discovery starts from.
func startDirFor(arg string) string {
	if arg == "" {
		return "."
	}
	if st, err := os.Stat(arg); err == nil && st.IsDir() {
		return arg
	}
	return filepath.Dir(arg)
}
