package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"quill/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create quill.toml and a small starter project",
	Long: `Init writes a quill.toml with the default settings into dir (the current
directory when omitted) together with a layout, a component and a page that
uses both. Existing templates are left untouched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("bare", false, "write quill.toml only")
}

// starterFiles is the sample project written by init, keyed by path
// relative to the template root.
var starterFiles = []struct {
	path string
	body string
}{
	{"layout.tpl", `<!doctype html>
<html>
<head><title>@title</title></head>
<body>
@render_body
</body>
</html>
`},
	{"components/card.tpl", `@param heading
<section class="card">
  <h2>@heading</h2>
  @children
</section>
`},
	{"index.tpl", `@extends("layout.tpl")
@use "components/card.tpl" as Card
<Card heading="Hello">
  @for item in items {
    <p>@item</p>
  }
</Card>
`},
}

func runInit(cmd *cobra.Command, args []string) error {
	bare, err := cmd.Flags().GetBool("bare")
	if err != nil {
		return fmt.Errorf("failed to get bare flag: %w", err)
	}
	target := "."
	if len(args) == 1 {
		target = args[0]
	}
	target, err = filepath.Abs(target)
	if err != nil {
		return err
	}
	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := os.MkdirAll(target, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	cfg := project.Default()
	cfg.Context.Fields = []string{"title", "items"}
	cfgPath, err := project.WriteConfig(target, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized quill project in %s\n", target)
	fmt.Fprintf(out, "  - %s\n", filepath.Base(cfgPath))
	if bare {
		return nil
	}
	for _, f := range starterFiles {
		path := filepath.Join(target, filepath.FromSlash(f.path))
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(out, "  - %s (existing)\n", f.path)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(f.body), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.path, err)
		}
		fmt.Fprintf(out, "  - %s\n", f.path)
	}
	return nil
}
