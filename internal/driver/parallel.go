package driver

import (
	"context"
	"io/fs"
	"os"
	"path"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"quill/internal/resolve"
	"quill/internal/source"
	"quill/internal/trace"
)

// DefaultExtension is the template file extension used when none is
// configured.
const DefaultExtension = ".tpl"

// DirOptions selects the root templates of a directory.
type DirOptions struct {
	Options
	// Components names the directory, relative to the template root, whose
	// files are only ever used as components and never compiled as roots.
	Components string
}

// ListTemplates returns the slash-separated paths of every template under
// fsys with extension ext, skipping the components directory. The list is
// sorted. An empty ext means DefaultExtension.
func ListTemplates(fsys fs.FS, ext, components string) ([]string, error) {
	if ext == "" {
		ext = DefaultExtension
	}
	components = strings.Trim(path.Clean("/"+components), "/")
	var files []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && components != "" && p == components {
				return fs.SkipDir
			}
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if path.Ext(p) == ext {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

// CompileDir compiles every root template under dir in parallel. Results
// follow the sorted file order. Per-template failures are reported in
// the results; the returned error is set only when listing fails or ctx
// is canceled, in which case unstarted entries are nil.
func CompileDir(ctx context.Context, dir string, opts DirOptions) ([]*Result, error) {
	span, ctx := trace.Start(ctx, trace.ScopeDriver, "compile-dir")
	span.Set("dir", dir)
	defer span.End("")

	fsys := os.DirFS(dir)
	files, err := ListTemplates(fsys, opts.Extension, opts.Components)
	if err != nil {
		return nil, err
	}
	if opts.Loader == nil {
		opts.Loader = resolve.FSLoader{FS: fsys}
	}
	return CompileFiles(ctx, files, opts.Options)
}

// CompileFiles compiles the given root templates in parallel. Every
// worker owns its FileSet and resolver; only the loader, cache and
// observer are shared.
func CompileFiles(ctx context.Context, files []string, opts Options) ([]*Result, error) {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]*Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := compileWith(gctx, source.NewFileSet(), file, opts)
			res.Err = err
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
