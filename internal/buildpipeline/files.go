package buildpipeline

import (
	"path/filepath"
	"sort"
	"strings"
)

// normalizeFiles maps user-supplied template paths to slash-separated
// paths relative to baseDir, dropping duplicates and paths outside it.
func normalizeFiles(files []string, baseDir string) []string {
	if len(files) == 0 {
		return files
	}
	normalized := make([]string, 0, len(files))
	seen := make(map[string]struct{}, len(files))

	base := strings.TrimSpace(baseDir)
	if base != "" {
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
	}

	for _, file := range files {
		if file == "" {
			continue
		}
		path := filepath.Clean(file)
		if base != "" {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			rel, err := filepath.Rel(base, path)
			if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				continue
			}
			path = rel
		}
		path = filepath.ToSlash(path)
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		normalized = append(normalized, path)
	}
	sort.Strings(normalized)
	return normalized
}

// outputPath returns where the plan of template rel is written.
func outputPath(outDir, rel, ext string, f Format) string {
	base := strings.TrimSuffix(rel, ext)
	if base == rel {
		base = strings.TrimSuffix(rel, filepath.Ext(rel))
	}
	return filepath.Join(outDir, filepath.FromSlash(base)+f.Ext())
}
