package resolve

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// Loader reads template sources by canonical, slash-separated path
// relative to the template root.
type Loader interface {
	ReadFile(path string) ([]byte, error)
}

// FSLoader reads from an fs.FS.
type FSLoader struct{ FS fs.FS }

func (l FSLoader) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(l.FS, name)
}

// DirLoader returns a loader rooted at dir on the local disk.
func DirLoader(dir string) FSLoader {
	return FSLoader{FS: os.DirFS(dir)}
}

// MapLoader serves templates from memory; used by tests and tools.
type MapLoader map[string]string

func (m MapLoader) ReadFile(name string) ([]byte, error) {
	src, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	return []byte(src), nil
}

// Canonicalize resolves ref as written in a directive of the template at
// from. Paths starting with "./" or "../" are relative to from's directory,
// everything else to the template root. ext is appended when ref has no
// extension.
func Canonicalize(from, ref, ext string) (string, error) {
	ref = strings.TrimSpace(strings.ReplaceAll(ref, "\\", "/"))
	if ref == "" {
		return "", fmt.Errorf("empty template path")
	}
	var joined string
	if strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../") {
		joined = path.Join(path.Dir(from), ref)
	} else {
		joined = path.Clean(strings.TrimLeft(ref, "/"))
	}
	if joined == ".." || strings.HasPrefix(joined, "../") || joined == "." {
		return "", fmt.Errorf("template path %q escapes the template root", ref)
	}
	if ext != "" && path.Ext(joined) == "" {
		joined += ext
	}
	return joined, nil
}
