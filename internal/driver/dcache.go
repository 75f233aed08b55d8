package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"quill/internal/diag"
	"quill/internal/plan"
	"quill/internal/project"
	"quill/internal/resolve"
)

// Bump when DiskPayload changes shape.
const diskCacheSchemaVersion uint16 = 1

// DiskCache stores compiled programs keyed by the digest of their
// dependency closure and compile options. Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is one cache entry.
type DiskPayload struct {
	Schema  uint16
	Program []byte
	Diags   []*diag.Diagnostic
}

// OpenDiskCache opens the cache under $XDG_CACHE_HOME/app (or
// ~/.cache/app), creating it when missing.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt opens a cache rooted at dir.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "plans", hex.EncodeToString(key[:])+".mp")
}

// Put writes payload atomically.
func (c *DiskCache) Put(key project.Digest, payload *DiskPayload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the entry for key. A missing entry is not an error.
func (c *DiskCache) Get(key project.Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

// Lookup returns the cached program and diagnostics for key. Entries
// written by another schema, or that fail to decode, are misses.
func (c *DiskCache) Lookup(key project.Digest) (*plan.Program, []*diag.Diagnostic, bool) {
	var payload DiskPayload
	ok, err := c.Get(key, &payload)
	if !ok || err != nil || payload.Schema != diskCacheSchemaVersion {
		return nil, nil, false
	}
	prog, err := plan.Unmarshal(payload.Program)
	if err != nil {
		return nil, nil, false
	}
	return prog, payload.Diags, true
}

// Store caches a successfully compiled program with its findings.
func (c *DiskCache) Store(key project.Digest, prog *plan.Program, diags []*diag.Diagnostic) error {
	data, err := plan.Marshal(prog)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(slices.Clone(diags), func(d *diag.Diagnostic) bool {
		return d.Code == diag.ObsTimings
	})
	return c.Put(key, &DiskPayload{Schema: diskCacheSchemaVersion, Program: data, Diags: kept})
}

// DropAll removes every entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

// cacheKey combines the closure fingerprint with every option that
// changes the findings or the program.
func cacheKey(g *resolve.Graph, opts Options) project.Digest {
	var sb strings.Builder
	sb.WriteString(opts.Extension)
	sb.WriteByte(0)
	sb.WriteString(strconv.Itoa(opts.MaxChain))
	sb.WriteString(strconv.FormatBool(opts.NoWarnings))
	sb.WriteString(strconv.FormatBool(opts.WarningsAsErrors))
	sb.WriteString(strconv.FormatBool(opts.Fields != nil))
	fields := slices.Clone(opts.Fields)
	slices.Sort(fields)
	for _, f := range fields {
		sb.WriteByte(0)
		sb.WriteString(f)
	}
	return project.Combine(g.Fingerprint(), sha256.Sum256([]byte(sb.String())))
}
