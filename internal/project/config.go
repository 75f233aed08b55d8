package project

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the decoded quill.toml.
type Config struct {
	Templates   TemplatesConfig   `toml:"templates"`
	Context     ContextConfig     `toml:"context"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Render      RenderConfig      `toml:"render"`

	// Dir is the directory holding quill.toml; empty for defaults.
	Dir string `toml:"-"`
}

type TemplatesConfig struct {
	Root       string `toml:"root"`
	Components string `toml:"components"`
	Extension  string `toml:"extension"`
}

type ContextConfig struct {
	Fields []string `toml:"fields"`
	Data   string   `toml:"data"`
	Type   string   `toml:"type"`
}

type DiagnosticsConfig struct {
	Max              uint16 `toml:"max"`
	NoWarnings       bool   `toml:"no_warnings"`
	WarningsAsErrors bool   `toml:"warnings_as_errors"`
}

type RenderConfig struct {
	Escape bool `toml:"escape"`
}

var (
	// ErrBadExtension reports a [templates].extension without a leading dot.
	ErrBadExtension = errors.New("invalid [templates].extension")
	// ErrRootEscapes reports a directory setting that leaves the project.
	ErrRootEscapes = errors.New("path escapes project root")
)

// Default returns the configuration used when no quill.toml exists.
func Default() Config {
	return Config{
		Templates: TemplatesConfig{
			Root:       ".",
			Components: "components",
			Extension:  ".tpl",
		},
		Diagnostics: DiagnosticsConfig{Max: 100},
		Render:      RenderConfig{Escape: true},
	}
}

// LoadConfig parses quill.toml at path. Keys left out keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Dir = filepath.Dir(path)
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover finds quill.toml above startDir and loads it. Without one it
// returns Default rooted at startDir and ok=false.
func Discover(startDir string) (cfg Config, ok bool, err error) {
	path, ok, err := FindConfig(startDir)
	if err != nil {
		return Config{}, false, err
	}
	if !ok {
		cfg = Default()
		cfg.Dir, err = filepath.Abs(startDir)
		if err != nil {
			return Config{}, false, fmt.Errorf("failed to resolve start directory: %w", err)
		}
		return cfg, false, nil
	}
	cfg, err = LoadConfig(path)
	return cfg, err == nil, err
}

func (c *Config) validate() error {
	c.Templates.Root = strings.TrimSpace(c.Templates.Root)
	if c.Templates.Root == "" {
		c.Templates.Root = "."
	}
	if filepath.IsAbs(c.Templates.Root) {
		return fmt.Errorf("invalid [templates].root %q: must be relative", c.Templates.Root)
	}
	if !pathWithin(".", filepath.Clean(c.Templates.Root)) {
		return fmt.Errorf("invalid [templates].root %q: %w", c.Templates.Root, ErrRootEscapes)
	}
	ext := strings.TrimSpace(c.Templates.Extension)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		return fmt.Errorf("%w %q: must start with '.'", ErrBadExtension, ext)
	}
	c.Templates.Extension = ext
	c.Templates.Components = filepath.ToSlash(filepath.Clean(strings.TrimSpace(c.Templates.Components)))
	return nil
}

// TemplateRoot returns the absolute template root directory.
func (c Config) TemplateRoot() string {
	return filepath.Join(c.Dir, filepath.FromSlash(c.Templates.Root))
}

// IsComponentPath reports whether a root-relative template path lives in
// the components directory.
func (c Config) IsComponentPath(rel string) bool {
	dir := c.Templates.Components
	if dir == "" || dir == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel == dir || strings.HasPrefix(rel, dir+"/")
}

// Encode renders the configuration as TOML, as written by `quill init`.
func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteConfig writes cfg to dir/quill.toml, refusing to overwrite.
func WriteConfig(dir string, cfg Config) (string, error) {
	path := filepath.Join(dir, ConfigName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to stat %q: %w", path, err)
	}
	data, err := cfg.Encode()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func pathWithin(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, "..") && rel != ".."
}
