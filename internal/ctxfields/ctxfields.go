// Package ctxfields gathers the names of the context fields a template may
// read, for the analyzer's field existence check.
//
// Fields come from three places, merged: the [context] fields list of
// quill.toml, the top-level keys of a JSON data file, and the exported
// fields and methods of a Go struct type.
package ctxfields

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"quill/internal/project"
)

// ErrNotObject reports a data file whose top level is not a JSON object.
var ErrNotObject = errors.New("context data must be a JSON object")

// Sources selects where fields come from. Empty members are skipped.
type Sources struct {
	Fields   []string
	DataFile string
	GoType   string // "./pkg.TypeName"
	Dir      string // working directory for GoType
}

// FromConfig reads the sources declared in cfg. Relative paths are
// resolved against the configuration directory.
func FromConfig(cfg project.Config) Sources {
	s := Sources{Fields: cfg.Context.Fields, GoType: cfg.Context.Type, Dir: cfg.Dir}
	if cfg.Context.Data != "" {
		s.DataFile = cfg.Context.Data
		if cfg.Dir != "" && !filepath.IsAbs(s.DataFile) {
			s.DataFile = filepath.Join(cfg.Dir, s.DataFile)
		}
	}
	return s
}

// Empty reports whether no source is configured; the field check is then
// disabled rather than run against an empty set.
func (s Sources) Empty() bool {
	return s.Fields == nil && s.DataFile == "" && s.GoType == ""
}

// Resolve loads every configured source and returns the sorted union, or
// nil when no source is configured.
func Resolve(ctx context.Context, s Sources) ([]string, error) {
	if s.Empty() {
		return nil, nil
	}
	out := slices.Clone(s.Fields)
	if s.DataFile != "" {
		data, err := LoadData(s.DataFile)
		if err != nil {
			return nil, err
		}
		out = append(out, Keys(data)...)
	}
	if s.GoType != "" {
		fields, err := FromGoType(ctx, s.Dir, s.GoType)
		if err != nil {
			return nil, err
		}
		out = append(out, fields...)
	}
	return Merge(out), nil
}

// LoadData decodes a JSON object file into render data. Numbers keep
// their integer form when they have one.
func LoadData(path string) (map[string]any, error) {
	// #nosec G304 -- path is provided by the caller
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("context data: %w", err)
	}
	return DecodeData(raw)
}

// DecodeData decodes a JSON object into render data.
func DecodeData(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("context data: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return normalize(obj).(map[string]any), nil
}

// normalize turns json.Number into int or float64.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n)
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
		return x
	}
	return v
}

// Keys returns the sorted top-level keys of data.
func Keys(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge sorts and dedups field names, dropping empty ones.
func Merge(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
