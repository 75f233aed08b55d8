package ctxfields

import (
	"context"
	"fmt"
	"go/types"
	"path/filepath"
	"reflect"
	"strings"

	"golang.org/x/tools/go/packages"
)

// SplitTypeSpec splits "./pkg.TypeName" into a package pattern and a type
// name. A bare name refers to the package in the working directory.
func SplitTypeSpec(spec string) (pattern, name string, err error) {
	spec = strings.TrimSpace(spec)
	slash := strings.LastIndex(spec, "/")
	dot := strings.LastIndex(spec, ".")
	switch {
	case spec == "":
		return "", "", fmt.Errorf("empty Go type")
	case dot <= slash || dot == len(spec)-1:
		if slash >= 0 || strings.HasPrefix(spec, ".") {
			return "", "", fmt.Errorf("Go type %q: want <package>.<Type>", spec)
		}
		return ".", spec, nil
	}
	return spec[:dot], spec[dot+1:], nil
}

// FromGoType loads the package of spec and returns the exported fields
// (json tag names when present), promoted fields of embedded structs and
// exported methods of the named type.
func FromGoType(ctx context.Context, dir, spec string) ([]string, error) {
	pattern, name, err := SplitTypeSpec(spec)
	if err != nil {
		return nil, err
	}
	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedTypes,
		Dir:     dir,
		Tests:   false,
	}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", pattern, err)
	}
	if len(pkgs) != 1 {
		return nil, fmt.Errorf("load %s: matched %d packages", pattern, len(pkgs))
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("load %s: %v", pattern, pkg.Errors[0])
	}
	obj := pkg.Types.Scope().Lookup(name)
	if obj == nil {
		return nil, fmt.Errorf("type %s not found in %s", name, filepath.ToSlash(pkg.PkgPath))
	}
	named, ok := obj.Type().(*types.Named)
	if !ok {
		return nil, fmt.Errorf("%s is not a named type", name)
	}
	return Merge(typeFields(named, make(map[*types.Named]bool))), nil
}

func typeFields(named *types.Named, seen map[*types.Named]bool) []string {
	if seen[named] {
		return nil
	}
	seen[named] = true

	var out []string
	if st, ok := named.Underlying().(*types.Struct); ok {
		out = structFields(st, seen)
	}
	mset := types.NewMethodSet(types.NewPointer(named))
	for i := 0; i < mset.Len(); i++ {
		if fn := mset.At(i).Obj(); fn.Exported() {
			out = append(out, fn.Name())
		}
	}
	return out
}

func structFields(st *types.Struct, seen map[*types.Named]bool) []string {
	var out []string
	for i := 0; i < st.NumFields(); i++ {
		field := st.Field(i)
		if field.Anonymous() {
			t := field.Type()
			if p, ok := t.(*types.Pointer); ok {
				t = p.Elem()
			}
			if n, ok := t.(*types.Named); ok {
				out = append(out, typeFields(n, seen)...)
				continue
			}
		}
		if !field.Exported() {
			continue
		}
		name := field.Name()
		if tag, ok := reflect.StructTag(st.Tag(i)).Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		out = append(out, name)
	}
	return out
}
