package parser

import (
	"fmt"
	"strings"
	"testing"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/source"
)

func diagnosticsSummary(bag *diag.Bag) string {
	if bag == nil {
		return "<nil bag>"
	}
	diags := bag.Items()
	if len(diags) == 0 {
		return "<none>"
	}
	lines := make([]string, len(diags))
	for i, d := range diags {
		lines[i] = fmt.Sprintf("[%s] %s", d.Code.ID(), d.Message)
	}
	return strings.Join(lines, "; ")
}

func parseWith(t *testing.T, src string, opts Options) (Result, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.tpl", []byte(src))
	bag := diag.NewBag(0)
	opts.Reporter = diag.BagReporter{Bag: bag}
	return ParseFile(fs, id, opts), bag
}

func parseOK(t *testing.T, src string) (Result, []*ast.Node) {
	t.Helper()
	res, bag := parseWith(t, src, Options{})
	if bag.HasErrors() || res.Fatal {
		t.Fatalf("unexpected diagnostics for %q: %s", src, diagnosticsSummary(bag))
	}
	return res, nodes(res.Builder, res.Builder.Get(res.Root).Children)
}

func nodes(b *ast.Builder, ids []ast.NodeID) []*ast.Node {
	out := make([]*ast.Node, len(ids))
	for i, id := range ids {
		out[i] = b.Get(id)
	}
	return out
}

func kinds(ns []*ast.Node) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = n.Kind.String()
	}
	return strings.Join(parts, ",")
}

func expectKinds(t *testing.T, ns []*ast.Node, want ...ast.Kind) {
	t.Helper()
	parts := make([]string, len(want))
	for i, k := range want {
		parts[i] = k.String()
	}
	if got, exp := kinds(ns), strings.Join(parts, ","); got != exp {
		t.Fatalf("kinds mismatch:\nwant %s\ngot  %s", exp, got)
	}
}

func expectCode(t *testing.T, bag *diag.Bag, code diag.Code) *diag.Diagnostic {
	t.Helper()
	for _, d := range bag.Items() {
		if d.Code == code {
			return d
		}
	}
	t.Fatalf("expected %s, got %s", code.ID(), diagnosticsSummary(bag))
	return nil
}
