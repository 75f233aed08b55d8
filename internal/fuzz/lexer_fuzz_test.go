package fuzztests

import (
	"testing"

	"quill/internal/lexer"
)

func FuzzSplitTopLevel(f *testing.F) {
	f.Add("a, b, c")
	f.Add(`f("x,y", 'z'), [1, 2]`)
	f.Add("a || b | c")
	f.Add(`"unterminated, x`)
	f.Fuzz(func(t *testing.T, code string) {
		if len(code) > maxFuzzInput {
			code = code[:maxFuzzInput]
		}
		for _, sep := range []byte{',', '|'} {
			for _, seg := range lexer.SplitTopLevel(code, sep) {
				if seg.Off < 0 || seg.Off > len(code) || seg.Off+len(seg.Text) > len(code) {
					t.Fatalf("segment %+v out of bounds for %q", seg, code)
				}
				if code[seg.Off:seg.Off+len(seg.Text)] != seg.Text {
					t.Fatalf("segment %+v does not match source %q", seg, code)
				}
			}
		}
		_ = lexer.Balanced(code)
	})
}

func FuzzCollapseMarkers(f *testing.F) {
	f.Add("@@")
	f.Add("a@@@b")
	f.Fuzz(func(t *testing.T, s string) {
		out := lexer.CollapseMarkers(s)
		if len(out) > len(s) {
			t.Fatalf("collapse grew %q to %q", s, out)
		}
	})
}
