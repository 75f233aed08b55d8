package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("page.tpl", []byte("hello world"), 0)
	id2 := fs.Add("page.tpl", []byte("hello universe"), 0)
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %d twice", id1)
	}

	latest, ok := fs.GetLatest("page.tpl")
	if !ok || latest != id2 {
		t.Fatalf("expected latest id %d, got %d (ok=%v)", id2, latest, ok)
	}
	if got := string(fs.Get(id1).Content); got != "hello world" {
		t.Fatalf("old version lost: %q", got)
	}
}

func TestAddSourceNormalizes(t *testing.T) {
	fs := NewFileSet()
	raw := []byte{0xEF, 0xBB, 0xBF, 'a', '\r', '\n', 'e', 0xCC, 0x81}
	id := fs.AddSource("x.tpl", raw)
	f := fs.Get(id)

	if want := "a\n\u00e9"; string(f.Content) != want {
		t.Fatalf("content = %q, want %q", f.Content, want)
	}
	for _, flag := range []FileFlags{FileHadBOM, FileNormalizedCRLF, FileNormalizedNFC} {
		if f.Flags&flag == 0 {
			t.Errorf("flag %d not set", flag)
		}
	}
}

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("t.tpl", []byte("ab\ncd\n\nx"))

	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{2, LineCol{1, 3}},
		{3, LineCol{2, 1}},
		{5, LineCol{2, 3}},
		{6, LineCol{3, 1}},
		{7, LineCol{4, 1}},
	}
	for _, tt := range tests {
		start, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
		if start != tt.want {
			t.Errorf("offset %d: got %+v, want %+v", tt.off, start, tt.want)
		}
	}
}

func TestPositionCarriesBytes(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("p.tpl", []byte("Hi @name\n"))
	pos := fs.Position(Span{File: id, Start: 3, End: 8})
	if pos.Start != (LineCol{1, 4}) || pos.End != (LineCol{1, 9}) {
		t.Fatalf("unexpected position %+v", pos)
	}
	if pos.StartByte != 3 || pos.EndByte != 8 || pos.Path != "p.tpl" {
		t.Fatalf("unexpected byte range %+v", pos)
	}
	if got := fs.Text(Span{File: id, Start: 3, End: 8}); got != "@name" {
		t.Fatalf("Text = %q", got)
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("g.tpl", []byte("one\ntwo\nthree")))
	for i, want := range []string{"one", "two", "three", ""} {
		if got := f.GetLine(uint32(i + 1)); got != want {
			t.Errorf("line %d = %q, want %q", i+1, got, want)
		}
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 6}
	if got := a.Cover(b); got != (Span{File: 1, Start: 2, End: 8}) {
		t.Fatalf("Cover = %v", got)
	}
	if got := a.Cover(Span{File: 2, Start: 0, End: 100}); got != a {
		t.Fatalf("cross-file Cover changed span: %v", got)
	}
	if !a.Cover(b).Contains(a) {
		t.Fatalf("cover must contain its parts")
	}
}

func TestRelativePathOutsideBaseFallsBackToAbsolute(t *testing.T) {
	tmp := t.TempDir()
	baseDir := filepath.Join(tmp, "base")
	otherDir := filepath.Join(tmp, "other")
	for _, d := range []string{baseDir, otherDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}

	target := filepath.Join(otherDir, "file.tpl")
	got, err := RelativePath(target, baseDir)
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}
	if want := normalizePath(target); got != want {
		t.Fatalf("expected absolute fallback %q, got %q", want, got)
	}
}

func TestRelativePathInsideBaseStaysRelative(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "nested", "file.tpl")
	got, err := RelativePath(target, tmp)
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}
	if want := "nested/file.tpl"; got != want {
		t.Fatalf("expected relative path %q, got %q", want, got)
	}
}
