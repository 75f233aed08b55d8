package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	maxSeedBytes = 64 << 10
	maxFuzzInput = 1 << 16
)

var builtinSeeds = []string{
	"",
	"Hi @name!",
	"@@ not a marker",
	"@if count > 0 { many } else { none }",
	"@for x in xs { @if x == 2 { @continue } @x }",
	"@while i < 3 { @{ i = i + 1 } }",
	"@match s { \"a\" | \"b\" => { ab } _ => { other } }",
	"<Card title=\"x\" n={1} flag blk=<>frag</> />",
	"@extends(\"base.tpl\")\n@section(\"title\", \"Home\")\nbody",
	"@* comment *@@!html",
	"@{ let x = [1, 2, 3] }@(len(x))",
	"<A><B><C>deep</C></B></A>",
	"@if {",
	"<Card title=",
	"@match x { 1 => }",
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range builtinSeeds {
		f.Add([]byte(s))
	}
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".tpl") {
			return nil
		}
		// #nosec G304 -- path comes from walking the repository testdata
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clamp(src, maxSeedBytes))
		return nil
	})
}

func clamp(src []byte, limit int) []byte {
	if len(src) <= limit {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:limit]...)
}
