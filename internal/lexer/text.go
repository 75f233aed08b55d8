package lexer

import (
	"errors"
	"strings"

	"quill/internal/diag"
	"quill/internal/source"
)

// Marker introduces every embedded construct in template text.
const Marker = '@'

// CollapseMarkers replaces each doubled marker with a single one,
// left to right and non-overlapping.
func CollapseMarkers(s string) string {
	return strings.ReplaceAll(s, "@@", "@")
}

// Segment is one piece of host code produced by SplitTopLevel.
type Segment struct {
	Off  int
	Text string
}

// SplitTopLevel splits host code at every occurrence of sep that sits
// outside delimiters and literals. A separator byte that is doubled
// ("||", ",,") is not a separator. Segments are trimmed; offsets point at
// the trimmed text.
func SplitTopLevel(code string, sep byte) []Segment {
	f := &source.File{Content: []byte(code)}
	c := NewCursor(f)
	var cuts []int
	s := hostScanner{c: &c}
	s.run(func(b byte, depth int) bool {
		if depth == 0 && b == sep {
			off := int(c.Off)
			prevSame := off > 0 && code[off-1] == sep
			nextSame := off+1 < len(code) && code[off+1] == sep
			if !prevSame && !nextSame {
				cuts = append(cuts, off)
			}
		}
		return false
	})

	out := make([]Segment, 0, len(cuts)+1)
	prev := 0
	for _, cut := range append(cuts, len(code)) {
		part := code[prev:cut]
		lead := len(part) - len(strings.TrimLeft(part, " \t\r\n"))
		out = append(out, Segment{Off: prev + lead, Text: strings.TrimSpace(part)})
		prev = cut + 1
	}
	return out
}

// Balanced checks that host code has balanced delimiters and terminated
// literals. The error message names the first problem found.
func Balanced(code string) error {
	f := &source.File{Content: []byte(code)}
	c := NewCursor(f)
	bag := diag.NewBag(1)
	s := hostScanner{c: &c, r: diag.BagReporter{Bag: bag}}
	if s.run(nil) == outcomeFailed && bag.Len() > 0 {
		return errors.New(bag.Items()[0].Message)
	}
	return nil
}
