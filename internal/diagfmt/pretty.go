package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"quill/internal/diag"
	"quill/internal/source"
)

type palette struct {
	err, caution, warn, info *color.Color
	path, code, gutter, mark *color.Color
	note                     *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:     color.New(color.FgRed, color.Bold),
		caution: color.New(color.FgMagenta, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		info:    color.New(color.FgCyan),
		path:    color.New(color.Bold),
		code:    color.New(color.Faint),
		gutter:  color.New(color.FgBlue),
		mark:    color.New(color.FgRed, color.Bold),
		note:    color.New(color.FgCyan, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.caution, p.warn, p.info, p.path, p.code, p.gutter, p.mark, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevCaution:
		return p.caution
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty renders diagnostics in human-readable form. The bag is expected to
// be sorted. For each diagnostic it prints
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the source line with a ^~~~ underline, notes and the enclosing
// extends/use chain.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil || fs == nil {
		return
	}
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, d, fs, opts, p)
	}
	if n := bag.Dropped(); n > 0 {
		fmt.Fprintf(w, "\n%s\n", p.code.Sprintf("... %d more diagnostics suppressed", n))
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	if !validSpan(fs, d.Primary) {
		fmt.Fprintf(w, "%s %s: %s\n", p.severity(d.Severity).Sprint(d.Severity.String()), p.code.Sprint(d.Code.ID()), d.Message)
		return
	}
	pos := fs.Position(d.Primary)
	path := formatPath(fs, d.Primary.File, opts.PathMode)
	fmt.Fprintf(w, "%s: %s %s: %s\n",
		p.path.Sprintf("%s:%d:%d", path, pos.Start.Line, pos.Start.Col),
		p.severity(d.Severity).Sprint(d.Severity.String()),
		p.code.Sprint(d.Code.ID()),
		d.Message,
	)
	writeSnippet(w, fs, d.Primary, opts, p)

	if opts.ShowNotes {
		for _, n := range d.Notes {
			if !validSpan(fs, n.Span) {
				fmt.Fprintf(w, "  %s %s\n", p.note.Sprint("note:"), n.Msg)
				continue
			}
			npos := fs.Position(n.Span)
			fmt.Fprintf(w, "  %s %s:%d:%d: %s\n", p.note.Sprint("note:"),
				formatPath(fs, n.Span.File, opts.PathMode), npos.Start.Line, npos.Start.Col, n.Msg)
		}
	}
	if opts.ShowChain {
		if line := chainLine(fs, d.Chain, opts.PathMode); line != "" {
			fmt.Fprintf(w, "  %s %s\n", p.note.Sprint("required from"), line)
		}
	}
}

// chainLine joins the chain sites outermost first: "page.tpl:1:1 > box.tpl:3:2".
func chainLine(fs *source.FileSet, chain []source.Span, mode PathMode) string {
	parts := make([]string, 0, len(chain))
	for _, sp := range chain {
		if !validSpan(fs, sp) {
			continue
		}
		pos := fs.Position(sp)
		parts = append(parts, fmt.Sprintf("%s:%d:%d", formatPath(fs, sp.File, mode), pos.Start.Line, pos.Start.Col))
	}
	return strings.Join(parts, " > ")
}

func writeSnippet(w io.Writer, fs *source.FileSet, span source.Span, opts PrettyOpts, p palette) {
	f := fs.Get(span.File)
	start, end := fs.Resolve(span)

	first := int64(start.Line) - int64(max(opts.Context, 0))
	if first < 1 {
		first = 1
	}
	last := int64(start.Line) + int64(max(opts.Context, 0))
	gutterWidth := len(fmt.Sprint(last))

	for ln := first; ln <= last; ln++ {
		line := f.GetLine(uint32(ln))
		if ln != int64(start.Line) && line == "" {
			continue
		}
		shown := line
		if opts.Width > 0 {
			shown = runewidth.Truncate(shown, int(opts.Width), "…")
		}
		fmt.Fprintf(w, "%s %s\n", p.gutter.Sprintf("%*d |", gutterWidth, ln), shown)
		if ln != int64(start.Line) {
			continue
		}
		col := int(start.Col) - 1
		if col > len(line) {
			col = len(line)
		}
		stop := len(line)
		if end.Line == start.Line {
			stop = min(int(end.Col)-1, len(line))
		}
		if stop < col {
			stop = col
		}
		pad := indentFor(line[:col])
		width := runewidth.StringWidth(line[col:stop])
		if width == 0 {
			width = 1
		}
		marker := "^" + strings.Repeat("~", width-1)
		fmt.Fprintf(w, "%s %s%s\n", p.gutter.Sprintf("%*s |", gutterWidth, ""), pad, p.mark.Sprint(marker))
	}
}

// indentFor returns whitespace occupying the same display width as prefix,
// keeping tabs so the marker lines up in the terminal.
func indentFor(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return b.String()
}
