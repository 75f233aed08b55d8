package lexer

import (
	"testing"

	"quill/internal/diag"
)

func scanWith(t *testing.T, input string, fn func(*Cursor, diag.Reporter) (string, bool)) (string, bool, *diag.Bag, *Cursor) {
	t.Helper()
	c := NewCursor(createFile(input))
	bag := diag.NewBag(0)
	got, ok := fn(&c, diag.BagReporter{Bag: bag})
	return got, ok, bag, &c
}

func TestScanSimpleExpr(t *testing.T) {
	tests := []struct {
		in   string
		want string
		rest string
	}{
		{"name rest", "name", " rest"},
		{"user.name!", "user.name", "!"},
		{"name.", "name", "."},
		{"name. Next", "name", ". Next"},
		{"a::b::c x", "a::b::c", " x"},
		{"a:: x", "a", ":: x"},
		{"f(x, \")\")[0].y<", "f(x, \")\")[0].y", "<"},
		{"&item.id ", "&item.id", " "},
		{"items[i+1]</li>", "items[i+1]", "</li>"},
		{"caf\u00e9.na\u00efve", "caf\u00e9.na\u00efve", ""},
		{"a&&b.ok rest", "a&&b.ok", " rest"},
		{"a&&f(x)&&c<", "a&&f(x)&&c", "<"},
		{"name&nbsp;", "name", "&nbsp;"},
		{"a&& b", "a", "&& b"},
	}
	for _, tt := range tests {
		got, ok, bag, c := scanWith(t, tt.in, func(c *Cursor, r diag.Reporter) (string, bool) {
			sp, ok := ScanSimpleExpr(c, r)
			return c.Text(sp), ok
		})
		if !ok || bag.Len() != 0 {
			t.Fatalf("%q: scan failed (%d diagnostics)", tt.in, bag.Len())
		}
		if got != tt.want {
			t.Errorf("%q: want expr %q got %q", tt.in, tt.want, got)
		}
		if rest := string(c.File.Content[c.Off:]); rest != tt.rest {
			t.Errorf("%q: want rest %q got %q", tt.in, tt.rest, rest)
		}
	}
}

func TestScanSimpleExprRequiresIdentifier(t *testing.T) {
	_, ok, _, c := scanWith(t, " x", func(c *Cursor, r diag.Reporter) (string, bool) {
		sp, ok := ScanSimpleExpr(c, r)
		return c.Text(sp), ok
	})
	if ok || c.Off != 0 {
		t.Fatalf("expected no expression and untouched cursor")
	}
}

func TestScanBalancedSkipsLiterals(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`(a + b) tail`, `a + b`},
		{`(f(")") + ')') x`, `f(")") + ')'`},
		{"(a /* ) */ + b)", "a /* ) */ + b"},
		{"(a // )\n + b)", "a // )\n + b"},
		{"(`raw ) text`)", "`raw ) text`"},
		{`({ "k": [1, 2] })`, `{ "k": [1, 2] }`},
		{`("esc \" )")`, `"esc \" )"`},
	}
	for _, tt := range tests {
		got, ok, bag, _ := scanWith(t, tt.in, func(c *Cursor, r diag.Reporter) (string, bool) {
			sp, ok := ScanBalanced(c, r)
			return c.Text(sp), ok
		})
		if !ok || bag.Len() != 0 {
			t.Fatalf("%q: scan failed", tt.in)
		}
		if got != tt.want {
			t.Errorf("%q: want %q got %q", tt.in, tt.want, got)
		}
	}
}

func TestScanBalancedErrors(t *testing.T) {
	tests := []struct {
		in    string
		code  diag.Code
		start uint32
	}{
		{`(a + "open)`, diag.LexUnterminatedString, 5},
		{"(a + 'x\n)", diag.LexUnterminatedChar, 5},
		{"(a /* never", diag.LexUnterminatedBlockComment, 3},
		{"(a + (b)", diag.LexUnclosedDelimiter, 0},
		{"(a ]", diag.LexUnbalancedDelimiter, 3},
	}
	for _, tt := range tests {
		_, ok, bag, _ := scanWith(t, tt.in, func(c *Cursor, r diag.Reporter) (string, bool) {
			sp, ok := ScanBalanced(c, r)
			return c.Text(sp), ok
		})
		if ok {
			t.Fatalf("%q: expected failure", tt.in)
		}
		if bag.Len() != 1 {
			t.Fatalf("%q: expected one diagnostic, got %d", tt.in, bag.Len())
		}
		d := bag.Items()[0]
		if d.Code != tt.code || d.Primary.Start != tt.start || d.Severity != diag.SevError {
			t.Errorf("%q: got %s at %d", tt.in, d.Code.ID(), d.Primary.Start)
		}
	}
}

func TestScanHead(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		brace bool
	}{
		{"count > 0 { body }", "count > 0", true},
		{`x == "{" { body }`, `x == "{"`, true},
		{"f(func() { return 1 }) {", "f(func() { return 1 })", true},
		{"ready\n  { body }", "ready", true},
		{"ready\n<p>", "ready", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok, _, c := scanWith(t, tt.in, func(c *Cursor, r diag.Reporter) (string, bool) {
			sp, ok := ScanHead(c, r)
			return c.Text(sp), ok
		})
		if !ok {
			t.Fatalf("%q: unexpected failure", tt.in)
		}
		if got != tt.want {
			t.Errorf("%q: want head %q got %q", tt.in, tt.want, got)
		}
		c.SkipWhitespace()
		if (c.Peek() == '{') != tt.brace {
			t.Errorf("%q: brace presence mismatch", tt.in)
		}
	}
}

func TestScanPattern(t *testing.T) {
	got, ok, _, c := scanWith(t, ` "a" | "b" => { x }`, func(c *Cursor, r diag.Reporter) (string, bool) {
		sp, ok := ScanPattern(c, r)
		return c.Text(sp), ok
	})
	if !ok || got != `"a" | "b"` {
		t.Fatalf("unexpected pattern %q", got)
	}
	if !c.HasPrefix("=>") {
		t.Fatalf("cursor should stop at the arrow")
	}
}

func TestScanQuoted(t *testing.T) {
	got, ok, _, _ := scanWith(t, `"layouts/base.tpl")`, func(c *Cursor, r diag.Reporter) (string, bool) {
		sp, ok := ScanQuoted(c, r)
		return c.Text(sp), ok
	})
	if !ok || got != "layouts/base.tpl" {
		t.Fatalf("unexpected %q", got)
	}
	_, ok, bag, _ := scanWith(t, `'open`, func(c *Cursor, r diag.Reporter) (string, bool) {
		sp, ok := ScanQuoted(c, r)
		return c.Text(sp), ok
	})
	if ok || bag.Len() != 1 {
		t.Fatalf("expected unterminated string error")
	}
}
