package plan

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestEscapeTable(t *testing.T) {
	cases := []struct{ in, want string }{
		{"&", "&amp;"},
		{"<", "&lt;"},
		{">", "&gt;"},
		{`"`, "&quot;"},
		{"'", "&#39;"},
		{"/", "&#x2F;"},
		{"plain text 123", "plain text 123"},
		{"<a href='/x'>", "&lt;a href=&#39;&#x2F;x&#39;&gt;"},
		{"caf\u00e9 & th\u00e9", "caf\u00e9 &amp; th\u00e9"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Escape(tc.in); got != tc.want {
			t.Fatalf("Escape(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEscapeLeavesOtherBytesAlone(t *testing.T) {
	special := "&<>\"'/"
	for b := 0; b < 256; b++ {
		s := string([]byte{byte(b)})
		got := Escape(s)
		if strings.ContainsRune(special, rune(b)) {
			if got == s {
				t.Fatalf("byte %#x not escaped", b)
			}
			continue
		}
		if got != s {
			t.Fatalf("byte %#x altered to %q", b, got)
		}
	}
}

func TestUnitIDIsStable(t *testing.T) {
	a := UnitIDFor("components/card.tpl")
	b := UnitIDFor("components/card.tpl")
	c := UnitIDFor("components/other.tpl")
	if a != b || a == c {
		t.Fatalf("ids: %s %s %s", a, b, c)
	}
	if len(a) != 14 || !strings.HasPrefix(string(a), "u_") {
		t.Fatalf("unexpected id shape %q", a)
	}
}

func sampleProgram() *Program {
	card := &Unit{
		ID:           UnitIDFor("components/card.tpl"),
		Path:         "components/card.tpl",
		Params:       []Param{{Name: "title"}, {Name: "count", Default: "0", HasDefault: true}},
		UsesChildren: true,
		Instrs: []Instr{
			{Op: OpText, Text: "<div>"},
			{Op: OpExpr, Code: "title", Escaped: true},
			{Op: OpInvokeChildren},
			{Op: OpText, Text: "</div>"},
		},
	}
	card.SortParams()
	card.StaticSize = StaticSize(card.Instrs)

	root := &Unit{
		ID:   UnitIDFor("pages/home.tpl"),
		Path: "pages/home.tpl",
		Instrs: []Instr{
			{Op: OpIf, Clauses: []Clause{
				{Kind: ClauseIf, Head: "n > 0", Body: []Instr{{Op: OpText, Text: "yes"}}},
				{Kind: ClauseElse, Body: []Instr{{Op: OpText, Text: "no"}}},
			}},
			{Op: OpBind, Name: "title", Bind: BindString, Text: "Hi"},
			{Op: OpBindChildren, Body: []Instr{{Op: OpText, Text: "child"}}},
			{Op: OpInvoke, Unit: card.ID, Name: "Card"},
			{Op: OpSplice, Name: "footer", Optional: true},
		},
		Sections: map[string][]Instr{"footer": {{Op: OpText, Text: "f"}}},
	}
	root.StaticSize = StaticSize(root.Instrs)

	p := NewProgram()
	p.Units[card.ID] = card
	p.Units[root.ID] = root
	p.Order = []UnitID{card.ID, root.ID}
	p.Root = root.ID
	return p
}

func TestStaticSizeCountsNestedLiterals(t *testing.T) {
	p := sampleProgram()
	if got := p.RootUnit().StaticSize; got != len("yes")+len("no")+len("child") {
		t.Fatalf("root static size = %d", got)
	}
	if got := p.Units[UnitIDFor("components/card.tpl")].StaticSize; got != len("<div></div>") {
		t.Fatalf("card static size = %d", got)
	}
}

func TestParamsSortedAndLookup(t *testing.T) {
	card := sampleProgram().Units[UnitIDFor("components/card.tpl")]
	if card.Params[0].Name != "count" || card.Params[1].Name != "title" {
		t.Fatalf("params not sorted: %+v", card.Params)
	}
	if p, ok := card.Param("count"); !ok || p.Default != "0" {
		t.Fatalf("Param(count) = %+v, %v", p, ok)
	}
	if _, ok := card.Param("missing"); ok {
		t.Fatalf("Param(missing) found")
	}
}

func TestMsgpackRoundTrip(t *testing.T) {
	p := sampleProgram()
	data, err := Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Listing() != p.Listing() {
		t.Fatalf("listing changed:\nwant:\n%s\ngot:\n%s", p.Listing(), got.Listing())
	}
}

func TestDecodeRejectsOtherSchema(t *testing.T) {
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(&envelope{Schema: Schema + 1, Program: NewProgram()}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(&buf); !errors.Is(err, ErrSchema) {
		t.Fatalf("err = %v, want ErrSchema", err)
	}
}

func TestListing(t *testing.T) {
	got := sampleProgram().Listing()
	for _, want := range []string{
		"unit u_", "components/card.tpl static=11",
		"  params: count=0 title\n",
		"  expr title\n",
		"  if\n    when n > 0\n      text \"yes\"\n    else\n      text \"no\"\n",
		"  bind title string \"Hi\"\n",
		"  invoke " + string(UnitIDFor("components/card.tpl")) + " Card\n",
		"  splice \"footer\" optional\n",
		"pages/home.tpl (root)",
		"  section footer\n    text \"f\"\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("listing missing %q:\n%s", want, got)
		}
	}
}

func TestOpTextRoundTrip(t *testing.T) {
	for o := OpText; o < opCount; o++ {
		b, err := o.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", o, err)
		}
		var back Op
		if err := back.UnmarshalText(b); err != nil || back != o {
			t.Fatalf("UnmarshalText(%s) = %v, %v", b, back, err)
		}
	}
}
