package dag

import (
	"slices"
	"testing"
)

func buildGraph(t *testing.T, present []string, edges [][2]string) (Index, *Graph) {
	t.Helper()
	names := slices.Clone(present)
	for _, e := range edges {
		names = append(names, e[0], e[1])
	}
	idx := BuildIndex(names)
	g := NewGraph(idx)
	for _, e := range edges {
		g.AddEdge(idx.NameToID[e[0]], idx.NameToID[e[1]])
	}
	for _, p := range present {
		g.MarkPresent(idx.NameToID[p])
	}
	return idx, g
}

func TestBuildIndexSortsNames(t *testing.T) {
	idx := BuildIndex([]string{"pages/home.tpl", "components/card.tpl", "", "pages/home.tpl"})
	want := []string{"components/card.tpl", "pages/home.tpl"}
	if !slices.Equal(idx.IDToName, want) {
		t.Fatalf("IDToName = %v, want %v", idx.IDToName, want)
	}
	if id := idx.NameToID["pages/home.tpl"]; id != 1 {
		t.Fatalf("NameToID[home] = %d, want 1", id)
	}
}

func TestAddEdgeIgnoresSelfAndDuplicates(t *testing.T) {
	idx := BuildIndex([]string{"a", "b"})
	g := NewGraph(idx)
	if !g.AddEdge(0, 1) {
		t.Fatalf("first edge rejected")
	}
	if g.AddEdge(0, 1) {
		t.Fatalf("duplicate edge accepted")
	}
	if g.AddEdge(1, 1) {
		t.Fatalf("self edge accepted")
	}
}

func TestToposortKahnBatches(t *testing.T) {
	idx, g := buildGraph(t,
		[]string{"page", "layout", "card", "icon"},
		[][2]string{{"page", "layout"}, {"page", "card"}, {"card", "icon"}, {"layout", "icon"}},
	)

	topo := ToposortKahn(g)
	if topo.Cyclic {
		t.Fatalf("expected acyclic graph")
	}
	if got := idx.Names(topo.Order); !slices.Equal(got, []string{"page", "card", "layout", "icon"}) {
		t.Fatalf("order = %v", got)
	}
	if len(topo.Batches) != 3 {
		t.Fatalf("batches = %v, want 3 waves", topo.Batches)
	}
	if got := idx.Names(topo.Reversed()); got[0] != "icon" || got[len(got)-1] != "page" {
		t.Fatalf("reversed = %v, want icon first and page last", got)
	}
}

func TestToposortReportsCycle(t *testing.T) {
	idx, g := buildGraph(t,
		[]string{"a.tpl", "b.tpl", "c.tpl"},
		[][2]string{{"a.tpl", "b.tpl"}, {"b.tpl", "a.tpl"}, {"c.tpl", "a.tpl"}},
	)

	topo := ToposortKahn(g)
	if !topo.Cyclic {
		t.Fatalf("expected cycle")
	}
	if got := idx.Names(topo.Cycles); !slices.Equal(got, []string{"a.tpl", "b.tpl"}) {
		t.Fatalf("cycles = %v", got)
	}
}

func TestMissingNodesAreSkipped(t *testing.T) {
	idx, g := buildGraph(t, []string{"page"}, [][2]string{{"page", "gone"}})
	topo := ToposortKahn(g)
	if topo.Cyclic || !slices.Equal(idx.Names(topo.Order), []string{"page"}) {
		t.Fatalf("unexpected topo %+v", topo)
	}
}
