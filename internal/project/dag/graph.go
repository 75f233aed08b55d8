package dag

import "slices"

// Graph is a dependency graph over an Index. An edge from -> to means
// "from needs to".
type Graph struct {
	Edges   [][]NodeID // Edges[from] = []to
	Indeg   []int      // incoming degree, counted for present nodes only
	Present []bool     // node was actually loaded, not only referenced
}

func NewGraph(idx Index) *Graph {
	n := len(idx.IDToName)
	return &Graph{
		Edges:   make([][]NodeID, n),
		Indeg:   make([]int, n),
		Present: make([]bool, n),
	}
}

// MarkPresent flags a node as loaded. Edges added earlier towards it are
// counted retroactively.
func (g *Graph) MarkPresent(id NodeID) {
	if g.Present[int(id)] {
		return
	}
	g.Present[int(id)] = true
	for from := range g.Edges {
		for _, to := range g.Edges[from] {
			if to == id {
				g.Indeg[int(id)]++
			}
		}
	}
}

// AddEdge records from -> to. Self edges and duplicates are ignored and
// reported as false.
func (g *Graph) AddEdge(from, to NodeID) bool {
	if from == to || slices.Contains(g.Edges[int(from)], to) {
		return false
	}
	g.Edges[int(from)] = append(g.Edges[int(from)], to)
	slices.Sort(g.Edges[int(from)])
	if g.Present[int(to)] {
		g.Indeg[int(to)]++
	}
	return true
}
