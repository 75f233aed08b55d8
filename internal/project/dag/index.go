package dag

import (
	"fmt"
	"sort"

	"fortio.org/safecast"
)

type NodeID uint32

// Index maps node names (canonical template paths) to dense ids.
type Index struct {
	NameToID map[string]NodeID
	IDToName []string
}

// BuildIndex collects unique names, sorts them and hands out ids in order.
func BuildIndex(names []string) Index {
	uniq := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name != "" {
			uniq[name] = struct{}{}
		}
	}

	paths := make([]string, 0, len(uniq))
	for name := range uniq {
		paths = append(paths, name)
	}
	sort.Strings(paths)

	nameToID := make(map[string]NodeID, len(paths))
	for i, name := range paths {
		id, err := safecast.Conv[NodeID](i)
		if err != nil {
			panic(fmt.Errorf("node id overflow: %w", err))
		}
		nameToID[name] = id
	}
	return Index{NameToID: nameToID, IDToName: paths}
}

// Names maps ids back to names.
func (idx Index) Names(ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[int(id)]
	}
	return out
}
