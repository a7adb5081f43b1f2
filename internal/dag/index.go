package dag

import (
	"fmt"
	"sort"

	"fortio.org/safecast"
)

type NodeID uint32

type Index struct {
	NameToID map[string]NodeID
	IDToName []string
}

// собрать уникальные имена (узлы и их зависимости), sort.Strings, раздать ID по порядку
func BuildIndex(nodes []Node) Index {
	uniq := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		if node.Name != "" {
			uniq[node.Name] = struct{}{}
		}
		for _, dep := range node.Deps {
			if dep == "" {
				continue
			}
			uniq[dep] = struct{}{}
		}
	}

	names := make([]string, 0, len(uniq))
	for name := range uniq {
		names = append(names, name)
	}
	sort.Strings(names)

	nameToID := make(map[string]NodeID, len(names))
	for i, name := range names {
		nameToID[name] = nodeID(i)
	}

	return Index{
		NameToID: nameToID,
		IDToName: names,
	}
}

// Names maps ids back to names.
func (idx Index) Names(ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[int(id)]
	}
	return out
}

func nodeID(i int) NodeID {
	id, err := safecast.Conv[NodeID](i)
	if err != nil {
		panic(fmt.Errorf("node id overflow: %w", err))
	}
	return id
}
