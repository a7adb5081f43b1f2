// Package dag orders named declarations so that every declaration comes after
// the declarations it embeds by value. The layout calculator uses it to
// compute leaf records first and to tell recursive records apart from records
// that merely depend on a failed one.
package dag

import "slices"

// Node is one declaration and the names it depends on.
type Node struct {
	Name string
	Deps []string
}

// Missing is a dependency edge whose target is not a node of the graph.
type Missing struct {
	From string
	To   string
}

// Graph stores edges from a dependency to its dependents, so Kahn's algorithm
// yields leaves first.
type Graph struct {
	Edges   [][]NodeID // Edges[dep] = []dependent
	Indeg   []int      // число неразрешённых зависимостей узла
	Present []bool     // узел объявлен, а не только упомянут как зависимость
}

func BuildGraph(idx Index, nodes []Node) (Graph, []Missing) {
	nodeCount := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]NodeID, nodeCount),
		Indeg:   make([]int, nodeCount),
		Present: make([]bool, nodeCount),
	}
	for _, node := range nodes {
		if id, ok := idx.NameToID[node.Name]; ok {
			g.Present[int(id)] = true
		}
	}

	var missing []Missing
	done := make([]bool, nodeCount)
	for _, node := range nodes {
		from, ok := idx.NameToID[node.Name]
		if !ok || done[int(from)] {
			// повторное объявление: рёбра уже добавлены по первому
			continue
		}
		done[int(from)] = true
		seen := make(map[NodeID]struct{}, len(node.Deps))
		for _, dep := range node.Deps {
			to, ok := idx.NameToID[dep]
			if !ok {
				continue
			}
			if _, dup := seen[to]; dup {
				continue
			}
			seen[to] = struct{}{}
			if !g.Present[int(to)] {
				missing = append(missing, Missing{From: node.Name, To: dep})
				continue
			}
			// self edges stay: a record holding itself by value is a cycle
			g.Edges[int(to)] = append(g.Edges[int(to)], from)
			g.Indeg[int(from)]++
		}
	}
	for i := range g.Edges {
		if len(g.Edges[i]) > 1 {
			slices.Sort(g.Edges[i])
		}
	}
	return g, missing
}
