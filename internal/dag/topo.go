package dag

import "slices"

type Topo struct {
	Order   []NodeID   // линейный порядок: зависимости раньше зависимых
	Batches [][]NodeID // волны независимых узлов
	Cyclic  bool
	Cycles  []NodeID // узлы, лежащие на цикле
	Blocked []NodeID // узлы вне цикла, которые зависят от цикла
}

func ToposortKahn(g Graph) *Topo {
	nodeCount := len(g.Edges)
	indeg := make([]int, len(g.Indeg))
	copy(indeg, g.Indeg)

	topo := &Topo{
		Order:   make([]NodeID, 0, nodeCount),
		Batches: make([][]NodeID, 0),
	}

	active := 0
	current := make([]NodeID, 0, nodeCount)
	for i := range nodeCount {
		if !g.Present[i] {
			continue
		}
		active++
		if indeg[i] == 0 {
			current = append(current, nodeID(i))
		}
	}

	visited := 0
	for len(current) > 0 {
		batch := make([]NodeID, len(current))
		copy(batch, current)
		topo.Batches = append(topo.Batches, batch)

		next := make([]NodeID, 0)
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			visited++
			for _, to := range g.Edges[int(id)] {
				indeg[int(to)]--
				if indeg[int(to)] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if visited != active {
		topo.Cyclic = true
		remaining := make([]bool, nodeCount)
		for i := range nodeCount {
			if g.Present[i] && indeg[i] > 0 {
				remaining[i] = true
			}
		}
		onCycle := stronglyConnected(g, remaining)
		for i := range nodeCount {
			if !remaining[i] {
				continue
			}
			if onCycle[i] {
				topo.Cycles = append(topo.Cycles, nodeID(i))
			} else {
				topo.Blocked = append(topo.Blocked, nodeID(i))
			}
		}
	}

	return topo
}

// stronglyConnected marks the nodes of the subgraph that sit on a cycle:
// members of a strongly connected component with more than one node, or
// nodes with a self edge (Tarjan).
func stronglyConnected(g Graph, within []bool) []bool {
	n := len(g.Edges)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	result := make([]bool, n)
	stack := make([]int, 0, n)
	counter := 0

	var visit func(v int)
	visit = func(v int) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, to := range g.Edges[v] {
			w := int(to)
			if !within[w] {
				continue
			}
			if index[w] < 0 {
				visit(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}
		var comp []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		if len(comp) > 1 {
			for _, w := range comp {
				result[w] = true
			}
			return
		}
		if slices.Contains(g.Edges[v], nodeID(v)) {
			result[v] = true
		}
	}

	for v := range n {
		if within[v] && index[v] < 0 {
			visit(v)
		}
	}
	return result
}
