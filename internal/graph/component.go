package graph

// Components partitions the graph into weakly-connected components,
// treating every edge as undirected for the purpose of reachability. It
// returns a map from node id to component index, and the node ids making up
// each component, largest first.
func (g *RoadGraph) Components() (membership map[NodeID]int, componentsByNode [][]NodeID) {
	undirected := g.undirectedAdjacency()

	membership = make(map[NodeID]int, len(g.nodes))
	var components [][]NodeID

	for id := range g.nodes {
		if _, visited := membership[id]; visited {
			continue
		}

		compIdx := len(components)
		members := g.bfsComponent(id, undirected, membership, compIdx)
		components = append(components, members)
	}

	sortComponentsBySizeDesc(components, membership)

	return membership, components
}

func (g *RoadGraph) undirectedAdjacency() map[NodeID][]NodeID {
	adj := make(map[NodeID][]NodeID, len(g.nodes))
	for from, edges := range g.adjacency {
		for _, e := range edges {
			adj[from] = append(adj[from], e.Target)
			adj[e.Target] = append(adj[e.Target], from)
		}
	}

	return adj
}

func (g *RoadGraph) bfsComponent(start NodeID, undirected map[NodeID][]NodeID, membership map[NodeID]int, compIdx int) []NodeID {
	queue := []NodeID{start}
	membership[start] = compIdx
	members := []NodeID{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, neighbor := range undirected[current] {
			if _, visited := membership[neighbor]; visited {
				continue
			}
			membership[neighbor] = compIdx
			members = append(members, neighbor)
			queue = append(queue, neighbor)
		}
	}

	return members
}

// sortComponentsBySizeDesc reorders components largest-first and rewrites
// membership indices to match, so callers can treat components[0] as the
// largest component (policy A's re-snap target).
func sortComponentsBySizeDesc(components [][]NodeID, membership map[NodeID]int) {
	order := make([]int, len(components))
	for i := range order {
		order[i] = i
	}

	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && len(components[order[j]]) > len(components[order[j-1]]); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	sorted := make([][]NodeID, len(components))
	rank := make([]int, len(components))
	for newIdx, oldIdx := range order {
		sorted[newIdx] = components[oldIdx]
		rank[oldIdx] = newIdx
	}

	for id, oldIdx := range membership {
		membership[id] = rank[oldIdx]
	}

	copy(components, sorted)
}
