package task

import (
	"fmt"
	"sort"
)

// TopoSort performs Kahn's algorithm for topological sorting.
func TopoSort(g *Graph) ([]string, error) {
	inDegree := make(map[string]int)
	for id := range g.Nodes {
		inDegree[id] = len(g.RevAdj[id])
	}

	// Start with roots (in-degree 0), sorted for determinism
	var queue []string
	for id := range g.Nodes {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var newReady []string
		for _, succ := range g.Adj[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				newReady = append(newReady, succ)
			}
		}
		sort.Strings(newReady)
		queue = append(queue, newReady...)
	}

	if len(order) != len(g.Nodes) {
		return nil, &CyclicPlanError{Cycle: unsorted(g, order)}
	}

	return order, nil
}

// unsorted returns the node IDs left out of a partial topological order;
// they are the ones involved in (or downstream of) a cycle.
func unsorted(g *Graph, order []string) []string {
	placed := make(map[string]bool, len(order))
	for _, id := range order {
		placed[id] = true
	}
	var rest []string
	for id := range g.Nodes {
		if !placed[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return rest
}

// Waves groups tasks by dependency depth: wave 0 holds the roots, wave n+1
// holds tasks whose deepest prerequisite is in wave n. Members of a wave
// share no edges, so a wave with more than one task is parallelizable, and
// each member's Parallelizable flag is set accordingly.
func Waves(g *Graph) ([]Wave, error) {
	order, err := TopoSort(g)
	if err != nil {
		return nil, err
	}

	depth := make(map[string]int, len(order))
	for _, id := range order {
		d := 0
		for _, pred := range g.RevAdj[id] {
			if depth[pred]+1 > d {
				d = depth[pred] + 1
			}
		}
		depth[id] = d
	}

	byDepth := make(map[int][]string)
	maxDepth := 0
	for _, id := range order {
		d := depth[id]
		byDepth[d] = append(byDepth[d], id)
		if d > maxDepth {
			maxDepth = d
		}
	}

	waves := make([]Wave, 0, maxDepth+1)
	for d := 0; d <= maxDepth; d++ {
		ids := byDepth[d]
		sort.Strings(ids)
		for _, id := range ids {
			g.Nodes[id].Parallelizable = len(ids) > 1
		}
		waves = append(waves, Wave{Index: d, TaskIDs: ids, Parallelizable: len(ids) > 1})
	}

	return waves, nil
}

// WaveOf returns the wave index containing the given task.
func WaveOf(waves []Wave, id string) (int, error) {
	for _, w := range waves {
		for _, tid := range w.TaskIDs {
			if tid == id {
				return w.Index, nil
			}
		}
	}
	return 0, fmt.Errorf("task %q not in any wave", id)
}
