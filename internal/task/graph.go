// Package task models decomposed work as a dependency DAG and computes the
// parallel execution waves over it.
package task

import (
	"fmt"
	"sort"
)

// CyclicPlanError reports a dependency cycle in a decomposed plan. A cycle
// is always a decomposition bug, never an expected runtime condition, so it
// is fatal: the plan must not be partially executed.
type CyclicPlanError struct {
	Cycle []string // the cycle in forward order
}

func (e *CyclicPlanError) Error() string {
	return fmt.Sprintf("plan contains a dependency cycle: %v", e.Cycle)
}

// Build constructs a Graph from nodes, wiring edges from each node's
// DependsOn set. Edges referencing unknown node IDs are rejected; a cycle
// yields a CyclicPlanError.
func Build(nodes []*Node) (*Graph, error) {
	g := &Graph{
		Nodes:  make(map[string]*Node),
		Adj:    make(map[string][]string),
		RevAdj: make(map[string][]string),
	}

	for _, n := range nodes {
		if _, dup := g.Nodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate task id %q", n.ID)
		}
		g.Nodes[n.ID] = n
	}

	edgeSet := make(map[[2]string]bool)
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			if _, ok := g.Nodes[dep]; !ok {
				return nil, fmt.Errorf("task %q depends on unknown task %q", n.ID, dep)
			}
			key := [2]string{dep, n.ID}
			if edgeSet[key] {
				continue
			}
			edgeSet[key] = true
			g.Adj[dep] = append(g.Adj[dep], n.ID)
			g.RevAdj[n.ID] = append(g.RevAdj[n.ID], dep)
		}
	}

	// Sort adjacency lists for deterministic ordering
	for k := range g.Adj {
		sort.Strings(g.Adj[k])
	}
	for k := range g.RevAdj {
		sort.Strings(g.RevAdj[k])
	}

	for id := range g.Nodes {
		if len(g.RevAdj[id]) == 0 {
			g.Roots = append(g.Roots, id)
		}
		if len(g.Adj[id]) == 0 {
			g.Leaves = append(g.Leaves, id)
		}
	}
	sort.Strings(g.Roots)
	sort.Strings(g.Leaves)

	if cycle := g.DetectCycle(); cycle != nil {
		return nil, &CyclicPlanError{Cycle: cycle}
	}

	return g, nil
}

// DetectCycle returns the cycle path if one exists, or nil if the graph is
// acyclic. Uses DFS with coloring: white (unvisited), gray (in progress),
// black (done).
func (g *Graph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, next := range g.Adj[node] {
			if color[next] == gray {
				// Found a cycle — reconstruct it
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				// Reverse to get forward order
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	// Sort keys for deterministic detection
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// TaskCount returns the number of nodes in the graph.
func (g *Graph) TaskCount() int {
	return len(g.Nodes)
}
