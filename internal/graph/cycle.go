package graph

import (
	"context"
	"fmt"

	"github.com/worktoolai/taskai/internal/model"
)

// HasCycle reports whether the directed graph formed by nodes and edges
// contains a cycle. Used by bulk plan loading to reject a definition
// before any write.
func HasCycle(nodes []string, edges []model.Edge) bool {
	adj := make(adjacency, len(nodes))
	for _, e := range edges {
		adj[e.FromID] = append(adj[e.FromID], e.ToID)
	}
	return adj.hasCycle(nodes)
}

// adjacency maps a task id to the set of its direct successors
// (edges follow the from -> to direction).
type adjacency map[string][]string

// planAdjacency loads the forward adjacency of one plan's dependency
// graph, restricted to committed edges visible to q.
func planAdjacency(ctx context.Context, q querier, planID string) (adjacency, error) {
	rows, err := q.Query(ctx, `
		SELECT e.from_id, e.to_id
		FROM task_edges e
		JOIN tasks t ON t.id = e.from_id
		WHERE t.plan_id = ?
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("load plan edges: %w", err)
	}
	defer rows.Close()

	adj := make(adjacency)
	for rows.Next() {
		var from, to string
		if err := rows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		adj[from] = append(adj[from], to)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return adj, nil
}

// reachable reports whether target can be reached from start following
// forward edges. Used to reject an edge insertion (from, to) when `from`
// is reachable from `to`: the new edge would close a cycle.
func (adj adjacency) reachable(start, target string) bool {
	if start == target {
		return true
	}
	seen := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range adj[node] {
			if next == target {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// hasCycle reports whether the graph contains any cycle, using the
// 3-color DFS. Given the insertion-time reachability check this should
// be unreachable on a healthy store; it backs the resolver's defensive
// check when ordering a whole plan.
func (adj adjacency) hasCycle(nodes []string) bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))

	var visit func(node string) bool
	visit = func(node string) bool {
		color[node] = gray
		for _, next := range adj[node] {
			switch color[next] {
			case gray:
				return true // back edge
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[node] = black
		return false
	}

	for _, node := range nodes {
		if color[node] == white && visit(node) {
			return true
		}
	}
	return false
}
