package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/worktoolai/taskai/internal/model"
)

func edge(from, to string) model.Edge {
	return model.Edge{FromID: from, ToID: to}
}

func TestHasCycle(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges []model.Edge
		want  bool
	}{
		{
			name:  "empty graph",
			nodes: nil,
		},
		{
			name:  "no edges",
			nodes: []string{"a", "b", "c"},
		},
		{
			name:  "chain",
			nodes: []string{"a", "b", "c"},
			edges: []model.Edge{edge("a", "b"), edge("b", "c")},
		},
		{
			name:  "diamond",
			nodes: []string{"a", "b", "c", "d"},
			edges: []model.Edge{
				edge("a", "b"), edge("a", "c"),
				edge("b", "d"), edge("c", "d"),
			},
		},
		{
			name:  "self loop",
			nodes: []string{"a"},
			edges: []model.Edge{edge("a", "a")},
			want:  true,
		},
		{
			name:  "two cycle",
			nodes: []string{"a", "b"},
			edges: []model.Edge{edge("a", "b"), edge("b", "a")},
			want:  true,
		},
		{
			name:  "cycle in disconnected component",
			nodes: []string{"a", "b", "c", "d"},
			edges: []model.Edge{
				edge("a", "b"),
				edge("c", "d"), edge("d", "c"),
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasCycle(tt.nodes, tt.edges))
		})
	}
}

func TestReachable(t *testing.T) {
	adj := adjacency{
		"a": {"b"},
		"b": {"c", "d"},
		"d": {"e"},
	}

	assert.True(t, adj.reachable("a", "e"))
	assert.True(t, adj.reachable("a", "a"))
	assert.False(t, adj.reachable("e", "a"))
	assert.False(t, adj.reachable("c", "d"))
}
