package dag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildGraph(t *testing.T, ids []string, edges [][2]string) *Graph {
	t.Helper()
	g := New()
	for _, id := range ids {
		_, err := g.AddNode(id)
		require.NoError(t, err)
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e[0], e[1]))
	}
	return g
}

func TestTopologicalSortOrdersByLevel(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}})
	require.NoError(t, g.TopologicalSort())
	require.Equal(t, [][]string{{"A"}, {"B"}, {"C"}}, g.Levels)
}

func TestTopologicalSortDetectsCycle(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []string{"A", "B"}, [][2]string{{"A", "B"}, {"B", "A"}})
	err := g.TopologicalSort()
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle")
}

func TestAddNodeRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	g := New()
	_, err := g.AddNode("A")
	require.NoError(t, err)
	_, err = g.AddNode("A")
	require.Error(t, err)
}

func TestAddEdgeRejectsUnknownNodes(t *testing.T) {
	t.Parallel()

	g := New()
	_, _ = g.AddNode("A")
	require.Error(t, g.AddEdge("missing", "A"))
	require.Error(t, g.AddEdge("A", "missing"))
}

func TestStableOrderBreaksTiesByAuthoredOrder(t *testing.T) {
	t.Parallel()

	// B and C both depend only on A; authored order lists C before B.
	g := buildGraph(t, []string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"A", "C"}})
	order, err := g.StableOrder([]string{"A", "C", "B"})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "C", "B"}, order)
}

func TestStableOrderDetectsCycle(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []string{"A", "B"}, [][2]string{{"A", "B"}, {"B", "A"}})
	_, err := g.StableOrder([]string{"A", "B"})
	require.Error(t, err)
}
