package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/encodeous/dvsim/state"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Mismatch is a disagreement between a node's table and the shortest path oracle, or a
// violated routing invariant.
type Mismatch struct {
	Node     state.NodeId
	Dest     state.NodeId
	Expected state.Cost
	Actual   state.Cost
	Reason   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s -> %s: %s (expected %s, got %s)", m.Node, m.Dest, m.Reason, m.Expected, m.Actual)
}

// buildGraph converts the topology into a gonum graph, node ids map to their sorted index.
func buildGraph(t *state.Topology) (graph.Graph, map[state.NodeId]int64) {
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	ids := make(map[state.NodeId]int64)
	for i, node := range t.Nodes() {
		ids[node] = int64(i)
		g.AddNode(simple.Node(i))
	}
	for _, edge := range t.Edges() {
		if edge.Cost.IsInf() {
			continue
		}
		g.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(ids[edge.A]),
			T: simple.Node(ids[edge.B]),
			W: float64(edge.Cost),
		})
	}
	return g, ids
}

// ShortestPaths computes the all-pairs shortest path costs of the topology, capped at
// infinity.
func ShortestPaths(t *state.Topology, infinity state.Cost) map[state.NodeId]map[state.NodeId]state.Cost {
	g, ids := buildGraph(t)
	out := make(map[state.NodeId]map[state.NodeId]state.Cost, len(ids))
	for _, src := range t.Nodes() {
		spt := path.DijkstraFrom(simple.Node(ids[src]), g)
		out[src] = make(map[state.NodeId]state.Cost, len(ids))
		for _, dst := range t.Nodes() {
			out[src][dst] = state.Cap(state.Cost(spt.WeightTo(ids[dst])), infinity)
		}
	}
	return out
}

// Verify compares every node's converged table against the shortest path oracle and checks
// that every next hop is consistent with the neighbour's advertised cost. It returns nil
// if nothing disagrees.
func (s *Simulation) Verify() []Mismatch {
	oracle := ShortestPaths(s.Topology, s.infinity)
	mismatches := make([]Mismatch, 0)
	for _, node := range s.Nodes() {
		rs := s.nodes[node]
		if c := rs.Table[node].Get(node); c != 0 {
			mismatches = append(mismatches, Mismatch{node, node, 0, c, "self cost is not zero"})
		}
		for _, dest := range s.Nodes() {
			if dest == node {
				continue
			}
			expected := oracle[node][dest]
			actual, err := rs.Cost(dest)
			var unknown *state.UnknownDestinationError
			if errors.As(err, &unknown) {
				if !expected.IsInf() {
					mismatches = append(mismatches, Mismatch{node, dest, expected, state.INF, "destination unknown"})
				}
				continue
			}
			if actual != expected {
				mismatches = append(mismatches, Mismatch{node, dest, expected, actual, "cost differs from shortest path"})
				continue
			}
			nh := rs.Routes[dest]
			if actual.IsInf() {
				if nh != state.NoRoute {
					mismatches = append(mismatches, Mismatch{node, dest, expected, actual, fmt.Sprintf("unreachable destination routed via %s", nh)})
				}
				continue
			}
			if !s.Topology.IsNeighbour(node, nh) {
				mismatches = append(mismatches, Mismatch{node, dest, expected, actual, fmt.Sprintf("next hop %s is not a neighbour", nh)})
				continue
			}
			via := state.AddCost(s.Topology.DirectCost(node, nh), oracle[nh][dest])
			if nh == dest {
				via = s.Topology.DirectCost(node, nh)
			}
			if via != actual {
				mismatches = append(mismatches, Mismatch{node, dest, expected, via, fmt.Sprintf("next hop %s does not lie on a shortest path", nh)})
			}
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return mismatches
}
