package state

import (
	"maps"
	"slices"
)

type Edge struct {
	A, B NodeId
	Cost Cost
}

// Topology is the authoritative graph of the simulation. Edges are undirected, each unordered
// pair holds at most one cost. Topology is not safe for concurrent use.
type Topology struct {
	nodes map[NodeId]struct{}
	edges map[Pair[NodeId, NodeId]]Cost
}

func NewTopology() *Topology {
	return &Topology{
		nodes: make(map[NodeId]struct{}),
		edges: make(map[Pair[NodeId, NodeId]]Cost),
	}
}

func (t *Topology) HasNode(id NodeId) bool {
	_, ok := t.nodes[id]
	return ok
}

// Nodes returns all node ids in lexicographic order.
func (t *Topology) Nodes() []NodeId {
	return slices.Sorted(maps.Keys(t.nodes))
}

// Neighbours returns the nodes joined to node by a finite-cost edge, in lexicographic order.
func (t *Topology) Neighbours(node NodeId) []NodeId {
	neighs := make([]NodeId, 0)
	for pair, cost := range t.edges {
		if cost.IsInf() {
			continue
		}
		if pair.V1 == node {
			neighs = append(neighs, pair.V2)
		} else if pair.V2 == node {
			neighs = append(neighs, pair.V1)
		}
	}
	slices.Sort(neighs)
	return neighs
}

func (t *Topology) IsNeighbour(a, b NodeId) bool {
	return !t.DirectCost(a, b).IsInf()
}

// DirectCost returns the cost of the edge between a and b, or INF if there is none.
func (t *Topology) DirectCost(a, b NodeId) Cost {
	cost, ok := t.edges[MakeSortedPair(a, b)]
	if !ok {
		return INF
	}
	return cost
}

// Edges returns every finite edge sorted by endpoints.
func (t *Topology) Edges() []Edge {
	pairs := slices.Collect(maps.Keys(t.edges))
	SortPairs(pairs)
	edges := make([]Edge, 0, len(pairs))
	for _, pair := range pairs {
		edges = append(edges, Edge{A: pair.V1, B: pair.V2, Cost: t.edges[pair]})
	}
	return edges
}

func (t *Topology) validateEdge(a, b NodeId, cost Cost) error {
	if !t.HasNode(a) {
		return &UnknownNodeError{Node: a}
	}
	if !t.HasNode(b) {
		return &UnknownNodeError{Node: b}
	}
	if a == b || !ValidCost(cost) {
		return &InvalidEdgeCostError{A: a, B: b, Cost: cost}
	}
	return nil
}

// SetEdgeCost replaces the cost of the edge between a and b. Setting INF removes the edge.
// Two link-change records are returned when the cost actually changed.
func (t *Topology) SetEdgeCost(a, b NodeId, cost Cost) ([]LinkChange, error) {
	if err := t.validateEdge(a, b, cost); err != nil {
		return nil, err
	}
	return t.setEdge(a, b, cost), nil
}

func (t *Topology) setEdge(a, b NodeId, cost Cost) []LinkChange {
	old := t.DirectCost(a, b)
	if old == cost {
		return nil
	}
	key := MakeSortedPair(a, b)
	if cost.IsInf() {
		delete(t.edges, key)
	} else {
		t.edges[key] = cost
	}
	return []LinkChange{
		{From: a, To: b, OldCost: old, NewCost: cost},
		{From: b, To: a, OldCost: old, NewCost: cost},
	}
}

// AddNode inserts a node with its initial incident edges. Nothing is modified on error.
func (t *Topology) AddNode(id NodeId, edges map[NodeId]Cost) ([]LinkChange, error) {
	if t.HasNode(id) {
		return nil, &DuplicateNodeError{Node: id}
	}
	for neigh, cost := range edges {
		if !t.HasNode(neigh) {
			return nil, &UnknownNodeError{Node: neigh}
		}
		if neigh == id || !ValidCost(cost) {
			return nil, &InvalidEdgeCostError{A: id, B: neigh, Cost: cost}
		}
	}
	t.nodes[id] = struct{}{}
	changes := make([]LinkChange, 0)
	for _, neigh := range slices.Sorted(maps.Keys(edges)) {
		changes = append(changes, t.setEdge(id, neigh, edges[neigh])...)
	}
	return changes, nil
}

// RemoveNode deletes a node and every incident edge, reporting each lost edge with an INF new cost.
func (t *Topology) RemoveNode(id NodeId) ([]LinkChange, error) {
	if !t.HasNode(id) {
		return nil, &UnknownNodeError{Node: id}
	}
	changes := make([]LinkChange, 0)
	for _, neigh := range t.Neighbours(id) {
		changes = append(changes, t.setEdge(id, neigh, INF)...)
	}
	delete(t.nodes, id)
	return changes, nil
}
