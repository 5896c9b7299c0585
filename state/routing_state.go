package state

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// RouterState is the routing state of a single node. It must only be accessed on behalf of
// the node that owns it.
type RouterState struct {
	Id NodeId
	// Table holds the node's own row under Id, and the last vector received from every
	// neighbour under the neighbour's id.
	Table map[NodeId]Vector
	// Routes maps each known destination to its next hop, or NoRoute.
	Routes map[NodeId]NodeId
	// Owed contains the neighbours that were sent a poisoned row and are still owed the real one.
	Owed  map[NodeId]struct{}
	known map[NodeId]struct{}
}

// NewRouterState creates the state of a node that only knows itself and its direct links.
func NewRouterState(id NodeId, links map[NodeId]Cost) *RouterState {
	r := &RouterState{
		Id:     id,
		Table:  map[NodeId]Vector{id: {id: 0}},
		Routes: map[NodeId]NodeId{id: id},
		Owed:   make(map[NodeId]struct{}),
		known:  map[NodeId]struct{}{id: {}},
	}
	for neigh, cost := range links {
		r.Learn(neigh)
		if !cost.IsInf() {
			r.Table[id][neigh] = cost
			r.Routes[neigh] = neigh
		}
	}
	return r
}

// Learn adds dest to the known destination set, widening the own row with an INF entry.
func (r *RouterState) Learn(dest NodeId) bool {
	if _, ok := r.known[dest]; ok {
		return false
	}
	r.known[dest] = struct{}{}
	r.Table[r.Id][dest] = INF
	r.Routes[dest] = NoRoute
	return true
}

// OwnRow returns a copy of the vector this node would advertise.
func (r *RouterState) OwnRow() Vector {
	return r.Table[r.Id].Clone()
}

func (r *RouterState) Row(owner NodeId) (Vector, bool) {
	row, ok := r.Table[owner]
	return row, ok
}

// Merge stores each message's vector as the full row of its sender, and returns the
// destinations that were previously unknown to this node.
func (r *RouterState) Merge(msgs []Message) []NodeId {
	widened := make([]NodeId, 0)
	for _, msg := range msgs {
		if msg.From == r.Id {
			continue
		}
		r.Table[msg.From] = msg.Vector.Clone()
		if r.Learn(msg.From) {
			widened = append(widened, msg.From)
		}
		for dest := range msg.Vector {
			if r.Learn(dest) {
				widened = append(widened, dest)
			}
		}
	}
	slices.Sort(widened)
	return widened
}

// Forget drops the row received from owner.
func (r *RouterState) Forget(owner NodeId) {
	if owner == r.Id {
		return
	}
	delete(r.Table, owner)
	delete(r.Owed, owner)
}

func (r *RouterState) Knows(dest NodeId) bool {
	_, ok := r.known[dest]
	return ok
}

// Destinations returns the known destination set in lexicographic order.
func (r *RouterState) Destinations() []NodeId {
	return slices.Sorted(maps.Keys(r.known))
}

func (r *RouterState) Cost(dest NodeId) (Cost, error) {
	if !r.Knows(dest) {
		return INF, &UnknownDestinationError{Node: r.Id, Destination: dest}
	}
	return r.Table[r.Id].Get(dest), nil
}

func (r *RouterState) NextHop(dest NodeId) (NodeId, error) {
	if !r.Knows(dest) {
		return NoRoute, &UnknownDestinationError{Node: r.Id, Destination: dest}
	}
	return r.Routes[dest], nil
}

// Clone returns a deep copy, used for snapshots.
func (r *RouterState) Clone() *RouterState {
	c := &RouterState{
		Id:     r.Id,
		Table:  make(map[NodeId]Vector, len(r.Table)),
		Routes: maps.Clone(r.Routes),
		Owed:   maps.Clone(r.Owed),
		known:  maps.Clone(r.known),
	}
	for owner, row := range r.Table {
		c.Table[owner] = row.Clone()
	}
	return c
}

func (r *RouterState) StringRoutes() string {
	lines := make([]string, 0)
	for _, dest := range r.Destinations() {
		nh := r.Routes[dest]
		if nh == NoRoute {
			nh = "-"
		}
		lines = append(lines, fmt.Sprintf("%s via %s (cost: %s)", dest, nh, r.Table[r.Id].Get(dest)))
	}
	return strings.Join(lines, "\n")
}

// StringTable renders the distance vector table with one row per row owner, own row first.
func (r *RouterState) StringTable() string {
	dests := r.Destinations()
	sb := strings.Builder{}
	sb.WriteString(string(r.Id))
	for _, dest := range dests {
		sb.WriteString("\t" + string(dest))
	}
	owners := []NodeId{r.Id}
	for _, owner := range slices.Sorted(maps.Keys(r.Table)) {
		if owner != r.Id {
			owners = append(owners, owner)
		}
	}
	for _, owner := range owners {
		sb.WriteString("\n" + string(owner))
		for _, dest := range dests {
			sb.WriteString("\t" + r.Table[owner].Get(dest).String())
		}
	}
	return sb.String()
}
