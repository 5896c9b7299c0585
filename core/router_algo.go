package core

import (
	"github.com/encodeous/dvsim/state"
)

type RouterEvent int

// trace events

const (
	RouteImproved RouterEvent = iota
	RouteRetracted
	RouteAdded
	RouteSwitched
	PoisonSent
	LinkChanged
	NodeAdded
	NodeRemoved
	MessageDropped
)

// warn events

const (
	InconsistentState RouterEvent = iota + 1000
)

func (e RouterEvent) String() string {
	switch e {
	case RouteImproved:
		return "RouteImproved"
	case RouteRetracted:
		return "RouteRetracted"
	case RouteAdded:
		return "RouteAdded"
	case RouteSwitched:
		return "RouteSwitched"
	case PoisonSent:
		return "PoisonSent"
	case LinkChanged:
		return "LinkChanged"
	case NodeAdded:
		return "NodeAdded"
	case NodeRemoved:
		return "NodeRemoved"
	case MessageDropped:
		return "MessageDropped"
	case InconsistentState:
		return "InconsistentState"
	}
	return "RouterEvent"
}

// Router is the logging port of the routing engine.
type Router interface {
	Log(event RouterEvent, desc string, args ...any)
}

// Links is the part of the topology a node may consult: its own links.
type Links interface {
	Neighbours(node state.NodeId) []state.NodeId
	DirectCost(a, b state.NodeId) state.Cost
}

type RouteCfg struct {
	Infinity      state.Cost
	PoisonReverse bool
}

type CostDelta struct {
	Dest state.NodeId
	Old  state.Cost
	New  state.Cost
}

type HopDelta struct {
	Dest state.NodeId
	Old  state.NodeId
	New  state.NodeId
}

type ComputeResult struct {
	Costs []CostDelta
	Hops  []HopDelta
	// Poison maps an old next hop to the destinations it must be told are unreachable.
	Poison map[state.NodeId][]state.NodeId
	// Consumed holds the link-change records that triggered a poisoned row.
	Consumed []state.LinkChange
}

func (c ComputeResult) Changed() bool {
	return len(c.Costs) != 0 || len(c.Hops) != 0
}

// ComputeRoutes runs one Bellman-Ford step for s: every known destination is re-evaluated
// against the rows of the current neighbours, in lexicographic neighbour order, the first
// neighbour reaching the minimal cost wins.
func ComputeRoutes(s *state.RouterState, links Links, changes *state.LinkChanges, cfg RouteCfg, r Router) ComputeResult {
	res := ComputeResult{
		Poison: make(map[state.NodeId][]state.NodeId),
	}
	neighs := links.Neighbours(s.Id)
	own := s.Table[s.Id]
	triggered := make(map[state.NodeId]bool)

	for _, dest := range s.Destinations() {
		if dest == s.Id {
			continue
		}
		prevCost := own.Get(dest)
		prevHop := s.Routes[dest]

		bestCost := state.INF
		bestHop := state.NoRoute
		for _, neigh := range neighs {
			row, ok := s.Table[neigh]
			if !ok && neigh != dest {
				continue // nothing heard from this neighbour yet
			}
			// Cost(N, K) + Cost(K, D), a neighbour always reaches itself for free
			reported := row.Get(dest)
			if neigh == dest {
				reported = 0
			}
			candidate := state.Cap(state.AddCost(links.DirectCost(s.Id, neigh), reported), cfg.Infinity)
			if candidate < bestCost {
				bestCost = candidate
				bestHop = neigh
			}
		}

		own[dest] = bestCost
		s.Routes[dest] = bestHop

		if prevCost != bestCost {
			res.Costs = append(res.Costs, CostDelta{Dest: dest, Old: prevCost, New: bestCost})
			switch {
			case prevCost.IsInf():
				r.Log(RouteAdded, "route added", "node", s.Id, "dest", dest, "nh", bestHop, "cost", bestCost)
			case bestCost.IsInf():
				r.Log(RouteRetracted, "route retracted", "node", s.Id, "dest", dest, "old", prevCost)
			case bestCost < prevCost:
				r.Log(RouteImproved, "route improved", "node", s.Id, "dest", dest, "old", prevCost, "cost", bestCost)
			}
		}
		if prevHop == bestHop {
			continue
		}
		res.Hops = append(res.Hops, HopDelta{Dest: dest, Old: prevHop, New: bestHop})

		// poison reverse: the switch away from prevHop was caused by a change of the link to it,
		// so prevHop is told that we can no longer reach dest through anyone
		if !cfg.PoisonReverse || prevHop == state.NoRoute || prevHop == s.Id {
			continue
		}
		if _, ok := changes.Pending(s.Id, prevHop); ok {
			r.Log(RouteSwitched, "next hop switched after link change", "node", s.Id, "dest", dest, "old", prevHop, "nh", bestHop)
			res.Poison[prevHop] = append(res.Poison[prevHop], dest)
			triggered[prevHop] = true
		}
	}

	// every record for this node has now been evaluated once
	for _, change := range changes.ConsumeFrom(s.Id) {
		if triggered[change.To] {
			res.Consumed = append(res.Consumed, change)
		}
	}
	return res
}

// PoisonedRow returns a copy of row with every destination in dests set to INF.
func PoisonedRow(row state.Vector, dests []state.NodeId) state.Vector {
	out := row.Clone()
	for _, dest := range dests {
		out[dest] = state.INF
	}
	return out
}
