package core

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/encodeous/dvsim/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

type RouterHarness struct {
	actions []HarnessEvent
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	h.actions = append(h.actions, MakeEvent(event.String(), args...))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

func (h *RouterHarness) GetActions() HarnessEvents {
	x := h.actions
	h.actions = make([]HarnessEvent, 0)
	return x
}

// contains matches an event by name whose args include every key/value pair in kv.
func (e HarnessEvents) contains(msg string, kv ...any) bool {
	for _, event := range e {
		if event.Message != msg {
			continue
		}
		match := true
		for i := 0; i+1 < len(kv); i += 2 {
			found := false
			for j := 0; j+1 < len(event.Args); j += 2 {
				if cmp.Equal(event.Args[j], kv[i]) && cmp.Equal(event.Args[j+1], kv[i+1]) {
					found = true
					break
				}
			}
			if !found {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, kv ...any) {
	if e.contains(msg, kv...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", kv, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, kv ...any) {
	if e.contains(msg, kv...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", kv, " in ", e)
	}
}

// MockLinks is a static adjacency used to drive ComputeRoutes without a topology.
type MockLinks map[state.NodeId]map[state.NodeId]state.Cost

func MakeLinks(edges ...state.Edge) MockLinks {
	links := make(MockLinks)
	for _, edge := range edges {
		if links[edge.A] == nil {
			links[edge.A] = make(map[state.NodeId]state.Cost)
		}
		if links[edge.B] == nil {
			links[edge.B] = make(map[state.NodeId]state.Cost)
		}
		links[edge.A][edge.B] = edge.Cost
		links[edge.B][edge.A] = edge.Cost
	}
	return links
}

func (m MockLinks) Neighbours(node state.NodeId) []state.NodeId {
	return slices.Sorted(maps.Keys(m[node]))
}

func (m MockLinks) DirectCost(a, b state.NodeId) state.Cost {
	cost, ok := m[a][b]
	if !ok {
		return state.INF
	}
	return cost
}

func (m MockLinks) Of(node state.NodeId) map[state.NodeId]state.Cost {
	return maps.Clone(m[node])
}

// Receive merges a row from neigh into rs, as if it arrived over the bus.
func Receive(rs *state.RouterState, neigh state.NodeId, row state.Vector) {
	rs.Merge([]state.Message{{From: neigh, To: rs.Id, Vector: row}})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func sampleSim(t *testing.T, poison bool) *Simulation {
	t.Helper()
	cfg := state.SampleTopology()
	cfg.PoisonReverse = poison
	sim, err := NewSimulationFromConfig(&cfg, discardLogger())
	require.NoError(t, err)
	return sim
}

// triangleSim builds A-B (1), B-C (1), A-C (5).
func triangleSim(t *testing.T, poison bool) *Simulation {
	t.Helper()
	return buildTriangle(t, poison, 5, discardLogger())
}

// buildTriangle builds A-B (1), B-C (1), A-C (ac) with infinity 16.
func buildTriangle(t *testing.T, poison bool, ac state.Cost, log *slog.Logger) *Simulation {
	t.Helper()
	sim := NewSimulation(Config{PoisonReverse: poison, Infinity: 16, Log: log})
	for _, id := range []state.NodeId{"A", "B", "C"} {
		_, err := sim.AddNode(id, nil)
		require.NoError(t, err)
	}
	for _, edge := range []state.Edge{{A: "A", B: "B", Cost: 1}, {A: "B", B: "C", Cost: 1}, {A: "A", B: "C", Cost: ac}} {
		_, err := sim.SetEdgeCost(edge.A, edge.B, edge.Cost)
		require.NoError(t, err)
	}
	return sim
}

func assertRoute(t *testing.T, sim *Simulation, node, dest state.NodeId, cost state.Cost, nh state.NodeId) {
	t.Helper()
	c, n, err := sim.Lookup(node, dest)
	require.NoError(t, err)
	require.Equal(t, cost, c, "cost of %s -> %s", node, dest)
	require.Equal(t, nh, n, "next hop of %s -> %s", node, dest)
}

// neighboursOnly fails the test if sim ever sends a vector across a link that does not exist.
func neighboursOnly(t *testing.T, sim *Simulation) {
	t.Helper()
	sim.Subscribe(ObserverFuncs{OnMessageSent: func(msg state.Message) {
		if !sim.Topology.IsNeighbour(msg.From, msg.To) {
			t.Errorf("vector sent to non-neighbour: %s", msg)
		}
	}})
}

func requireOptimal(t *testing.T, sim *Simulation) {
	t.Helper()
	mismatches := sim.Verify()
	require.Empty(t, mismatches, "%v", mismatches)
}
