package state

import (
	"fmt"
	"maps"
	"net/netip"
	"slices"
	"strings"
)

type NodeCfg struct {
	Id       NodeId
	Prefixes []netip.Prefix `yaml:",omitempty"`
}

type EdgeCfg struct {
	A    NodeId `yaml:"a"`
	B    NodeId `yaml:"b"`
	Cost Cost   `yaml:"cost"`
}

type EventKind string

const (
	EventSetCost       EventKind = "set_cost"
	EventAddNode       EventKind = "add_node"
	EventRemoveNode    EventKind = "remove_node"
	EventPoisonReverse EventKind = "poison_reverse"
)

// EventCfg is a topology mutation applied once the simulation has completed Round rounds.
type EventCfg struct {
	Round   int             `yaml:"round"`
	Kind    EventKind       `yaml:"kind"`
	A       NodeId          `yaml:"a,omitempty"`
	B       NodeId          `yaml:"b,omitempty"`
	Cost    Cost            `yaml:"cost,omitempty"`
	Node    NodeId          `yaml:"node,omitempty"`
	Edges   map[NodeId]Cost `yaml:"edges,omitempty"`
	Enabled bool            `yaml:"enabled,omitempty"`
}

func (e EventCfg) String() string {
	switch e.Kind {
	case EventSetCost:
		return fmt.Sprintf("round %d: set %s-%s to %s", e.Round, e.A, e.B, e.Cost)
	case EventAddNode:
		return fmt.Sprintf("round %d: add %s %v", e.Round, e.Node, e.Edges)
	case EventRemoveNode:
		return fmt.Sprintf("round %d: remove %s", e.Round, e.Node)
	case EventPoisonReverse:
		return fmt.Sprintf("round %d: poison reverse %v", e.Round, e.Enabled)
	}
	return fmt.Sprintf("round %d: %s", e.Round, e.Kind)
}

// TopologyCfg describes a simulated network.
type TopologyCfg struct {
	Nodes []NodeCfg
	// Graph uses the group syntax of ParseGraph, every pair it yields costs DefaultCost
	Graph []string `yaml:",omitempty"`
	// Edges set explicit costs, overriding pairs from Graph
	Edges         []EdgeCfg  `yaml:",omitempty"`
	DefaultCost   Cost       `yaml:"default_cost,omitempty"`
	Infinity      Cost       `yaml:"infinity,omitempty"`
	PoisonReverse bool       `yaml:"poison_reverse,omitempty"`
	MaxPending    int        `yaml:"max_pending,omitempty"`
	Events        []EventCfg `yaml:",omitempty"`
}

func (c *TopologyCfg) NodeIds() []string {
	ids := make([]string, 0, len(c.Nodes))
	for _, node := range c.Nodes {
		ids = append(ids, string(node.Id))
	}
	return ids
}

func (c *TopologyCfg) GetNode(id NodeId) *NodeCfg {
	idx := slices.IndexFunc(c.Nodes, func(cfg NodeCfg) bool {
		return cfg.Id == id
	})
	if idx == -1 {
		return nil
	}
	return &c.Nodes[idx]
}

// ResolveEdges expands Graph and merges it with Edges.
func (c *TopologyCfg) ResolveEdges() ([]Edge, error) {
	pairs, err := ParseGraph(c.Graph, c.NodeIds())
	if err != nil {
		return nil, err
	}
	costs := make(map[Pair[NodeId, NodeId]]Cost)
	for _, pair := range pairs {
		costs[pair] = c.DefaultCost
	}
	for _, edge := range c.Edges {
		costs[MakeSortedPair(edge.A, edge.B)] = edge.Cost
	}
	keys := make([]Pair[NodeId, NodeId], 0, len(costs))
	for k := range costs {
		keys = append(keys, k)
	}
	SortPairs(keys)
	edges := make([]Edge, 0, len(keys))
	for _, k := range keys {
		edges = append(edges, Edge{A: k.V1, B: k.V2, Cost: costs[k]})
	}
	return edges, nil
}

// ExpandTopologyConfig fills in defaults.
func ExpandTopologyConfig(cfg *TopologyCfg) {
	if cfg.DefaultCost == 0 {
		cfg.DefaultCost = DefaultCost
	}
	if cfg.Infinity == 0 {
		cfg.Infinity = DefaultInfinity
	}
	slices.SortStableFunc(cfg.Events, func(a, b EventCfg) int {
		return a.Round - b.Round
	})
}

// SampleTopology returns the seven node reference network.
func SampleTopology() TopologyCfg {
	cfg := TopologyCfg{
		DefaultCost:   DefaultCost,
		Infinity:      DefaultInfinity,
		PoisonReverse: true,
	}
	for _, id := range []NodeId{"A", "B", "C", "D", "E", "F", "G"} {
		cfg.Nodes = append(cfg.Nodes, NodeCfg{Id: id})
	}
	cfg.Edges = []EdgeCfg{
		{"A", "B", 3}, {"A", "C", 1}, {"A", "D", 2},
		{"B", "E", 3}, {"B", "F", 1},
		{"C", "G", 2}, {"D", "G", 3},
		{"E", "G", 1}, {"F", "G", 2},
	}
	return cfg
}

// splitSymbols parses a comma separated list of nodes and groups. Blank entries are skipped,
// the result is sorted.
func splitSymbols(list string, known func(string) bool) ([]string, error) {
	out := make([]string, 0)
	for _, field := range strings.Split(list, ",") {
		sym := strings.TrimSpace(field)
		if sym == "" {
			continue
		}
		if !known(sym) {
			return nil, fmt.Errorf(`%s is not a valid node/group`, sym)
		}
		out = append(out, sym)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf(`node/group list must not be empty`)
	}
	slices.Sort(out)
	return out, nil
}

type graphLine struct {
	// group is empty for a link line
	group string
	list  string
}

/*
ParseGraph expands the graph group syntax into a set of node pairs:

core = A, B, C

edge = D, E

core, edge // every node of core is linked to every node of edge, but not within the groups

core, core // every node of core is linked to every other node of core

F, G // F and G are linked

Groups may contain other groups, and may be used before they are defined. nodes is the set
of terminal node ids the groups evaluate down to.
*/
func ParseGraph(graph []string, nodes []string) ([]Pair[NodeId, NodeId], error) {
	isNode := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		isNode[node] = true
	}

	// group names are needed before any list can be checked
	lines := make([]graphLine, 0, len(graph))
	defined := make(map[string]bool)
	for _, raw := range graph {
		raw = strings.TrimSpace(raw)
		name, list, isDef := strings.Cut(raw, "=")
		if !isDef {
			lines = append(lines, graphLine{list: raw})
			continue
		}
		if strings.Contains(list, "=") {
			return nil, fmt.Errorf("invalid graph: %s. group definition must contain one '='", raw)
		}
		name = strings.TrimSpace(name)
		if isNode[name] {
			return nil, fmt.Errorf("group name must not be a node name: %s", name)
		}
		if defined[name] {
			return nil, fmt.Errorf("duplicate group name: %s", name)
		}
		defined[name] = true
		lines = append(lines, graphLine{group: name, list: list})
	}
	known := func(sym string) bool {
		return isNode[sym] || defined[sym]
	}

	groups := make(map[string][]string)
	links := make([]Pair[string, string], 0)
	for _, line := range lines {
		syms, err := splitSymbols(line.list, known)
		if err != nil {
			return nil, err
		}
		if line.group != "" {
			groups[line.group] = syms
			continue
		}
		if len(syms) < 2 {
			return nil, fmt.Errorf("invalid pairing, %v", syms)
		}
		for i := range syms {
			for j := i + 1; j < len(syms); j++ {
				links = append(links, Pair[string, string]{syms[i], syms[j]})
			}
		}
	}

	resolved := make(map[string][]NodeId)
	var expand func(sym string, path []string) ([]NodeId, error)
	expand = func(sym string, path []string) ([]NodeId, error) {
		if isNode[sym] {
			return []NodeId{NodeId(sym)}, nil
		}
		if members, ok := resolved[sym]; ok {
			return members, nil
		}
		if idx := slices.Index(path, sym); idx != -1 {
			cycle := slices.Clone(path[idx:])
			slices.Sort(cycle)
			return nil, fmt.Errorf("cycle detected in graph: %v", cycle)
		}
		path = append(path, sym)
		members := make([]NodeId, 0)
		for _, member := range groups[sym] {
			sub, err := expand(member, path)
			if err != nil {
				return nil, err
			}
			members = append(members, sub...)
		}
		slices.Sort(members)
		members = slices.Compact(members)
		resolved[sym] = members
		return members, nil
	}
	// unused groups are still checked for cycles
	for _, group := range slices.Sorted(maps.Keys(groups)) {
		if _, err := expand(group, nil); err != nil {
			return nil, err
		}
	}

	pairs := make([]Pair[NodeId, NodeId], 0)
	for _, link := range links {
		left, _ := expand(link.V1, nil)
		right, _ := expand(link.V2, nil)
		for _, x := range left {
			for _, y := range right {
				if x != y {
					pairs = append(pairs, MakeSortedPair(x, y))
				}
			}
		}
	}
	SortPairs(pairs)
	return slices.Compact(pairs), nil
}
