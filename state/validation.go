package state

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
)

var namePattern, _ = regexp.Compile("^[0-9A-Za-z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func CostValidator(a, b NodeId, c Cost) error {
	if a == b || !ValidCost(c) {
		return &InvalidEdgeCostError{A: a, B: b, Cost: c}
	}
	return nil
}

// TopologyConfigValidator checks a topology before it is loaded into a simulation.
func TopologyConfigValidator(cfg *TopologyCfg) error {
	if len(cfg.Nodes) == 0 {
		return fmt.Errorf("topology has no nodes")
	}
	ids := make([]NodeId, 0, len(cfg.Nodes))
	prefixes := make(map[string]NodeId)
	for _, node := range cfg.Nodes {
		if err := NameValidator(string(node.Id)); err != nil {
			return err
		}
		if slices.Contains(ids, node.Id) {
			return &DuplicateNodeError{Node: node.Id}
		}
		ids = append(ids, node.Id)
		for _, prefix := range node.Prefixes {
			if !prefix.IsValid() {
				return fmt.Errorf("node %s has an invalid prefix", node.Id)
			}
			if owner, ok := prefixes[prefix.Masked().String()]; ok {
				return fmt.Errorf("prefix %s is advertised by both %s and %s", prefix, owner, node.Id)
			}
			prefixes[prefix.Masked().String()] = node.Id
		}
	}
	if !ValidCost(cfg.DefaultCost) || cfg.DefaultCost.IsInf() {
		return fmt.Errorf("default cost %s is invalid", cfg.DefaultCost)
	}
	if cfg.Infinity <= 0 {
		return fmt.Errorf("infinity must be positive, got %s", cfg.Infinity)
	}
	if cfg.MaxPending < 0 {
		return fmt.Errorf("max_pending must not be negative")
	}

	seen := make([]Pair[NodeId, NodeId], 0)
	for _, edge := range cfg.Edges {
		if !slices.Contains(ids, edge.A) {
			return fmt.Errorf("node %s not defined", edge.A)
		}
		if !slices.Contains(ids, edge.B) {
			return fmt.Errorf("node %s not defined", edge.B)
		}
		if err := CostValidator(edge.A, edge.B, edge.Cost); err != nil {
			return err
		}
		key := MakeSortedPair(edge.A, edge.B)
		if slices.Contains(seen, key) {
			return fmt.Errorf("duplicate edge found: %s, %s", edge.A, edge.B)
		}
		seen = append(seen, key)
	}
	if _, err := ParseGraph(cfg.Graph, cfg.NodeIds()); err != nil {
		return err
	}

	for _, event := range cfg.Events {
		if err := eventValidator(event); err != nil {
			return fmt.Errorf("invalid event (%s): %w", event, err)
		}
	}
	return nil
}

func eventValidator(event EventCfg) error {
	if event.Round < 0 {
		return fmt.Errorf("round must not be negative")
	}
	switch event.Kind {
	case EventSetCost:
		if event.A == "" || event.B == "" {
			return fmt.Errorf("set_cost requires a and b")
		}
		return CostValidator(event.A, event.B, event.Cost)
	case EventAddNode:
		if err := NameValidator(string(event.Node)); err != nil {
			return err
		}
		for neigh, cost := range event.Edges {
			if err := CostValidator(event.Node, neigh, cost); err != nil {
				return err
			}
		}
	case EventRemoveNode:
		if event.Node == "" {
			return fmt.Errorf("remove_node requires node")
		}
	case EventPoisonReverse:
	default:
		return fmt.Errorf("unknown event kind %q", event.Kind)
	}
	return nil
}
