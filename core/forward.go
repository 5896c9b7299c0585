package core

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"

	"github.com/encodeous/dvsim/state"
	"github.com/gaissmai/bart"
)

var (
	ErrNoRoute       = errors.New("no route to destination")
	ErrForwardLoop   = errors.New("forwarding loop detected")
	ErrNoPrefixOwner = errors.New("address is not advertised by any node")
)

type RouteTableEntry struct {
	// Dest is the node that advertises the prefix
	Dest state.NodeId
	Nh   state.NodeId
	Cost state.Cost
}

// ForwardTable builds the longest-prefix-match table of node from its current routes. Only
// destinations with a finite route are installed.
func (s *Simulation) ForwardTable(node state.NodeId) (*bart.Table[RouteTableEntry], error) {
	rs, ok := s.nodes[node]
	if !ok {
		return nil, &state.UnknownNodeError{Node: node}
	}
	tbl := &bart.Table[RouteTableEntry]{}
	for _, dest := range rs.Destinations() {
		cost := rs.Table[node].Get(dest)
		nh := rs.Routes[dest]
		if cost.IsInf() || nh == state.NoRoute {
			continue
		}
		for _, prefix := range s.Prefixes[dest] {
			tbl.Insert(prefix.Masked(), RouteTableEntry{
				Dest: dest,
				Nh:   nh,
				Cost: cost,
			})
		}
	}
	return tbl, nil
}

// Forward returns the entry node uses for addr.
func (s *Simulation) Forward(node state.NodeId, addr netip.Addr) (RouteTableEntry, error) {
	tbl, err := s.ForwardTable(node)
	if err != nil {
		return RouteTableEntry{}, err
	}
	entry, ok := tbl.Lookup(addr)
	if !ok {
		return RouteTableEntry{}, fmt.Errorf("%s at %s: %w", addr, node, ErrNoRoute)
	}
	return entry, nil
}

// Owner returns the node advertising the most specific prefix containing addr.
func (s *Simulation) Owner(addr netip.Addr) (state.NodeId, error) {
	tbl := &bart.Table[state.NodeId]{}
	for node, prefixes := range s.Prefixes {
		for _, prefix := range prefixes {
			tbl.Insert(prefix.Masked(), node)
		}
	}
	node, ok := tbl.Lookup(addr)
	if !ok {
		return state.NoRoute, fmt.Errorf("%s: %w", addr, ErrNoPrefixOwner)
	}
	return node, nil
}

// Trace follows next hops from src hop by hop, as a packet for addr would travel, and returns
// the visited nodes including src and the owner of addr.
func (s *Simulation) Trace(src state.NodeId, addr netip.Addr) ([]state.NodeId, error) {
	owner, err := s.Owner(addr)
	if err != nil {
		return nil, err
	}
	path := []state.NodeId{src}
	cur := src
	for cur != owner {
		entry, err := s.Forward(cur, addr)
		if err != nil {
			return path, err
		}
		if slices.Contains(path, entry.Nh) {
			return append(path, entry.Nh), fmt.Errorf("%v: %w", append(path, entry.Nh), ErrForwardLoop)
		}
		path = append(path, entry.Nh)
		cur = entry.Nh
	}
	return path, nil
}
