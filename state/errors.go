package state

import (
	"errors"
	"fmt"
)

var (
	ErrBusOverflow  = errors.New("message bus overflow")
	ErrNotConverged = errors.New("simulation did not converge")
	ErrNotRunning   = errors.New("simulation is not running")
)

type DuplicateNodeError struct {
	Node NodeId
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("node %s already exists", e.Node)
}

type UnknownNodeError struct {
	Node NodeId
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("node %s does not exist", e.Node)
}

// InvalidEdgeCostError is returned for negative or NaN costs and for self loops.
type InvalidEdgeCostError struct {
	A, B NodeId
	Cost Cost
}

func (e *InvalidEdgeCostError) Error() string {
	if e.A == e.B {
		return fmt.Sprintf("invalid edge %s-%s: self loops are not allowed", e.A, e.B)
	}
	return fmt.Sprintf("invalid cost %v for edge %s-%s", float64(e.Cost), e.A, e.B)
}

type UnknownDestinationError struct {
	Node        NodeId
	Destination NodeId
}

func (e *UnknownDestinationError) Error() string {
	return fmt.Sprintf("node %s has never seen destination %s", e.Node, e.Destination)
}
