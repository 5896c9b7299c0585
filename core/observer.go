package core

import (
	"log/slog"

	"github.com/encodeous/dvsim/state"
)

// Observer receives the state changes of a simulation. Callbacks run synchronously on the
// goroutine driving the simulation and must not call back into it.
type Observer interface {
	// VectorUpdated is called after a step changed the costs of node's own row.
	VectorUpdated(node state.NodeId, deltas []CostDelta)
	// RoutingUpdated is called when node changed some next hops.
	RoutingUpdated(node state.NodeId, deltas []HopDelta)
	// MessageSent is called for every enqueued vector, real or poisoned.
	MessageSent(msg state.Message)
}

// ObserverFuncs adapts optional callbacks to an Observer.
type ObserverFuncs struct {
	OnVectorUpdated  func(node state.NodeId, deltas []CostDelta)
	OnRoutingUpdated func(node state.NodeId, deltas []HopDelta)
	OnMessageSent    func(msg state.Message)
}

func (o ObserverFuncs) VectorUpdated(node state.NodeId, deltas []CostDelta) {
	if o.OnVectorUpdated != nil {
		o.OnVectorUpdated(node, deltas)
	}
}

func (o ObserverFuncs) RoutingUpdated(node state.NodeId, deltas []HopDelta) {
	if o.OnRoutingUpdated != nil {
		o.OnRoutingUpdated(node, deltas)
	}
}

func (o ObserverFuncs) MessageSent(msg state.Message) {
	if o.OnMessageSent != nil {
		o.OnMessageSent(msg)
	}
}

// LogObserver writes every event to a logger at debug level.
type LogObserver struct {
	Log *slog.Logger
}

func (l LogObserver) VectorUpdated(node state.NodeId, deltas []CostDelta) {
	for _, d := range deltas {
		l.Log.Debug("vector updated", "node", node, "dest", d.Dest, "old", d.Old, "new", d.New)
	}
}

func (l LogObserver) RoutingUpdated(node state.NodeId, deltas []HopDelta) {
	for _, d := range deltas {
		l.Log.Debug("routing updated", "node", node, "dest", d.Dest, "old", d.Old, "new", d.New)
	}
}

func (l LogObserver) MessageSent(msg state.Message) {
	l.Log.Debug("message sent", "from", msg.From, "to", msg.To, "t", msg.Timestamp, "poisoned", msg.Poisoned)
}
