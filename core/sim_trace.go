package core

import (
	"fmt"
	"io"

	"github.com/dustin/go-broadcast"
	"github.com/encodeous/dvsim/state"
)

type TraceKind int

const (
	TraceVector TraceKind = iota
	TraceRouting
	TraceMessage
)

// TraceEvent is a single observer callback, as delivered to EventStream subscribers.
type TraceEvent struct {
	Kind    TraceKind
	Node    state.NodeId
	Costs   []CostDelta
	Hops    []HopDelta
	Message state.Message
}

func (e TraceEvent) String() string {
	switch e.Kind {
	case TraceVector:
		return fmt.Sprintf("vector  %s %v", e.Node, e.Costs)
	case TraceRouting:
		return fmt.Sprintf("routing %s %v", e.Node, e.Hops)
	}
	return fmt.Sprintf("sent    %s", e.Message)
}

// EventStream is an Observer that fans events out to any number of channel subscribers.
// Slow subscribers do not block the simulation: events are dropped once the buffer is full.
type EventStream struct {
	broadcast.Broadcaster
}

func NewEventStream(buflen int) *EventStream {
	return &EventStream{
		Broadcaster: broadcast.NewBroadcaster(buflen),
	}
}

func (e *EventStream) VectorUpdated(node state.NodeId, deltas []CostDelta) {
	e.TrySubmit(TraceEvent{Kind: TraceVector, Node: node, Costs: deltas})
}

func (e *EventStream) RoutingUpdated(node state.NodeId, deltas []HopDelta) {
	e.TrySubmit(TraceEvent{Kind: TraceRouting, Node: node, Hops: deltas})
}

func (e *EventStream) MessageSent(msg state.Message) {
	e.TrySubmit(TraceEvent{Kind: TraceMessage, Node: msg.From, Message: msg})
}

type traceFlush struct{}

// TraceTo subscribes a new EventStream to sim and writes every event it delivers to w from a
// separate goroutine. The returned function waits for everything submitted so far to be
// written, then stops the writer.
func TraceTo(sim *Simulation, w io.Writer, buflen int) func() {
	stream := NewEventStream(buflen)
	events := make(chan interface{}, buflen)
	stream.Register(events)
	sim.Subscribe(stream)

	flushed := make(chan struct{})
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		writing := true
		for {
			select {
			case ev := <-events:
				if _, ok := ev.(traceFlush); ok {
					writing = false
					close(flushed)
				} else if writing {
					fmt.Fprintln(w, ev)
				}
			case <-stop:
				return
			}
		}
	}()
	return func() {
		stream.Submit(traceFlush{})
		<-flushed
		// keep draining until the broadcaster lets go of events
		stream.Unregister(events)
		close(stop)
		<-done
		_ = stream.Close()
	}
}
