package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
)

var errQuiescent = errors.New("simulation is quiescent")

// Runner drives a Simulation in real time. Every node steps on its own timer, and all work is
// serialised onto a single goroutine through the dispatch channel.
type Runner struct {
	*state.Env[*Simulation]
	Sim *Simulation
	// StopWhenQuiescent ends Run once the simulation stayed quiescent for QuiescentRounds ticks
	// and no scripted event is left.
	StopWhenQuiescent bool
	StepDelay         time.Duration

	events    []state.EventCfg
	// scheduled holds the nodes with a step task, a removed node keeps its task in case it
	// comes back
	scheduled map[state.NodeId]struct{}
	ticks     int
	quiet     int
	dispatch  chan func(*Simulation) error
	stopping  atomic.Bool
}

func NewRunner(ctx context.Context, sim *Simulation, events []state.EventCfg, log *slog.Logger) *Runner {
	ctx, cancel := context.WithCancelCause(ctx)
	dispatch := make(chan func(*Simulation) error, 128)
	return &Runner{
		Env: &state.Env[*Simulation]{
			DispatchChannel: dispatch,
			Context:         ctx,
			Cancel:          cancel,
			Log:             log,
		},
		Sim:       sim,
		StepDelay: state.StepDelay,
		events:    events,
		scheduled: make(map[state.NodeId]struct{}),
		dispatch:  dispatch,
	}
}

// Ticks returns the number of completed ticks. Must be called from a dispatched function.
func (r *Runner) Ticks() int {
	return r.ticks
}

// Run starts the simulation and blocks until the runner is stopped, the context is cancelled
// or a dispatched function fails.
func (r *Runner) Run() error {
	if err := r.Sim.Start(); err != nil {
		r.Cancel(err)
		return err
	}
	r.Log.Info("runner started", "run", r.Sim.RunId, "delay", r.StepDelay)
	for _, node := range r.Sim.Nodes() {
		r.scheduleNode(node)
	}
	r.RepeatTask(r.tick, r.StepDelay)
	err := r.MainLoop()
	r.Tasks.Wait()
	return err
}

func (r *Runner) scheduleNode(node state.NodeId) {
	if _, ok := r.scheduled[node]; ok {
		return
	}
	r.scheduled[node] = struct{}{}
	r.RepeatTask(func(s *Simulation) error {
		if !s.Topology.HasNode(node) {
			return nil
		}
		_, err := s.Step(node)
		return err
	}, r.StepDelay)
}

func (r *Runner) tick(s *Simulation) error {
	r.ticks++
	for len(r.events) != 0 && r.events[0].Round <= r.ticks {
		event := r.events[0]
		r.events = r.events[1:]
		r.Log.Info("applying event", "event", event.String())
		added, err := ApplyEvent(s, event)
		if err != nil {
			return fmt.Errorf("event %s: %w", event, err)
		}
		if added {
			r.scheduleNode(event.Node)
		}
		r.quiet = 0
	}
	if s.Quiescent() {
		r.quiet++
	} else {
		r.quiet = 0
	}
	if r.StopWhenQuiescent && len(r.events) == 0 && r.quiet >= state.QuiescentRounds {
		r.Log.Info("simulation is quiescent", "ticks", r.ticks)
		r.Cancel(errQuiescent)
	}
	return nil
}

func (r *Runner) MainLoop() error {
	r.Log.Debug("started main loop")
	for {
		select {
		case fun := <-r.dispatch:
			start := time.Now()
			err := fun(r.Sim)
			if err != nil {
				r.Log.Error("error occurred during dispatch: ", "error", err)
				r.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > time.Millisecond*4 {
				r.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(r.dispatch))
			}
		case <-r.Context.Done():
			cause := context.Cause(r.Context)
			r.Log.Info("stopped main loop", "reason", cause.Error())
			r.Stop()
			if errors.Is(cause, errQuiescent) || errors.Is(cause, context.Canceled) {
				return nil
			}
			return cause
		}
	}
}

// Stop cancels the runner. It is safe to call from any goroutine, more than once.
func (r *Runner) Stop() {
	if r.stopping.Swap(true) {
		return
	}
	r.Cancel(context.Canceled)
}

// Do runs fn on the simulation goroutine and waits for it. An error returned by fn stops the
// runner.
func (r *Runner) Do(fn func(s *Simulation) error) error {
	_, err := r.DispatchWait(func(s *Simulation) (any, error) {
		return nil, fn(s)
	})
	return err
}

// ApplyEvent applies a scripted topology event and reports whether it added a node.
func ApplyEvent(s *Simulation, event state.EventCfg) (bool, error) {
	switch event.Kind {
	case state.EventSetCost:
		_, err := s.SetEdgeCost(event.A, event.B, event.Cost)
		return false, err
	case state.EventAddNode:
		_, err := s.AddNode(event.Node, event.Edges)
		return err == nil, err
	case state.EventRemoveNode:
		_, err := s.RemoveNode(event.Node)
		return false, err
	case state.EventPoisonReverse:
		s.SetPoisonReverse(event.Enabled)
		return false, nil
	}
	return false, fmt.Errorf("unknown event kind %q", event.Kind)
}

// Play converges the simulation in lock-step rounds and returns the total number of rounds.
// Each scripted event is applied once its round is reached, or earlier if the simulation
// becomes quiescent first.
func (s *Simulation) Play(events []state.EventCfg, maxRounds int) (int, error) {
	if maxRounds <= 0 {
		maxRounds = state.DefaultMaxRounds
	}
	if err := s.Start(); err != nil {
		return 0, err
	}
	for _, event := range events {
		for s.rounds < event.Round && !s.Quiescent() {
			if s.rounds >= maxRounds {
				return s.rounds, fmt.Errorf("%w after %d rounds", state.ErrNotConverged, maxRounds)
			}
			if _, err := s.Round(); err != nil {
				return s.rounds, err
			}
		}
		s.log.Info("applying event", "event", event.String(), "round", s.rounds)
		if _, err := ApplyEvent(s, event); err != nil {
			return s.rounds, fmt.Errorf("event %s: %w", event, err)
		}
	}
	remaining := maxRounds - s.rounds
	if remaining <= 0 {
		if s.Quiescent() {
			return s.rounds, nil
		}
		return s.rounds, fmt.Errorf("%w after %d rounds", state.ErrNotConverged, maxRounds)
	}
	_, err := s.Converge(remaining)
	return s.rounds, err
}
