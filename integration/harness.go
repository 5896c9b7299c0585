//go:build integration

package integration

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"time"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
	"github.com/encodeous/tint"
)

type Signal chan bool

func NewSignal() Signal {
	return make(chan bool)
}
func (s Signal) Trigger() {
	select {
	case <-s:
	default:
		close(s)
	}
}
func (s Signal) Triggered() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}
func (s Signal) Wait() {
	<-s
}

// VirtualHarness runs a topology in real time on a Runner, and lets tests poke at it while
// it is running.
type VirtualHarness struct {
	Topology  state.TopologyCfg
	Context   context.Context
	Cancel    context.CancelCauseFunc
	Sim       *core.Simulation
	Runner    *core.Runner
	StepDelay time.Duration
	Quiet     bool

	finished Signal
}

func (v *VirtualHarness) NewNode(id state.NodeId, virtPrefix string) {
	ncfg := state.NodeCfg{Id: id}
	if virtPrefix != "" {
		ncfg.Prefixes = []netip.Prefix{netip.MustParsePrefix(virtPrefix)}
	}
	v.Topology.Nodes = append(v.Topology.Nodes, ncfg)
}

func (v *VirtualHarness) AddLink(a, b state.NodeId, cost state.Cost) {
	v.Topology.Edges = append(v.Topology.Edges, state.EdgeCfg{A: a, B: b, Cost: cost})
}

func (v *VirtualHarness) logger() *slog.Logger {
	if v.Quiet {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:        slog.LevelDebug,
		CustomPrefix: "harness",
	}))
}

func (v *VirtualHarness) Start() chan error {
	ctx, cancel := context.WithCancelCause(context.Background())
	v.Context = ctx
	v.Cancel = cancel
	errChan := make(chan error, 128) // a large number so we dont get blocked
	v.finished = NewSignal()

	state.ExpandTopologyConfig(&v.Topology)
	if err := state.TopologyConfigValidator(&v.Topology); err != nil {
		errChan <- err
		close(errChan)
		v.finished.Trigger()
		return errChan
	}
	logger := v.logger()
	sim, err := core.NewSimulationFromConfig(&v.Topology, logger)
	if err != nil {
		errChan <- err
		close(errChan)
		v.finished.Trigger()
		return errChan
	}
	v.Sim = sim
	v.Runner = core.NewRunner(ctx, sim, v.Topology.Events, logger)
	if v.StepDelay != 0 {
		v.Runner.StepDelay = v.StepDelay
	}
	go func() {
		if err := v.Runner.Run(); err != nil {
			errChan <- err
		}
		close(errChan)
		v.finished.Trigger()
	}()
	return errChan
}

// Do runs fn on the simulation goroutine.
func (v *VirtualHarness) Do(fn func(s *core.Simulation) error) error {
	return v.Runner.Do(fn)
}

// WaitQuiescent polls until nothing is in flight, or the timeout elapses.
func (v *VirtualHarness) WaitQuiescent(timeout time.Duration) error {
	deadline := time.After(timeout)
	for {
		quiet := false
		err := v.Do(func(s *core.Simulation) error {
			quiet = s.Quiescent()
			return nil
		})
		if err != nil {
			return err
		}
		if quiet {
			return nil
		}
		select {
		case <-deadline:
			return fmt.Errorf("not quiescent after %v", timeout)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (v *VirtualHarness) Trace(src state.NodeId, addr string) ([]state.NodeId, error) {
	var path []state.NodeId
	var traceErr error
	err := v.Do(func(s *core.Simulation) error {
		path, traceErr = s.Trace(src, netip.MustParseAddr(addr))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return path, traceErr
}

func (v *VirtualHarness) Stop() {
	println("Stopping VirtualHarness")
	if v.Runner != nil {
		v.Runner.Stop()
	}
	v.finished.Wait()
	v.Cancel(fmt.Errorf("stopping harness"))
	println("Stopped VirtualHarness")
}
