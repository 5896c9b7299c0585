package core

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/netip"
	"slices"
	"sync"
	"time"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
	"github.com/google/uuid"
)

type Phase int

const (
	Idle Phase = iota
	Running
)

func (p Phase) String() string {
	if p == Running {
		return "running"
	}
	return "idle"
}

type Config struct {
	Infinity      state.Cost
	PoisonReverse bool
	// MaxPending bounds the message bus, 0 means unbounded
	MaxPending    int
	LinkChangeTTL time.Duration
	Log           *slog.Logger
}

// Simulation drives the distance-vector protocol over a topology. All durable state is
// consistent between calls. Simulation is not safe for concurrent use, see Runner.
type Simulation struct {
	RunId    uuid.UUID
	Topology *state.Topology
	Bus      *state.MessageBus
	Changes  *state.LinkChanges
	Prefixes map[state.NodeId][]netip.Prefix

	nodes         map[state.NodeId]*state.RouterState
	phase         Phase
	rounds        int
	infinity      state.Cost
	poisonReverse bool
	log           *slog.Logger

	mu        sync.RWMutex
	observers []Observer
}

type StepResult struct {
	Node     state.NodeId
	Received int
	Widened  []state.NodeId
	Costs    []CostDelta
	Hops     []HopDelta
	Sent     []state.Message
}

func (r StepResult) Changed() bool {
	return len(r.Costs) != 0 || len(r.Hops) != 0
}

func NewSimulation(cfg Config) *Simulation {
	if cfg.Infinity <= 0 {
		cfg.Infinity = state.DefaultInfinity
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.LinkChangeTTL == 0 {
		cfg.LinkChangeTTL = state.LinkChangeTTL
	}
	return &Simulation{
		RunId:         uuid.New(),
		Topology:      state.NewTopology(),
		Bus:           state.NewMessageBus(cfg.MaxPending),
		Changes:       state.NewLinkChanges(cfg.LinkChangeTTL),
		Prefixes:      make(map[state.NodeId][]netip.Prefix),
		nodes:         make(map[state.NodeId]*state.RouterState),
		infinity:      cfg.Infinity,
		poisonReverse: cfg.PoisonReverse,
		log:           cfg.Log,
	}
}

// NewSimulationFromConfig builds an idle simulation from a validated topology.
func NewSimulationFromConfig(cfg *state.TopologyCfg, log *slog.Logger) (*Simulation, error) {
	s := NewSimulation(Config{
		Infinity:      cfg.Infinity,
		PoisonReverse: cfg.PoisonReverse,
		MaxPending:    cfg.MaxPending,
		Log:           log,
	})
	for _, node := range cfg.Nodes {
		if _, err := s.AddNode(node.Id, nil); err != nil {
			return nil, err
		}
		s.Prefixes[node.Id] = slices.Clone(node.Prefixes)
	}
	edges, err := cfg.ResolveEdges()
	if err != nil {
		return nil, err
	}
	for _, edge := range edges {
		if _, err := s.SetEdgeCost(edge.A, edge.B, edge.Cost); err != nil {
			return nil, fmt.Errorf("edge %s-%s: %w", edge.A, edge.B, err)
		}
	}
	return s, nil
}

func (s *Simulation) Log(event RouterEvent, desc string, args ...any) {
	if event >= InconsistentState {
		s.log.Warn(fmt.Sprintf("%s %s", event.String(), desc), args...)
		return
	}
	s.log.Debug(fmt.Sprintf("%s %s", event.String(), desc), args...)
}

func (s *Simulation) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *Simulation) notify(fn func(o Observer)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.observers {
		fn(o)
	}
}

func (s *Simulation) Phase() Phase {
	return s.phase
}

// Rounds returns the number of completed rounds since Start.
func (s *Simulation) Rounds() int {
	return s.rounds
}

func (s *Simulation) PoisonReverse() bool {
	return s.poisonReverse
}

// SetPoisonReverse toggles poison reverse for every future step.
func (s *Simulation) SetPoisonReverse(enabled bool) {
	s.poisonReverse = enabled
}

func (s *Simulation) Infinity() state.Cost {
	return s.infinity
}

func (s *Simulation) Nodes() []state.NodeId {
	return s.Topology.Nodes()
}

// State returns a copy of the routing state of node.
func (s *Simulation) State(node state.NodeId) (*state.RouterState, error) {
	rs, ok := s.nodes[node]
	if !ok {
		return nil, &state.UnknownNodeError{Node: node}
	}
	return rs.Clone(), nil
}

// Snapshot copies the routing state of every node.
func (s *Simulation) Snapshot() map[state.NodeId]*state.RouterState {
	out := make(map[state.NodeId]*state.RouterState, len(s.nodes))
	for id, rs := range s.nodes {
		out[id] = rs.Clone()
	}
	return out
}

// Lookup returns the cost and next hop node uses for dest. A destination the node has never
// heard of is reported as UnknownDestinationError.
func (s *Simulation) Lookup(node, dest state.NodeId) (state.Cost, state.NodeId, error) {
	rs, ok := s.nodes[node]
	if !ok {
		return state.INF, state.NoRoute, &state.UnknownNodeError{Node: node}
	}
	cost, err := rs.Cost(dest)
	if err != nil {
		return state.INF, state.NoRoute, err
	}
	nh, _ := rs.NextHop(dest)
	return cost, nh, nil
}

func (s *Simulation) links(node state.NodeId) map[state.NodeId]state.Cost {
	links := make(map[state.NodeId]state.Cost)
	for _, neigh := range s.Topology.Neighbours(node) {
		links[neigh] = s.Topology.DirectCost(node, neigh)
	}
	return links
}

func (s *Simulation) routeCfg() RouteCfg {
	return RouteCfg{
		Infinity:      s.infinity,
		PoisonReverse: s.poisonReverse,
	}
}

// Start runs the initial round: every node, in order, broadcasts its own row to its neighbours.
func (s *Simulation) Start() error {
	if s.phase == Running {
		return nil
	}
	s.phase = Running
	s.rounds = 0
	s.log.Info("starting simulation", "run", s.RunId, "nodes", len(s.nodes), "poison_reverse", s.poisonReverse)
	for _, node := range s.Nodes() {
		rs := s.nodes[node]
		for _, neigh := range s.Topology.Neighbours(node) {
			if _, err := s.send(rs.OwnRow(), node, neigh, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reset discards every message and all learned routing state, and returns to Idle.
func (s *Simulation) Reset() {
	s.phase = Idle
	s.rounds = 0
	s.Bus.Reset()
	s.Changes.Reset()
	for _, node := range s.Nodes() {
		s.nodes[node] = state.NewRouterState(node, s.links(node))
	}
	s.log.Info("simulation reset", "run", s.RunId)
}

// Step receives all pending messages of node, recomputes its routes and broadcasts its new
// row if anything changed. A step with nothing to receive and nothing to recompute is a no-op.
func (s *Simulation) Step(node state.NodeId) (StepResult, error) {
	if s.phase != Running {
		return StepResult{Node: node}, state.ErrNotRunning
	}
	if _, ok := s.nodes[node]; !ok {
		return StepResult{Node: node}, &state.UnknownNodeError{Node: node}
	}
	start := time.Now()
	msgs := state.Deduplicate(s.Bus.Drain(node))
	perf.RecvBatchSize.Add(float64(len(msgs)))
	res, err := s.process(node, msgs, nil)
	perf.StepsPerSecond.Add(1)
	perf.StepLatency.Add(float64(time.Since(start).Microseconds()))
	return res, err
}

// process merges msgs into the state of node, runs the engine and emits the resulting vectors.
// notify lists neighbours that must receive the real row even when nothing changed.
func (s *Simulation) process(node state.NodeId, msgs []state.Message, notify []state.NodeId) (StepResult, error) {
	rs := s.nodes[node]
	// vectors still in flight from a link that has since gone down are stale
	msgs = slices.DeleteFunc(msgs, func(msg state.Message) bool {
		if s.Topology.IsNeighbour(node, msg.From) {
			return false
		}
		s.Log(MessageDropped, "dropping vector from non-neighbour", "node", node, "from", msg.From, "ts", msg.Timestamp)
		return true
	})
	res := StepResult{
		Node:     node,
		Received: len(msgs),
		Widened:  rs.Merge(msgs),
	}
	computed := ComputeRoutes(rs, s.Topology, s.Changes, s.routeCfg(), s)
	res.Costs = computed.Costs
	res.Hops = computed.Hops
	for _, change := range computed.Consumed {
		s.Log(LinkChanged, "link change triggered poison reverse", "node", node, "change", change.String())
	}

	var err error
	if computed.Changed() {
		res.Sent, err = s.broadcast(rs, computed.Poison)
		if len(res.Costs) != 0 {
			s.notify(func(o Observer) { o.VectorUpdated(node, res.Costs) })
		}
		if len(res.Hops) != 0 {
			s.notify(func(o Observer) { o.RoutingUpdated(node, res.Hops) })
		}
		return res, err
	}

	// nothing changed, settle what we owe
	targets := slices.Sorted(maps.Keys(rs.Owed))
	targets = append(targets, notify...)
	slices.Sort(targets)
	for _, neigh := range slices.Compact(targets) {
		delete(rs.Owed, neigh)
		if !s.Topology.IsNeighbour(node, neigh) {
			continue
		}
		msg, err := s.send(rs.OwnRow(), node, neigh, false)
		if err != nil {
			return res, err
		}
		res.Sent = append(res.Sent, msg)
	}
	return res, nil
}

// broadcast sends the own row of rs to every neighbour, substituting poisoned rows where the
// engine asked for them.
func (s *Simulation) broadcast(rs *state.RouterState, poison map[state.NodeId][]state.NodeId) ([]state.Message, error) {
	sent := make([]state.Message, 0)
	row := rs.OwnRow()
	neighs := s.Topology.Neighbours(rs.Id)
	for _, neigh := range neighs {
		vec, poisoned := row, false
		if dests, ok := poison[neigh]; ok {
			vec, poisoned = PoisonedRow(row, dests), true
			rs.Owed[neigh] = struct{}{}
		} else {
			delete(rs.Owed, neigh)
		}
		msg, err := s.send(vec, rs.Id, neigh, poisoned)
		if err != nil {
			return sent, err
		}
		sent = append(sent, msg)
	}
	// an old next hop we are no longer linked to learns of it from its own side of the link
	for _, target := range slices.Sorted(maps.Keys(poison)) {
		if !slices.Contains(neighs, target) {
			s.Log(MessageDropped, "old next hop is no longer a neighbour, not poisoned", "node", rs.Id, "to", target)
		}
	}
	for owed := range rs.Owed {
		if !slices.Contains(neighs, owed) {
			delete(rs.Owed, owed)
		}
	}
	return sent, nil
}

func (s *Simulation) send(vec state.Vector, from, to state.NodeId, poisoned bool) (state.Message, error) {
	msg, err := s.Bus.Send(vec, from, to, poisoned)
	if err != nil {
		return msg, err
	}
	perf.SentVectorsPerSecond.Add(1)
	if poisoned {
		perf.PoisonedPerSecond.Add(1)
		s.Log(PoisonSent, "poisoned row sent", "from", from, "to", to, "vec", msg.Vector)
	}
	s.notify(func(o Observer) { o.MessageSent(msg) })
	return msg, nil
}

// Quiescent reports whether no step could change anything: no message is in flight and no
// node still owes a neighbour its real row.
func (s *Simulation) Quiescent() bool {
	if s.Bus.Len() != 0 {
		return false
	}
	for _, rs := range s.nodes {
		if len(rs.Owed) != 0 {
			return false
		}
	}
	return true
}

// Round steps every node once, in lexicographic order, and reports whether any step changed
// a vector or a routing table.
func (s *Simulation) Round() (bool, error) {
	changed := false
	for _, node := range s.Nodes() {
		res, err := s.Step(node)
		if err != nil {
			return changed, err
		}
		changed = changed || res.Changed()
	}
	s.rounds++
	return changed, nil
}

// Converge runs rounds until the simulation is quiescent, and returns the number of rounds
// it took. maxRounds <= 0 uses state.DefaultMaxRounds.
func (s *Simulation) Converge(maxRounds int) (int, error) {
	if maxRounds <= 0 {
		maxRounds = state.DefaultMaxRounds
	}
	if err := s.Start(); err != nil {
		return 0, err
	}
	for i := 0; i < maxRounds; i++ {
		if s.Quiescent() {
			return i, nil
		}
		if _, err := s.Round(); err != nil {
			return i, err
		}
	}
	if s.Quiescent() {
		return maxRounds, nil
	}
	return maxRounds, fmt.Errorf("%w after %d rounds", state.ErrNotConverged, maxRounds)
}

// SetEdgeCost changes the cost of the link between a and b. INF removes the link. While
// running, both endpoints recompute immediately.
func (s *Simulation) SetEdgeCost(a, b state.NodeId, cost state.Cost) ([]state.LinkChange, error) {
	changes, err := s.Topology.SetEdgeCost(a, b, cost)
	if err != nil || len(changes) == 0 {
		return changes, err
	}
	return changes, s.applyLinkChanges(changes)
}

// AddNode inserts a node with its links. While running, the node and its new neighbours
// exchange rows immediately.
func (s *Simulation) AddNode(id state.NodeId, edges map[state.NodeId]state.Cost) ([]state.LinkChange, error) {
	changes, err := s.Topology.AddNode(id, edges)
	if err != nil {
		return nil, err
	}
	s.nodes[id] = state.NewRouterState(id, nil)
	s.Log(NodeAdded, "node added", "node", id, "links", len(changes)/2)
	return changes, s.applyLinkChanges(changes)
}

// RemoveNode deletes a node, its links and every message addressed to it.
func (s *Simulation) RemoveNode(id state.NodeId) ([]state.LinkChange, error) {
	changes, err := s.Topology.RemoveNode(id)
	if err != nil {
		return nil, err
	}
	delete(s.nodes, id)
	delete(s.Prefixes, id)
	dropped := s.Bus.Purge(id)
	s.Changes.ConsumeFrom(id)
	s.Log(NodeRemoved, "node removed", "node", id, "dropped", dropped)
	return changes, s.applyLinkChanges(changes)
}

func (s *Simulation) applyLinkChanges(changes []state.LinkChange) error {
	perf.LinkChangesPerSecond.Add(float64(len(changes)))
	affected := make(map[state.NodeId][]state.NodeId)
	for _, change := range changes {
		s.Log(LinkChanged, "link changed", "from", change.From, "to", change.To, "old", change.OldCost, "new", change.NewCost)
		rs, ok := s.nodes[change.From]
		if !ok {
			continue // the removed node itself
		}
		if _, ok := affected[change.From]; !ok {
			affected[change.From] = make([]state.NodeId, 0)
		}
		if change.NewCost.IsInf() {
			rs.Forget(change.To)
		} else if change.OldCost.IsInf() {
			rs.Learn(change.To)
			affected[change.From] = append(affected[change.From], change.To)
		}
	}

	if s.phase != Running {
		for node := range affected {
			s.nodes[node] = state.NewRouterState(node, s.links(node))
		}
		return nil
	}

	for _, change := range changes {
		if _, ok := s.nodes[change.From]; ok {
			s.Changes.Record(change)
		}
	}
	var errs []error
	for _, node := range slices.Sorted(maps.Keys(affected)) {
		if _, err := s.process(node, nil, affected[node]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
