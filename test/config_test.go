package test

import (
	"net/netip"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGraph_ValidGraph(t *testing.T) {
	// sample valid graph: "g = a, b" only defines a group, nothing is paired
	graph := []string{"g = a, b"}
	nodes := []string{"a", "b"}

	pairs, err := state.ParseGraph(graph, nodes)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	expected := []state.Pair[state.NodeId, state.NodeId]{}
	if !reflect.DeepEqual(pairs, expected) {
		t.Errorf("Expected %v, got %v", expected, pairs)
	}
}

func TestParseGraph_InvalidGraph(t *testing.T) {
	// sample invalid input that should produce an error
	graph := []string{"invalid graph"}
	nodes := []string{"a", "b"}

	_, err := state.ParseGraph(graph, nodes)
	if err == nil {
		t.Errorf("Expected error for invalid graph, got nil")
	}
}

func TestReadTopology_Fixture(t *testing.T) {
	cfg, err := core.ReadTopology(filepath.Join("..", "integration", "fixtures", "topology.yaml"))
	require.NoError(t, err)
	assert.Len(t, cfg.Nodes, 7)
	assert.True(t, cfg.PoisonReverse)
	assert.Equal(t, state.DefaultInfinity, cfg.Infinity)
	assert.Equal(t, []netip.Prefix{netip.MustParsePrefix("10.0.7.0/24")}, cfg.GetNode("G").Prefixes)
	require.Len(t, cfg.Events, 3)
	assert.Equal(t, state.EventAddNode, cfg.Events[2].Kind)
	assert.Equal(t, state.Cost(1), cfg.Events[2].Edges["G"])

	edges, err := cfg.ResolveEdges()
	require.NoError(t, err)
	assert.Contains(t, edges, state.Edge{A: "F", B: "G", Cost: 2})
	assert.Contains(t, edges, state.Edge{A: "E", B: "G", Cost: 1})
}

func TestReadTopology_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodes:\n  - id: A\nedges:\n  - {a: A, b: B, cost: 1}\n"), 0600))
	_, err := core.ReadTopology(path)
	assert.ErrorContains(t, err, "node B not defined")

	require.NoError(t, os.WriteFile(path, []byte("nodes: [[[\n"), 0600))
	_, err = core.ReadTopology(path)
	assert.Error(t, err)

	_, err = core.ReadTopology(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteTopology_Sample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.yaml")
	sample := state.SampleTopology()
	require.NoError(t, core.WriteTopology(path, &sample))

	cfg, err := core.ReadTopology(path)
	require.NoError(t, err)
	sim, err := core.NewSimulationFromConfig(cfg, nil)
	require.NoError(t, err)
	_, err = sim.Converge(0)
	require.NoError(t, err)
	assert.Nil(t, sim.Verify())
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dvsim.log")
	logger, err := core.NewLogger("test", 0, path)
	require.NoError(t, err)
	logger.Info("hello from the simulator", "node", "A")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the simulator")
	assert.Contains(t, string(data), "node=A")
}
