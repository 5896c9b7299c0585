package core

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/encodeous/dvsim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestObserver_Callbacks(t *testing.T) {
	sim := triangleSim(t, false)
	vectors := make(map[state.NodeId]int)
	routing := 0
	sent := 0
	sim.Subscribe(ObserverFuncs{
		OnVectorUpdated: func(node state.NodeId, deltas []CostDelta) {
			assert.NotEmpty(t, deltas)
			vectors[node]++
		},
		OnRoutingUpdated: func(node state.NodeId, deltas []HopDelta) {
			routing++
		},
		OnMessageSent: func(msg state.Message) {
			sent++
		},
	})
	_, err := sim.Converge(0)
	require.NoError(t, err)
	// A learns C through B, C learns A through B
	assert.Positive(t, vectors["A"])
	assert.Positive(t, vectors["C"])
	assert.Positive(t, routing)
	assert.GreaterOrEqual(t, sent, 6)
}

func TestEventStream(t *testing.T) {
	defer goleak.VerifyNone(t)
	sim := triangleSim(t, false)
	stream := NewEventStream(1024)
	events := make(chan interface{}, 1024)
	stream.Register(events)
	sim.Subscribe(stream)

	_, err := sim.Converge(0)
	require.NoError(t, err)

	kinds := make(map[TraceKind]int)
	timeout := time.After(time.Second)
wait:
	for kinds[TraceMessage] == 0 || kinds[TraceRouting] == 0 {
		select {
		case ev := <-events:
			kinds[ev.(TraceEvent).Kind]++
		case <-timeout:
			break wait
		}
	}
	assert.Positive(t, kinds[TraceMessage])
	assert.Positive(t, kinds[TraceRouting])
	stream.Unregister(events)
	require.NoError(t, stream.Close())
}

func TestTraceTo(t *testing.T) {
	defer goleak.VerifyNone(t)
	sim := triangleSim(t, true)
	buf := &bytes.Buffer{}
	stop := TraceTo(sim, buf, 4096)
	_, err := sim.Converge(0)
	require.NoError(t, err)
	stop()

	out := buf.String()
	assert.Contains(t, out, "sent    (vector A->B")
	assert.Contains(t, out, "routing A")
	assert.Contains(t, out, "vector  C")
	assert.Positive(t, strings.Count(out, "\n"))
}
