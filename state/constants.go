package state

import (
	"math"
	"time"
)

// INF is the cost of an unreachable destination or a missing link.
var INF = Cost(math.Inf(1))

const (
	// NoRoute is the next hop of a destination without a finite route.
	NoRoute NodeId = ""
)

var (
	// DefaultInfinity is the RIP-style metric at which a cost is considered unreachable.
	DefaultInfinity = Cost(256)
	DefaultCost     = Cost(1)
	// DefaultMaxRounds bounds Simulation.Converge when no limit is given.
	DefaultMaxRounds = 4096

	// runner configuration
	StepDelay       = time.Millisecond * 10
	QuiescentRounds = 3
	// LinkChangeTTL expires link-change records that were never consumed, 0 keeps them forever.
	LinkChangeTTL = time.Duration(0)
)
