package state

import (
	"math"
	"strconv"
)

type NodeId string

// Cost is a link or path metric. Costs are non-negative, INF means unreachable.
type Cost float64

func (c Cost) IsInf() bool {
	return math.IsInf(float64(c), 1)
}

func (c Cost) String() string {
	if c.IsInf() {
		return "∞"
	}
	return strconv.FormatFloat(float64(c), 'f', -1, 64)
}

// AddCost adds two costs, saturating at INF.
func AddCost(a, b Cost) Cost {
	if a.IsInf() || b.IsInf() {
		return INF
	}
	return a + b
}

// Cap normalises any cost at or above infinity to INF.
func Cap(c, infinity Cost) Cost {
	if c >= infinity {
		return INF
	}
	return c
}

func ValidCost(c Cost) bool {
	return !math.IsNaN(float64(c)) && c >= 0
}
