package state

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddCost(t *testing.T) {
	assert.Equal(t, Cost(3), AddCost(1, 2))
	assert.True(t, AddCost(INF, 2).IsInf())
	assert.True(t, AddCost(1, INF).IsInf())
}

func TestCap(t *testing.T) {
	assert.Equal(t, Cost(15), Cap(15, 16))
	assert.True(t, Cap(16, 16).IsInf())
	assert.True(t, Cap(INF, 16).IsInf())
}

func TestValidCost(t *testing.T) {
	assert.True(t, ValidCost(0))
	assert.True(t, ValidCost(INF))
	assert.False(t, ValidCost(-0.5))
	assert.False(t, ValidCost(Cost(math.NaN())))
	assert.Equal(t, "∞", INF.String())
	assert.Equal(t, "2.5", Cost(2.5).String())
}
