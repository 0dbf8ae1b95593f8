package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderBetween(t *testing.T) {
	mid, ok := OrderBetween(1, 2)
	require.True(t, ok)
	assert.InDelta(t, 1.5, mid, 0.0001)

	// Argument order does not matter.
	mid2, ok := OrderBetween(2, 1)
	require.True(t, ok)
	assert.Equal(t, mid, mid2)
}

func TestOrderBetween_PrecisionExhaustion(t *testing.T) {
	// Repeated midpoint insertion between two keys eventually converges to
	// a point where no representable value remains between them.
	lo, hi := 1.0, 2.0
	exhausted := false

	for i := 0; i < 100; i++ {
		mid, ok := OrderBetween(lo, hi)
		if !ok {
			exhausted = true
			break
		}

		hi = mid
	}

	assert.True(t, exhausted, "midpoint insertion must eventually signal exhaustion")
}

func TestOrderAfter(t *testing.T) {
	assert.InDelta(t, 4.5, OrderAfter(3.5), 0.0001)
}

func TestRenumberSiblings(t *testing.T) {
	a := NewTask("a")
	a.ID = "a"
	a.Order = 1.0000001

	b := NewTask("b")
	b.ID = "b"
	b.Order = 1.0000002

	c := NewTask("c")
	c.ID = "c"
	c.Order = 0.25

	RenumberSiblings([]*Task{a, b, c})

	assert.Equal(t, 1.0, c.Order)
	assert.Equal(t, 2.0, a.Order)
	assert.Equal(t, 3.0, b.Order)
}
