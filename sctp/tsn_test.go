package sctp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTsnGT(t *testing.T) {
	assert.True(t, tsnGT(2, 1))
	assert.False(t, tsnGT(1, 1))
	assert.False(t, tsnGT(1, 2))
	// Wraparound: 0 is ahead of MaxUint32.
	assert.True(t, tsnGT(0, math.MaxUint32))
	assert.False(t, tsnGT(math.MaxUint32, 0))
}

func TestTsnGTE(t *testing.T) {
	assert.True(t, tsnGTE(1, 1))
	assert.True(t, tsnGTE(2, 1))
	assert.False(t, tsnGTE(1, 2))
}

func TestSsnGT(t *testing.T) {
	assert.True(t, ssnGT(2, 1))
	assert.False(t, ssnGT(1, 1))
	assert.True(t, ssnGT(0, math.MaxUint16))
}
