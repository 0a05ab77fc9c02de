package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTo(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(12.3, RoundTo(12.345, 1))
	assert.Equal(-20.1, RoundTo(-20.06, 1))
	assert.Equal(1.25, RoundTo(1.251, 2))
	assert.Equal(3.0, RoundTo(3.0, 1))
}

func TestMedian(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(0.0, Median(nil))
	assert.Equal(5.0, Median([]float64{9, 5, 1}))
	assert.Equal(3.5, Median([]float64{4, 1, 3, 9}))
}

func TestMinMax(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(2, Min(2, 7))
	assert.Equal(7.5, Max(2.5, 7.5))
}
