package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceTickUnitBands(t *testing.T) {
	cases := []struct {
		price float64
		want  float64
	}{
		{0.00005, 0.00000001},
		{0.0005, 0.0000001},
		{0.005, 0.000001},
		{0.05, 0.00001},
		{0.5, 0.0001},
		{5, 0.001},
		{50, 0.01},
		{500, 0.1},
		{5000, 1},
		{50000, 10},
		{200000, 50},
		{700000, 100},
		{1500000, 500},
		{3000000, 1000},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, PriceTickUnit("BTC", tc.price), tc.want*1e-9, "price %v", tc.price)
	}
}

func TestPriceTickUnitFixedInstruments(t *testing.T) {
	for _, inst := range []string{"ADA", "TRX", "SAND"} {
		assert.Equal(t, 1.0, PriceTickUnit(inst, 0.5))
		assert.Equal(t, 1.0, PriceTickUnit(inst, 5000))
	}
}

func TestRoundToTick(t *testing.T) {
	assert.InDelta(t, 101350.0, RoundToTick(101342, 50), 1e-9)
	assert.InDelta(t, 0.00123, RoundToTick(0.0012304, 0.00001), 1e-12)
	// already aligned prices stay put
	assert.InDelta(t, 70000.0, RoundToTick(70000, 10), 1e-9)
	// degenerate inputs pass through
	assert.Equal(t, 5.0, RoundToTick(5, 0))
}

func TestOrderRemainingClamped(t *testing.T) {
	o := Order{Requested: 1.0, Filled: 0.3}
	assert.InDelta(t, 0.7, o.Remaining(), 1e-9)
	o.Filled = 1.2
	assert.Equal(t, 0.0, o.Remaining())
}
