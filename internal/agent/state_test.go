package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipCriterion(t *testing.T) {
	st := newState()
	assert.Equal(t, -1.0, st.SkipCriterion(), "fresh state must act on the first signal")

	st.SeedBuyCountHistory(2)
	assert.Equal(t, 1.0, st.SkipCriterion())

	st.SeedBuyCountHistory(0, 3)
	assert.Equal(t, 0.5, st.SkipCriterion(), "even-length history takes the midpoint")

	st.SeedBuyCountHistory(1, 5, 3)
	assert.Equal(t, 2.0, st.SkipCriterion())
}

func TestCloseBuyCycle(t *testing.T) {
	st := newState()

	st.CloseBuyCycle()
	assert.Equal(t, []int{0}, st.BuyCountHistory(), "empty runs are not recorded")

	for _, n := range []int{1, 2, 3, 4, 5, 6} {
		st.BuyCount = n
		st.CloseBuyCycle()
		assert.Zero(t, st.BuyCount)
	}
	assert.Equal(t, []int{2, 3, 4, 5, 6}, st.BuyCountHistory(), "history is bounded, oldest drops")
}

func TestAbsorbBuyFills(t *testing.T) {
	st := newState()
	st.AbsorbBuyFills([]float64{100, 110}, []float64{1, 1})
	assert.InDelta(t, 105.0, st.AvgEntryPrice, 1e-9)
	assert.InDelta(t, 2.0, st.Position, 1e-9)

	// later fills re-weight against the existing position
	st.AbsorbBuyFills([]float64{90}, []float64{2})
	assert.InDelta(t, 97.5, st.AvgEntryPrice, 1e-9)
	assert.InDelta(t, 4.0, st.Position, 1e-9)

	before := *st
	st.AbsorbBuyFills(nil, nil)
	assert.Equal(t, before.AvgEntryPrice, st.AvgEntryPrice)
}

func TestSettleSellFills(t *testing.T) {
	st := newState()
	st.AvgEntryPrice = 100
	st.Position = 2

	avg, amount, profit := st.SettleSellFills([]float64{110, 120}, []float64{1, 1})
	assert.InDelta(t, 115.0, avg, 1e-9)
	assert.InDelta(t, 2.0, amount, 1e-9)
	assert.InDelta(t, 30.0, profit, 1e-9)
	assert.Zero(t, st.Position)
	assert.InDelta(t, 30.0, st.RealizedProfit, 1e-9)
}

func TestSettleSellFillsClampsToPosition(t *testing.T) {
	st := newState()
	st.AvgEntryPrice = 100
	st.Position = 1

	// over-filled sell: profit recognized on the tracked position only,
	// position never goes negative
	_, _, profit := st.SettleSellFills([]float64{110}, []float64{3})
	assert.InDelta(t, 10.0, profit, 1e-9)
	assert.Zero(t, st.Position)

	require.Zero(t, st.Position)
	_, _, profit = st.SettleSellFills([]float64{110}, []float64{1})
	assert.Zero(t, profit, "selling with no tracked position yields no profit")
}
