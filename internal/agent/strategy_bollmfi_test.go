package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upbot/internal/exchange"
	"upbot/internal/exchange/sim"
	"upbot/internal/market"
)

// flatSeries builds n identical bars so a single mutated tail bar controls
// every indicator.
func flatSeries(n int, price float64) market.Series {
	out := make(market.Series, n)
	for i := range out {
		out[i] = market.Candle{
			OpenTime: int64(i), Open: price, High: price, Low: price, Close: price, Volume: 1,
		}
	}
	return out
}

func TestBollMFIBuyTiming(t *testing.T) {
	ex := sim.New()
	s := NewBollMFI(Sizing{})

	series := flatSeries(40, 100)
	series[39] = market.Candle{OpenTime: 39, Open: 100, High: 100, Low: 90, Close: 90, Volume: 1}
	ex.SetCandles("XRP", market.TF1m, series)

	ok, err := s.IsBuyTiming(context.Background(), ex, "XRP")
	require.NoError(t, err)
	assert.True(t, ok, "sharp dip below the lower band with negative flow buys")

	ok, err = s.IsSellTiming(context.Background(), ex, "XRP")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBollMFISellTiming(t *testing.T) {
	ex := sim.New()
	s := NewBollMFI(Sizing{})

	series := flatSeries(40, 100)
	series[39] = market.Candle{OpenTime: 39, Open: 100, High: 110, Low: 100, Close: 110, Volume: 1}
	ex.SetCandles("XRP", market.TF1m, series)

	ok, err := s.IsSellTiming(context.Background(), ex, "XRP")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsBuyTiming(context.Background(), ex, "XRP")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBollMFIFlatSeriesNeverSignals(t *testing.T) {
	ex := sim.New()
	s := NewBollMFI(Sizing{})
	ex.SetCandles("XRP", market.TF1m, flatSeries(40, 100))

	buy, err := s.IsBuyTiming(context.Background(), ex, "XRP")
	require.NoError(t, err)
	sell, err := s.IsSellTiming(context.Background(), ex, "XRP")
	require.NoError(t, err)
	assert.False(t, buy, "collapsed bands leave percent-b undefined")
	assert.False(t, sell)
}

func TestBollMFIShortSeriesNeverSignals(t *testing.T) {
	ex := sim.New()
	s := NewBollMFI(Sizing{})
	ex.SetCandles("XRP", market.TF1m, flatSeries(10, 100))

	buy, err := s.IsBuyTiming(context.Background(), ex, "XRP")
	require.NoError(t, err)
	assert.False(t, buy)
}

func TestBollMFICrashGuard(t *testing.T) {
	ex := sim.New()
	s := NewBollMFI(Sizing{})
	s.CrashGuard = true

	series := flatSeries(40, 100)
	// 15% single-bar collapse: oversold by every measure, but vetoed
	series[39] = market.Candle{OpenTime: 39, Open: 100, High: 100, Low: 85, Close: 90, Volume: 1}
	ex.SetCandles("XRP", market.TF1m, series)

	ok, err := s.IsBuyTiming(context.Background(), ex, "XRP")
	require.NoError(t, err)
	assert.False(t, ok)

	s.CrashGuard = false
	ok, err = s.IsBuyTiming(context.Background(), ex, "XRP")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBollMFIPlanBuyTranches(t *testing.T) {
	ex := sim.New()
	ex.SetBalance("KRW", exchange.Balance{Free: 100000, Total: 100000})
	ex.SetPrice("XRP", 1000)
	s := NewBollMFI(Sizing{})

	st := newState()
	st.SeedBuyCountHistory(2) // skip criterion 1

	st.BuyCount = 1
	_, ok, err := s.PlanBuy(context.Background(), ex, "XRP", st)
	require.NoError(t, err)
	assert.False(t, ok, "runs at or below the skip criterion place nothing")

	st.BuyCount = 2
	plan, ok, err := s.PlanBuy(context.Background(), ex, "XRP", st)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 20000.0, plan.Notional(), 1e-6)
	assert.InDelta(t, 999.0, plan.Price, 1e-9, "one tick below market while ahead of the ladder")

	st.BuyCount = 3
	plan, ok, err = s.PlanBuy(context.Background(), ex, "XRP", st)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 40000.0, plan.Notional(), 1e-6)
	assert.InDelta(t, 1000.0, plan.Price, 1e-9)
}

func TestBollMFIPlanBuyClampsToFreeCash(t *testing.T) {
	ex := sim.New()
	ex.SetBalance("KRW", exchange.Balance{Free: 15000, Total: 100000})
	ex.SetPrice("XRP", 1000)
	s := NewBollMFI(Sizing{})

	st := newState()
	st.SeedBuyCountHistory(2)
	st.BuyCount = 2
	plan, ok, err := s.PlanBuy(context.Background(), ex, "XRP", st)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 14900.0, plan.Notional(), 1e-6, "free cash minus reserve caps the tranche")
}

func TestBollMFIPlanBuyMinNotional(t *testing.T) {
	ex := sim.New()
	ex.SetBalance("KRW", exchange.Balance{Free: 6050, Total: 100000})
	ex.SetPrice("XRP", 1000)
	s := NewBollMFI(Sizing{})

	st := newState()
	st.SeedBuyCountHistory(2)
	st.BuyCount = 2
	_, ok, err := s.PlanBuy(context.Background(), ex, "XRP", st)
	require.NoError(t, err)
	assert.False(t, ok, "below the exchange minimum nothing is placed")
}

func TestBollMFIPlanSellScalesOut(t *testing.T) {
	ex := sim.New()
	ex.SetBalance("XRP", exchange.Balance{Free: 10, Total: 10})
	ex.SetPrice("XRP", 1000)
	s := NewBollMFI(Sizing{})

	st := newState()
	st.SellCount = 1
	plan, ok, err := s.PlanSell(context.Background(), ex, "XRP", st)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 5.0, plan.Quantity, 1e-9, "first exit offers half")
	assert.InDelta(t, 1001.0, plan.Price, 1e-9)

	st.SellCount = 3
	plan, ok, err = s.PlanSell(context.Background(), ex, "XRP", st)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 10.0, plan.Quantity, 1e-9, "later exits offer everything")
	assert.InDelta(t, 1000.0, plan.Price, 1e-9)
}

func TestSuddenRiseTiming(t *testing.T) {
	ex := sim.New()
	s := NewSuddenRise(Sizing{})

	series := flatSeries(10, 100)
	series[9] = market.Candle{OpenTime: 9, Open: 100, High: 103, Low: 100, Close: 103, Volume: 5}
	ex.SetCandles("XRP", market.TF15m, series)
	ex.SetOrderBook("XRP", market.OrderBook{
		Bids: []market.Level{{Price: 102, Volume: 9}},
		Asks: []market.Level{{Price: 103, Volume: 2}},
	})

	ok, err := s.IsBuyTiming(context.Background(), ex, "XRP")
	require.NoError(t, err)
	assert.True(t, ok)

	// bid pressure fades below the exit ratio
	ex.SetOrderBook("XRP", market.OrderBook{
		Bids: []market.Level{{Price: 102, Volume: 2}},
		Asks: []market.Level{{Price: 103, Volume: 2}},
	})
	ok, err = s.IsBuyTiming(context.Background(), ex, "XRP")
	require.NoError(t, err)
	assert.False(t, ok, "thin book vetoes the breakout")

	ok, err = s.IsSellTiming(context.Background(), ex, "XRP")
	require.NoError(t, err)
	assert.True(t, ok)
}
