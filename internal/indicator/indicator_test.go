package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upbot/internal/market"
)

func geometricSeries(n int, start, ratio float64) []float64 {
	out := make([]float64, n)
	v := start
	for i := 0; i < n; i++ {
		out[i] = v
		v *= ratio
	}
	return out
}

func TestSMAWarmupAndValues(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	sma := SMA(values, 3)
	require.Len(t, sma, 5)
	assert.True(t, math.IsNaN(sma[0]))
	assert.True(t, math.IsNaN(sma[1]))
	assert.InDelta(t, 2.0, sma[2], 1e-9)
	assert.InDelta(t, 3.0, sma[3], 1e-9)
	assert.InDelta(t, 4.0, sma[4], 1e-9)
}

func TestSMAShortSeriesAllNaN(t *testing.T) {
	sma := SMA([]float64{1, 2}, 20)
	require.Len(t, sma, 2)
	for _, v := range sma {
		assert.True(t, math.IsNaN(v))
	}
}

func TestStdDevConstantSeriesIsZero(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 100
	}
	std := StdDev(values, 20)
	assert.InDelta(t, 0.0, Latest(std), 1e-9)
}

func TestStdDevMatchesSampleForm(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i + 1)
	}
	// pandas rolling(20).std() over 1..20 (ddof=1)
	assert.InDelta(t, 5.9160797831, Latest(StdDev(values, 20)), 1e-9)

	bands := BollingerBands(values, 20, 2)
	assert.InDelta(t, 22.3321595661, Latest(bands.Upper), 1e-9)
	assert.InDelta(t, -1.3321595661, Latest(bands.Lower), 1e-9)
}

func TestStdDevWindowOfOneUndefined(t *testing.T) {
	std := StdDev([]float64{1, 2, 3}, 1)
	for i, v := range std {
		assert.True(t, math.IsNaN(v), "bar %d", i)
	}
}

func TestPercentBRisingSeriesAboveOne(t *testing.T) {
	closes := geometricSeries(60, 1, 1.2)
	bands := BollingerBands(closes, 20, 2)
	for i := 55; i < 60; i++ {
		require.False(t, math.IsNaN(bands.PercentB[i]))
		assert.GreaterOrEqual(t, bands.PercentB[i], 1.0, "bar %d", i)
	}
}

func TestPercentBFallingSeriesBelowZero(t *testing.T) {
	closes := geometricSeries(60, 1e9, 1/1.2)
	bands := BollingerBands(closes, 20, 2)
	for i := 55; i < 60; i++ {
		require.False(t, math.IsNaN(bands.PercentB[i]))
		assert.LessOrEqual(t, bands.PercentB[i], 0.0, "bar %d", i)
	}
}

func TestPercentBFlatSeriesUndefined(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 42
	}
	var bands Bands
	assert.NotPanics(t, func() {
		bands = BollingerBands(closes, 20, 2)
	})
	assert.True(t, math.IsNaN(Latest(bands.PercentB)))
	// undefined comparisons must read as "condition not met"
	assert.False(t, Latest(bands.PercentB) <= 0)
	assert.False(t, Latest(bands.PercentB) >= 1)
}

func trendSeries(n int, start, step float64) market.Series {
	s := make(market.Series, n)
	price := start
	for i := 0; i < n; i++ {
		s[i] = market.Candle{
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 10,
		}
		price += step
	}
	return s
}

func TestMFIAllPositiveFlowSaturates(t *testing.T) {
	s := trendSeries(30, 100, 1)
	mfi := MFI(s, 14)
	assert.InDelta(t, 100.0, Latest(mfi), 1e-9)
}

func TestMFIAllNegativeFlowIsZero(t *testing.T) {
	s := trendSeries(30, 100, -1)
	mfi := MFI(s, 14)
	assert.InDelta(t, 0.0, Latest(mfi), 1e-9)
}

func TestMFIFlatSeriesUndefined(t *testing.T) {
	s := trendSeries(30, 100, 0)
	var mfi []float64
	assert.NotPanics(t, func() {
		mfi = MFI(s, 14)
	})
	assert.True(t, math.IsNaN(Latest(mfi)))
}

func TestMFIStaysBounded(t *testing.T) {
	s := make(market.Series, 50)
	price := 100.0
	for i := range s {
		if i%3 == 0 {
			price *= 1.02
		} else {
			price *= 0.995
		}
		s[i] = market.Candle{High: price * 1.01, Low: price * 0.99, Close: price, Volume: 5 + float64(i%7)}
	}
	mfi := MFI(s, 14)
	for i := 14; i < len(mfi); i++ {
		require.False(t, math.IsNaN(mfi[i]))
		assert.GreaterOrEqual(t, mfi[i], 0.0)
		assert.LessOrEqual(t, mfi[i], 100.0)
	}
}

func TestMFIWarmupIsNaN(t *testing.T) {
	s := trendSeries(30, 100, 1)
	mfi := MFI(s, 14)
	for i := 0; i < 13; i++ {
		assert.True(t, math.IsNaN(mfi[i]), "bar %d", i)
	}
	assert.False(t, math.IsNaN(mfi[13]))
}

func TestDeterministicOutputs(t *testing.T) {
	closes := geometricSeries(40, 5, 1.01)
	a := BollingerBands(closes, 20, 2)
	b := BollingerBands(closes, 20, 2)
	assert.Equal(t, a.Upper, b.Upper)
	assert.Equal(t, a.Lower, b.Lower)
}
