package agent

import (
	"context"
	"math"

	"upbot/internal/exchange"
	"upbot/internal/indicator"
	"upbot/internal/market"
)

// BollMFI is the baseline mean-reversion strategy: buy oversold dips under
// the lower Bollinger band confirmed by money flow, scale out above the
// upper band.
type BollMFI struct {
	Sizing Sizing

	BandPeriod int     // default 20
	BandWidth  float64 // default 2
	MFIPeriod  int     // default 14
	BuyMFI     float64 // default 20
	SellMFI    float64 // default 80

	// CrashGuard vetoes buys right after a single-bar collapse deeper
	// than CrashDrop.
	CrashGuard bool
	CrashDrop  float64 // default -0.10
}

var _ Strategy = (*BollMFI)(nil)

func NewBollMFI(sizing Sizing) *BollMFI {
	s := &BollMFI{Sizing: sizing}
	s.applyDefaults()
	return s
}

func (s *BollMFI) applyDefaults() {
	s.Sizing.applyDefaults()
	if s.BandPeriod <= 0 {
		s.BandPeriod = 20
	}
	if s.BandWidth <= 0 {
		s.BandWidth = 2
	}
	if s.MFIPeriod <= 0 {
		s.MFIPeriod = 14
	}
	if s.BuyMFI <= 0 {
		s.BuyMFI = 20
	}
	if s.SellMFI <= 0 {
		s.SellMFI = 80
	}
	if s.CrashDrop >= 0 {
		s.CrashDrop = -0.10
	}
}

func (s *BollMFI) Name() string { return "bollmfi" }

func (s *BollMFI) BuyingCandidates(ctx context.Context, ex exchange.Exchange) ([]string, error) {
	return ex.BuyingCandidates(ctx)
}

func (s *BollMFI) IsBuyTiming(ctx context.Context, ex exchange.Exchange, instrument string) (bool, error) {
	series, err := ex.Candles(ctx, instrument, market.TF1m)
	if err != nil {
		return false, err
	}
	if series.Len() < s.BandPeriod+1 {
		return false, nil
	}
	closes := series.Closes()
	bands := indicator.BollingerBands(closes, s.BandPeriod, s.BandWidth)
	mfi := indicator.Latest(indicator.MFI(series, s.MFIPeriod))
	cl := closes[len(closes)-1]

	// NaN warmup values fail every comparison, which reads as "no signal"
	if !(cl < indicator.Latest(bands.Lower)) {
		return false, nil
	}
	if !(indicator.Latest(bands.PercentB) <= 0) {
		return false, nil
	}
	if !(mfi <= s.BuyMFI) {
		return false, nil
	}
	if s.CrashGuard && series.Len() >= 2 {
		prevHigh := series.At(1).High
		if prevHigh > 0 && (series.Last().Low-prevHigh)/prevHigh < s.CrashDrop {
			return false, nil
		}
	}
	return true, nil
}

func (s *BollMFI) IsSellTiming(ctx context.Context, ex exchange.Exchange, instrument string) (bool, error) {
	series, err := ex.Candles(ctx, instrument, market.TF1m)
	if err != nil {
		return false, err
	}
	if series.Len() < s.BandPeriod+1 {
		return false, nil
	}
	closes := series.Closes()
	bands := indicator.BollingerBands(closes, s.BandPeriod, s.BandWidth)
	mfi := indicator.Latest(indicator.MFI(series, s.MFIPeriod))
	cl := closes[len(closes)-1]

	if !(cl > indicator.Latest(bands.Upper)) {
		return false, nil
	}
	if !(indicator.Latest(bands.PercentB) >= 1) {
		return false, nil
	}
	if !(mfi >= s.SellMFI) {
		return false, nil
	}
	return true, nil
}

// PlanBuy sizes tranche number BuyCount against the skip criterion: the
// notional grows with how far the current run exceeds the historical median,
// and the bid is laddered below the current price by the same distance.
func (s *BollMFI) PlanBuy(ctx context.Context, ex exchange.Exchange, instrument string, st *State) (OrderPlan, bool, error) {
	skip := st.SkipCriterion()
	tranche := float64(st.BuyCount) - skip
	if tranche <= 0 {
		return OrderPlan{}, false, nil
	}
	total, err := ex.TotalBalance(ctx)
	if err != nil {
		return OrderPlan{}, false, err
	}
	free := ex.Balances()[ex.QuoteCurrency()].Free
	notional := math.Min(total/s.Sizing.BalanceDivisor*tranche, free-s.Sizing.ReserveMargin)
	if notional <= s.Sizing.MinNotional {
		return OrderPlan{}, false, nil
	}
	cur, err := ex.CurrentPrice(ctx, instrument)
	if err != nil {
		return OrderPlan{}, false, err
	}
	unit := exchange.PriceTickUnit(instrument, cur)
	price := exchange.RoundToTick(cur-unit*math.Max(2+skip-float64(st.BuyCount), 0), unit)
	if price <= 0 {
		return OrderPlan{}, false, nil
	}
	return OrderPlan{Price: price, Quantity: notional / price}, true, nil
}

// PlanSell scales out: the first sell offers half the free position two
// ticks above market, later sells offer everything at market.
func (s *BollMFI) PlanSell(ctx context.Context, ex exchange.Exchange, instrument string, st *State) (OrderPlan, bool, error) {
	free := ex.Balances()[instrument].Free
	if free <= 0 {
		return OrderPlan{}, false, nil
	}
	weight := math.Min(2, float64(st.SellCount)) / 2
	quantity := free * weight
	if quantity <= 0 {
		return OrderPlan{}, false, nil
	}
	cur, err := ex.CurrentPrice(ctx, instrument)
	if err != nil {
		return OrderPlan{}, false, err
	}
	unit := exchange.PriceTickUnit(instrument, cur)
	price := exchange.RoundToTick(cur+unit*math.Max(0, 2-float64(st.SellCount)), unit)
	if price*quantity <= s.Sizing.MinNotional {
		return OrderPlan{}, false, nil
	}
	return OrderPlan{Price: price, Quantity: quantity}, true, nil
}
