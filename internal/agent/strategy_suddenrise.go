package agent

import (
	"context"

	"upbot/internal/exchange"
	"upbot/internal/market"
)

// SuddenRise chases volume breakouts on the 15 minute window and exits as
// soon as order book pressure fades. It commits the whole free balance on
// entry, so it is meant to run with a single candidate.
type SuddenRise struct {
	Sizing Sizing

	VolumeFactor float64 // default 3, current bar vs trailing mean
	Lookback     int     // default 5, trailing bars for the volume mean
	RisePct      float64 // default 0.02, bar-over-bar close change
	EntryRatio   float64 // default 3, bid/ask volume to enter
	ExitRatio    float64 // default 1.5, bid/ask volume to exit
}

var _ Strategy = (*SuddenRise)(nil)

func NewSuddenRise(sizing Sizing) *SuddenRise {
	s := &SuddenRise{Sizing: sizing}
	s.applyDefaults()
	return s
}

func (s *SuddenRise) applyDefaults() {
	s.Sizing.applyDefaults()
	if s.VolumeFactor <= 0 {
		s.VolumeFactor = 3
	}
	if s.Lookback <= 0 {
		s.Lookback = 5
	}
	if s.RisePct <= 0 {
		s.RisePct = 0.02
	}
	if s.EntryRatio <= 0 {
		s.EntryRatio = 3
	}
	if s.ExitRatio <= 0 {
		s.ExitRatio = 1.5
	}
}

func (s *SuddenRise) Name() string { return "suddenrise" }

func (s *SuddenRise) BuyingCandidates(ctx context.Context, ex exchange.Exchange) ([]string, error) {
	return ex.BuyingCandidates(ctx)
}

func (s *SuddenRise) IsBuyTiming(ctx context.Context, ex exchange.Exchange, instrument string) (bool, error) {
	series, err := ex.Candles(ctx, instrument, market.TF15m)
	if err != nil {
		return false, err
	}
	if series.Len() < s.Lookback+2 {
		return false, nil
	}
	cur := series.Last()
	prev := series.At(1)

	var mean float64
	for i := 1; i <= s.Lookback; i++ {
		mean += series.At(i).Volume
	}
	mean /= float64(s.Lookback)
	if mean <= 0 || cur.Volume < s.VolumeFactor*mean {
		return false, nil
	}
	if prev.Close <= 0 || (cur.Close-prev.Close)/prev.Close < s.RisePct {
		return false, nil
	}
	book, err := ex.OrderBook(ctx, instrument)
	if err != nil {
		return false, err
	}
	return book.BidVolume() > s.EntryRatio*book.AskVolume(), nil
}

func (s *SuddenRise) IsSellTiming(ctx context.Context, ex exchange.Exchange, instrument string) (bool, error) {
	book, err := ex.OrderBook(ctx, instrument)
	if err != nil {
		return false, err
	}
	return book.BidVolume() < s.ExitRatio*book.AskVolume(), nil
}

// PlanBuy goes all in: everything above the reserve at the current price.
func (s *SuddenRise) PlanBuy(ctx context.Context, ex exchange.Exchange, instrument string, st *State) (OrderPlan, bool, error) {
	free := ex.Balances()[ex.QuoteCurrency()].Free
	notional := free - s.Sizing.ReserveMargin
	if notional <= s.Sizing.MinNotional {
		return OrderPlan{}, false, nil
	}
	cur, err := ex.CurrentPrice(ctx, instrument)
	if err != nil {
		return OrderPlan{}, false, err
	}
	unit := exchange.PriceTickUnit(instrument, cur)
	price := exchange.RoundToTick(cur, unit)
	if price <= 0 {
		return OrderPlan{}, false, nil
	}
	return OrderPlan{Price: price, Quantity: notional / price}, true, nil
}

func (s *SuddenRise) PlanSell(ctx context.Context, ex exchange.Exchange, instrument string, st *State) (OrderPlan, bool, error) {
	free := ex.Balances()[instrument].Free
	if free <= 0 {
		return OrderPlan{}, false, nil
	}
	cur, err := ex.CurrentPrice(ctx, instrument)
	if err != nil {
		return OrderPlan{}, false, err
	}
	unit := exchange.PriceTickUnit(instrument, cur)
	price := exchange.RoundToTick(cur, unit)
	if price*free <= s.Sizing.MinNotional {
		return OrderPlan{}, false, nil
	}
	return OrderPlan{Price: price, Quantity: free}, true, nil
}
