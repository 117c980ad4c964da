// Package sim provides an in-memory exchange used to exercise the agent
// without network access. Prices, candle windows and fills are scripted by
// the test; the clock only moves when the test advances it.
package sim

import (
	"context"
	"fmt"
	"time"

	"upbot/internal/exchange"
	"upbot/internal/market"
)

type candleKey struct {
	instrument string
	tf         market.Timeframe
}

type Sim struct {
	Quote string

	clock      time.Time
	prices     map[string]float64
	candles    map[candleKey]market.Series
	balances   map[string]exchange.Balance
	orders     map[string]*exchange.Order
	books      map[string]market.OrderBook
	candidates []string
	nextID     int

	// knobs for failure-path tests
	InitCalls       int
	RefreshOK       bool
	RefreshErr      error
	SubmitErr       error
	StopAfterTicks  int // when > 0, RefreshSnapshot returns false after this many calls
	refreshCount    int
	MarketSells     []exchange.Order // market sell submissions, for liquidation asserts
	SubmittedOrders []string
}

var _ exchange.Exchange = (*Sim)(nil)

func New() *Sim {
	return &Sim{
		Quote:     "KRW",
		clock:     time.Unix(1_700_000_000, 0),
		prices:    make(map[string]float64),
		candles:   make(map[candleKey]market.Series),
		balances:  make(map[string]exchange.Balance),
		orders:    make(map[string]*exchange.Order),
		books:     make(map[string]market.OrderBook),
		RefreshOK: true,
	}
}

// ---- scripting helpers ----

func (s *Sim) Advance(d time.Duration) { s.clock = s.clock.Add(d) }

func (s *Sim) SetPrice(instrument string, price float64) { s.prices[instrument] = price }

func (s *Sim) SetCandles(instrument string, tf market.Timeframe, series market.Series) {
	s.candles[candleKey{instrument, tf}] = series
}

func (s *Sim) SetBalance(currency string, bal exchange.Balance) { s.balances[currency] = bal }

func (s *Sim) SetOrderBook(instrument string, book market.OrderBook) { s.books[instrument] = book }

func (s *Sim) SetCandidates(instruments ...string) { s.candidates = instruments }

// Fill marks quantity of an open order as executed, closing it when fully
// filled.
func (s *Sim) Fill(orderID string, quantity float64) {
	o, ok := s.orders[orderID]
	if !ok {
		return
	}
	o.Filled += quantity
	if o.Filled >= o.Requested {
		o.Filled = o.Requested
		o.Status = exchange.StatusClosed
	}
}

// CloseOrder forces an order terminal with its current fill.
func (s *Sim) CloseOrder(orderID string) {
	if o, ok := s.orders[orderID]; ok {
		o.Status = exchange.StatusClosed
	}
}

// CorruptOrder sets an out-of-contract status, for invariant-violation tests.
func (s *Sim) CorruptOrder(orderID string) {
	if o, ok := s.orders[orderID]; ok {
		o.Status = exchange.OrderStatus("frozen")
	}
}

func (s *Sim) OpenOrder(orderID string) (exchange.Order, bool) {
	o, ok := s.orders[orderID]
	if !ok {
		return exchange.Order{}, false
	}
	return *o, true
}

// ---- exchange.Exchange ----

func (s *Sim) Initialize(ctx context.Context) error {
	s.InitCalls++
	return nil
}

func (s *Sim) RefreshSnapshot(ctx context.Context) (bool, error) {
	if s.RefreshErr != nil {
		err := s.RefreshErr
		s.RefreshErr = nil
		return true, err
	}
	s.refreshCount++
	if s.StopAfterTicks > 0 && s.refreshCount > s.StopAfterTicks {
		return false, nil
	}
	return s.RefreshOK, nil
}

func (s *Sim) Candles(ctx context.Context, instrument string, tf market.Timeframe) (market.Series, error) {
	return s.candles[candleKey{instrument, tf}], nil
}

func (s *Sim) CurrentPrice(ctx context.Context, instrument string) (float64, error) {
	p, ok := s.prices[instrument]
	if !ok {
		return 0, fmt.Errorf("sim: no price for %s", instrument)
	}
	return p, nil
}

func (s *Sim) Balances() map[string]exchange.Balance {
	out := make(map[string]exchange.Balance, len(s.balances)+1)
	for k, v := range s.balances {
		out[k] = v
	}
	if _, ok := out[s.Quote]; !ok {
		out[s.Quote] = exchange.Balance{}
	}
	return out
}

func (s *Sim) QuoteCurrency() string { return s.Quote }

func (s *Sim) TotalBalance(ctx context.Context) (float64, error) {
	total := 0.0
	for currency, bal := range s.balances {
		if currency == s.Quote {
			total += bal.Total
			continue
		}
		if price, ok := s.prices[currency]; ok {
			total += bal.Total * price
		}
	}
	return total, nil
}

func (s *Sim) BuyingCandidates(ctx context.Context) ([]string, error) {
	return append([]string(nil), s.candidates...), nil
}

func (s *Sim) OrderBook(ctx context.Context, instrument string) (market.OrderBook, error) {
	return s.books[instrument], nil
}

func (s *Sim) SubmitLimitOrder(ctx context.Context, instrument string, side exchange.Side, price, quantity float64) (string, error) {
	if s.SubmitErr != nil {
		err := s.SubmitErr
		s.SubmitErr = nil
		return "", err
	}
	s.nextID++
	id := fmt.Sprintf("ord-%d", s.nextID)
	s.orders[id] = &exchange.Order{
		ID:         id,
		Instrument: instrument,
		Side:       side,
		Price:      price,
		Requested:  quantity,
		Status:     exchange.StatusOpen,
	}
	s.SubmittedOrders = append(s.SubmittedOrders, id)
	return id, nil
}

func (s *Sim) SubmitMarketOrder(ctx context.Context, instrument string, side exchange.Side, amount float64) (string, error) {
	if s.SubmitErr != nil {
		err := s.SubmitErr
		s.SubmitErr = nil
		return "", err
	}
	s.nextID++
	id := fmt.Sprintf("ord-%d", s.nextID)
	price := s.prices[instrument]
	order := &exchange.Order{
		ID:         id,
		Instrument: instrument,
		Side:       side,
		Price:      price,
		Requested:  amount,
		Filled:     amount,
		Status:     exchange.StatusClosed,
	}
	s.orders[id] = order
	s.SubmittedOrders = append(s.SubmittedOrders, id)
	if side == exchange.SideSell {
		s.MarketSells = append(s.MarketSells, *order)
		bal := s.balances[instrument]
		bal.Free -= amount
		bal.Total -= amount
		if bal.Free < 0 {
			bal.Free = 0
		}
		if bal.Total <= 0 {
			delete(s.balances, instrument)
		} else {
			s.balances[instrument] = bal
		}
	}
	return id, nil
}

func (s *Sim) Order(ctx context.Context, id string) (exchange.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return exchange.Order{}, fmt.Errorf("sim: unknown order %s", id)
	}
	return *o, nil
}

func (s *Sim) CancelOrder(ctx context.Context, id string) error {
	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("sim: unknown order %s", id)
	}
	if !o.Terminal() {
		o.Status = exchange.StatusCanceled
	}
	return nil
}

func (s *Sim) Now() time.Time { return s.clock }
