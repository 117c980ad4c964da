// Package exchange defines the adapter contract the trading agent speaks to
// a single exchange through, plus the order and balance types shared by the
// live gateway and the simulator.
package exchange

import (
	"context"
	"errors"
	"time"

	"upbot/internal/market"
)

// Side of an order, in exchange terms.
type Side string

const (
	SideBuy  Side = "bid"
	SideSell Side = "ask"
)

// OrderStatus as observed from the exchange. Anything outside this set is an
// invariant violation, see ErrUnexpectedOrderStatus.
type OrderStatus string

const (
	StatusOpen     OrderStatus = "open"
	StatusClosed   OrderStatus = "closed"
	StatusCanceled OrderStatus = "canceled"
)

// ErrUnexpectedOrderStatus signals an order status outside the known
// lifecycle. The agent treats it as fatal for the tick and reinitializes the
// adapter.
var ErrUnexpectedOrderStatus = errors.New("unexpected order status")

// Order is the exchange-side view of an order. Mutated only by the exchange;
// the agent observes it via polling.
type Order struct {
	ID         string
	Instrument string
	Side       Side
	Price      float64
	Requested  float64
	Filled     float64
	Status     OrderStatus
}

// Remaining is the unfilled quantity, never negative.
func (o Order) Remaining() float64 {
	r := o.Requested - o.Filled
	if r < 0 {
		return 0
	}
	return r
}

func (o Order) Terminal() bool {
	return o.Status == StatusClosed || o.Status == StatusCanceled
}

// Balance of a single currency.
type Balance struct {
	Free  float64
	Used  float64
	Total float64
}

// Exchange is the adapter contract consumed by the agent. Implementations
// own the per-tick market data snapshot; candle and ticker reads within one
// tick are served from it.
type Exchange interface {
	// Initialize establishes or refreshes the session. Idempotent; the agent
	// calls it again after any tick failure.
	Initialize(ctx context.Context) error

	// RefreshSnapshot pulls balances and tickers for the tick. A false return
	// signals the adapter-side stop condition and ends the trading loop.
	RefreshSnapshot(ctx context.Context) (bool, error)

	// Candles returns the OHLCV window for the timeframe, or nil when the
	// instrument is not tradable this tick (missing data is not an error).
	Candles(ctx context.Context, instrument string, tf market.Timeframe) (market.Series, error)

	CurrentPrice(ctx context.Context, instrument string) (float64, error)

	// Balances returns the snapshot balances, always including the quote
	// currency.
	Balances() map[string]Balance

	// QuoteCurrency is the cash currency every instrument trades against.
	QuoteCurrency() string

	// TotalBalance values all holdings in the quote currency.
	TotalBalance(ctx context.Context) (float64, error)

	BuyingCandidates(ctx context.Context) ([]string, error)

	OrderBook(ctx context.Context, instrument string) (market.OrderBook, error)

	// SubmitLimitOrder places a limit order and returns the opaque order id.
	SubmitLimitOrder(ctx context.Context, instrument string, side Side, price, quantity float64) (string, error)

	// SubmitMarketOrder places a market order. For buys amount is quote
	// notional, for sells it is base quantity.
	SubmitMarketOrder(ctx context.Context, instrument string, side Side, amount float64) (string, error)

	Order(ctx context.Context, id string) (Order, error)

	// CancelOrder is a no-op if the order is already terminal.
	CancelOrder(ctx context.Context, id string) error

	// Now is the exchange clock, used for cooldowns and stale-order ageing so
	// simulators can drive time.
	Now() time.Time
}
