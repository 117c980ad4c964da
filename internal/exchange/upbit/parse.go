package upbit

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"upbot/internal/exchange"
	"upbot/internal/market"
)

// marketCode maps an instrument to Upbit's market notation, e.g. BTC ->
// KRW-BTC.
func marketCode(quote, instrument string) string {
	return quote + "-" + instrument
}

func instrumentFromMarket(code string) (string, bool) {
	parts := strings.SplitN(code, "-", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// parseMinuteCandles converts a candle payload to an ascending Series.
// Upbit returns candles newest first.
func parseMinuteCandles(data []byte) market.Series {
	rows := gjson.ParseBytes(data).Array()
	out := make(market.Series, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		out = append(out, market.Candle{
			OpenTime: r.Get("timestamp").Int(),
			Open:     r.Get("opening_price").Float(),
			High:     r.Get("high_price").Float(),
			Low:      r.Get("low_price").Float(),
			Close:    r.Get("trade_price").Float(),
			Volume:   r.Get("candle_acc_trade_volume").Float(),
		})
	}
	return out
}

func parseAccounts(data []byte) map[string]exchange.Balance {
	out := make(map[string]exchange.Balance)
	for _, r := range gjson.ParseBytes(data).Array() {
		currency := r.Get("currency").String()
		if currency == "" {
			continue
		}
		free := r.Get("balance").Float()
		used := r.Get("locked").Float()
		out[currency] = exchange.Balance{
			Free:  free,
			Used:  used,
			Total: free + used,
		}
	}
	return out
}

type tickerInfo struct {
	Price      float64
	Turnover24 float64
}

func parseTickers(data []byte) map[string]tickerInfo {
	out := make(map[string]tickerInfo)
	for _, r := range gjson.ParseBytes(data).Array() {
		inst, ok := instrumentFromMarket(r.Get("market").String())
		if !ok {
			continue
		}
		out[inst] = tickerInfo{
			Price:      r.Get("trade_price").Float(),
			Turnover24: r.Get("acc_trade_price_24h").Float(),
		}
	}
	return out
}

func parseOrderbook(data []byte) market.OrderBook {
	var book market.OrderBook
	units := gjson.GetBytes(data, "0.orderbook_units").Array()
	for _, u := range units {
		book.Bids = append(book.Bids, market.Level{
			Price:  u.Get("bid_price").Float(),
			Volume: u.Get("bid_size").Float(),
		})
		book.Asks = append(book.Asks, market.Level{
			Price:  u.Get("ask_price").Float(),
			Volume: u.Get("ask_size").Float(),
		})
	}
	return book
}

func parseKRWMarkets(data []byte, quote string) []string {
	prefix := quote + "-"
	var out []string
	for _, r := range gjson.ParseBytes(data).Array() {
		code := r.Get("market").String()
		if !strings.HasPrefix(code, prefix) {
			continue
		}
		if inst, ok := instrumentFromMarket(code); ok {
			out = append(out, inst)
		}
	}
	return out
}

// parseOrder maps an Upbit order payload onto the adapter order type.
// States wait/watch are open, done is closed, cancel is canceled; anything
// else is an invariant violation surfaced as ErrUnexpectedOrderStatus.
func parseOrder(data []byte) (exchange.Order, error) {
	r := gjson.ParseBytes(data)
	order := exchange.Order{
		ID:        r.Get("uuid").String(),
		Price:     r.Get("price").Float(),
		Requested: r.Get("volume").Float(),
		Filled:    r.Get("executed_volume").Float(),
	}
	if inst, ok := instrumentFromMarket(r.Get("market").String()); ok {
		order.Instrument = inst
	}
	switch side := r.Get("side").String(); side {
	case "bid":
		order.Side = exchange.SideBuy
	case "ask":
		order.Side = exchange.SideSell
	default:
		return order, fmt.Errorf("%w: side=%q", exchange.ErrUnexpectedOrderStatus, side)
	}
	switch state := r.Get("state").String(); state {
	case "wait", "watch":
		order.Status = exchange.StatusOpen
	case "done":
		order.Status = exchange.StatusClosed
	case "cancel":
		order.Status = exchange.StatusCanceled
	default:
		return order, fmt.Errorf("%w: state=%q", exchange.ErrUnexpectedOrderStatus, state)
	}
	// market orders carry no limit price; fall back to the volume-weighted
	// trade price so fills can be absorbed into the cost basis
	if order.Price == 0 && order.Filled > 0 {
		var funds, volume float64
		for _, tr := range r.Get("trades").Array() {
			funds += tr.Get("funds").Float()
			volume += tr.Get("volume").Float()
		}
		if volume > 0 {
			order.Price = funds / volume
		}
	}
	return order, nil
}
