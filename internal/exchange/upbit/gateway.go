package upbit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"upbot/internal/exchange"
	"upbot/internal/logger"
	"upbot/internal/market"
)

// Options configures the live gateway.
type Options struct {
	BaseURL       string
	AccessKey     string
	SecretKey     string
	QuoteCurrency string  // default KRW
	Flagship      string  // always a buying candidate, default BTC
	OnlyFlagship  bool    // restrict candidates to the flagship
	TurnoverFloor float64 // 24h quote turnover below which a market is ignored
	CandleCount   int     // candles per window request
}

func (o *Options) applyDefaults() {
	if o.QuoteCurrency == "" {
		o.QuoteCurrency = "KRW"
	}
	if o.Flagship == "" {
		o.Flagship = "BTC"
	}
	if o.TurnoverFloor <= 0 {
		o.TurnoverFloor = 100_000_000_000
	}
	if o.CandleCount <= 0 {
		o.CandleCount = 200
	}
}

type candleKey struct {
	instrument string
	tf         market.Timeframe
}

// Gateway implements exchange.Exchange against Upbit. It owns the per-tick
// snapshot: balances and tickers refresh once per tick, candle windows are
// fetched lazily and cached until the next RefreshSnapshot.
type Gateway struct {
	opts     Options
	client   *Client
	markets  []string
	balances map[string]exchange.Balance
	tickers  map[string]tickerInfo
	candles  map[candleKey]market.Series
}

var _ exchange.Exchange = (*Gateway)(nil)

func New(opts Options) *Gateway {
	opts.applyDefaults()
	return &Gateway{
		opts:     opts,
		client:   NewClient(opts.BaseURL, opts.AccessKey, opts.SecretKey),
		balances: make(map[string]exchange.Balance),
		tickers:  make(map[string]tickerInfo),
		candles:  make(map[candleKey]market.Series),
	}
}

// Client exposes the underlying REST client for tests.
func (g *Gateway) Client() *Client { return g.client }

func (g *Gateway) Initialize(ctx context.Context) error {
	data, err := g.client.get(ctx, "/v1/market/all", nil, false)
	if err != nil {
		return fmt.Errorf("load markets: %w", err)
	}
	markets := parseKRWMarkets(data, g.opts.QuoteCurrency)
	if len(markets) == 0 {
		return fmt.Errorf("no %s markets returned", g.opts.QuoteCurrency)
	}
	g.markets = markets

	// authenticated call doubles as a key check
	accounts, err := g.client.get(ctx, "/v1/accounts", nil, true)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	g.balances = parseAccounts(accounts)
	g.candles = make(map[candleKey]market.Series)
	return nil
}

func (g *Gateway) RefreshSnapshot(ctx context.Context) (bool, error) {
	g.candles = make(map[candleKey]market.Series)

	accounts, err := g.client.get(ctx, "/v1/accounts", nil, true)
	if err != nil {
		return true, fmt.Errorf("refresh balances: %w", err)
	}
	g.balances = parseAccounts(accounts)

	codes := make([]string, 0, len(g.markets))
	for _, inst := range g.markets {
		codes = append(codes, marketCode(g.opts.QuoteCurrency, inst))
	}
	query := url.Values{"markets": {strings.Join(codes, ",")}}
	tickers, err := g.client.get(ctx, "/v1/ticker", query, false)
	if err != nil {
		return true, fmt.Errorf("refresh tickers: %w", err)
	}
	g.tickers = parseTickers(tickers)
	return true, nil
}

func (g *Gateway) Candles(ctx context.Context, instrument string, tf market.Timeframe) (market.Series, error) {
	if !tf.Valid() {
		return nil, fmt.Errorf("invalid timeframe %q", tf)
	}
	key := candleKey{instrument: instrument, tf: tf}
	if cached, ok := g.candles[key]; ok {
		return cached, nil
	}
	query := url.Values{
		"market": {marketCode(g.opts.QuoteCurrency, instrument)},
		"count":  {strconv.Itoa(g.opts.CandleCount)},
	}
	path := fmt.Sprintf("/v1/candles/minutes/%d", tf.Minutes())
	data, err := g.client.get(ctx, path, query, false)
	if err != nil {
		// missing market data defers the instrument, it is not a tick error
		logger.Debugf("candles %s %s unavailable: %v", instrument, tf, err)
		return nil, nil
	}
	series := parseMinuteCandles(data)
	if len(series) == 0 {
		return nil, nil
	}
	g.candles[key] = series
	return series, nil
}

func (g *Gateway) CurrentPrice(ctx context.Context, instrument string) (float64, error) {
	if t, ok := g.tickers[instrument]; ok && t.Price > 0 {
		return t.Price, nil
	}
	query := url.Values{"markets": {marketCode(g.opts.QuoteCurrency, instrument)}}
	data, err := g.client.get(ctx, "/v1/ticker", query, false)
	if err != nil {
		return 0, fmt.Errorf("ticker %s: %w", instrument, err)
	}
	parsed := parseTickers(data)
	t, ok := parsed[instrument]
	if !ok || t.Price <= 0 {
		return 0, fmt.Errorf("no ticker price for %s", instrument)
	}
	g.tickers[instrument] = t
	return t.Price, nil
}

func (g *Gateway) Balances() map[string]exchange.Balance {
	out := make(map[string]exchange.Balance, len(g.balances))
	for k, v := range g.balances {
		out[k] = v
	}
	if _, ok := out[g.opts.QuoteCurrency]; !ok {
		out[g.opts.QuoteCurrency] = exchange.Balance{}
	}
	return out
}

func (g *Gateway) QuoteCurrency() string { return g.opts.QuoteCurrency }

func (g *Gateway) TotalBalance(ctx context.Context) (float64, error) {
	total := 0.0
	for currency, bal := range g.balances {
		if currency == g.opts.QuoteCurrency {
			total += bal.Total
			continue
		}
		if bal.Total <= 0 {
			continue
		}
		price, err := g.CurrentPrice(ctx, currency)
		if err != nil {
			logger.Warnf("total balance: no price for %s, holding skipped: %v", currency, err)
			continue
		}
		total += bal.Total * price
	}
	return total, nil
}

func (g *Gateway) BuyingCandidates(ctx context.Context) ([]string, error) {
	out := []string{g.opts.Flagship}
	if g.opts.OnlyFlagship {
		return out, nil
	}
	for inst, t := range g.tickers {
		if inst == g.opts.Flagship {
			continue
		}
		if t.Turnover24 > g.opts.TurnoverFloor {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (g *Gateway) OrderBook(ctx context.Context, instrument string) (market.OrderBook, error) {
	query := url.Values{"markets": {marketCode(g.opts.QuoteCurrency, instrument)}}
	data, err := g.client.get(ctx, "/v1/orderbook", query, false)
	if err != nil {
		return market.OrderBook{}, fmt.Errorf("orderbook %s: %w", instrument, err)
	}
	return parseOrderbook(data), nil
}

func (g *Gateway) SubmitLimitOrder(ctx context.Context, instrument string, side exchange.Side, price, quantity float64) (string, error) {
	query := url.Values{
		"market":   {marketCode(g.opts.QuoteCurrency, instrument)},
		"side":     {string(side)},
		"ord_type": {"limit"},
		"price":    {formatFloat(price)},
		"volume":   {formatFloat(quantity)},
	}
	return g.submitOrder(ctx, query)
}

func (g *Gateway) SubmitMarketOrder(ctx context.Context, instrument string, side exchange.Side, amount float64) (string, error) {
	query := url.Values{
		"market": {marketCode(g.opts.QuoteCurrency, instrument)},
		"side":   {string(side)},
	}
	if side == exchange.SideBuy {
		// market buys spend quote notional
		query.Set("ord_type", "price")
		query.Set("price", formatFloat(amount))
	} else {
		query.Set("ord_type", "market")
		query.Set("volume", formatFloat(amount))
	}
	return g.submitOrder(ctx, query)
}

func (g *Gateway) submitOrder(ctx context.Context, query url.Values) (string, error) {
	data, err := g.client.post(ctx, "/v1/orders", query)
	if err != nil {
		return "", err
	}
	order, err := parseOrder(data)
	if err != nil {
		return "", err
	}
	if order.ID == "" {
		return "", fmt.Errorf("order submission returned no id")
	}
	return order.ID, nil
}

func (g *Gateway) Order(ctx context.Context, id string) (exchange.Order, error) {
	query := url.Values{"uuid": {id}}
	data, err := g.client.get(ctx, "/v1/order", query, true)
	if err != nil {
		return exchange.Order{}, err
	}
	return parseOrder(data)
}

func (g *Gateway) CancelOrder(ctx context.Context, id string) error {
	query := url.Values{"uuid": {id}}
	_, err := g.client.delete(ctx, "/v1/order", query)
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		// already filled or canceled: confirm terminal state and move on
		order, qerr := g.Order(ctx, id)
		if qerr == nil && order.Terminal() {
			return nil
		}
	}
	return err
}

func (g *Gateway) Now() time.Time { return time.Now() }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
