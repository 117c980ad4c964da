package upbit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upbot/internal/exchange"
)

const candlePayload = `[
  {"market":"KRW-BTC","timestamp":1700000120000,"opening_price":101.0,"high_price":103.0,"low_price":100.0,"trade_price":102.0,"candle_acc_trade_volume":3.5},
  {"market":"KRW-BTC","timestamp":1700000060000,"opening_price":100.0,"high_price":102.0,"low_price":99.0,"trade_price":101.0,"candle_acc_trade_volume":2.0}
]`

func TestParseMinuteCandlesAscending(t *testing.T) {
	series := parseMinuteCandles([]byte(candlePayload))
	require.Len(t, series, 2)
	assert.Less(t, series[0].OpenTime, series[1].OpenTime)
	assert.Equal(t, 101.0, series[0].Close)
	assert.Equal(t, 102.0, series.Last().Close)
}

func TestParseAccounts(t *testing.T) {
	payload := `[
	  {"currency":"KRW","balance":"50000.0","locked":"1000.0"},
	  {"currency":"BTC","balance":"0.5","locked":"0"}
	]`
	balances := parseAccounts([]byte(payload))
	require.Contains(t, balances, "KRW")
	assert.InDelta(t, 50000.0, balances["KRW"].Free, 1e-9)
	assert.InDelta(t, 51000.0, balances["KRW"].Total, 1e-9)
	assert.InDelta(t, 0.5, balances["BTC"].Free, 1e-9)
}

func TestParseOrderStates(t *testing.T) {
	cases := []struct {
		state string
		want  exchange.OrderStatus
	}{
		{"wait", exchange.StatusOpen},
		{"watch", exchange.StatusOpen},
		{"done", exchange.StatusClosed},
		{"cancel", exchange.StatusCanceled},
	}
	for _, tc := range cases {
		payload := `{"uuid":"abc","market":"KRW-ETH","side":"bid","state":"` + tc.state + `","price":"1000","volume":"2","executed_volume":"1"}`
		order, err := parseOrder([]byte(payload))
		require.NoError(t, err, tc.state)
		assert.Equal(t, tc.want, order.Status)
		assert.Equal(t, "ETH", order.Instrument)
		assert.Equal(t, exchange.SideBuy, order.Side)
		assert.InDelta(t, 1.0, order.Remaining(), 1e-9)
	}
}

func TestParseOrderUnexpectedState(t *testing.T) {
	payload := `{"uuid":"abc","market":"KRW-ETH","side":"bid","state":"frozen","price":"1000","volume":"2","executed_volume":"0"}`
	_, err := parseOrder([]byte(payload))
	require.Error(t, err)
	assert.ErrorIs(t, err, exchange.ErrUnexpectedOrderStatus)
}

func TestParseOrderMarketFillPrice(t *testing.T) {
	payload := `{"uuid":"abc","market":"KRW-ETH","side":"ask","state":"done","volume":"2","executed_volume":"2",
	  "trades":[{"funds":"1000","volume":"1"},{"funds":"1100","volume":"1"}]}`
	order, err := parseOrder([]byte(payload))
	require.NoError(t, err)
	assert.InDelta(t, 1050.0, order.Price, 1e-9)
}

func TestParseTickersAndMarkets(t *testing.T) {
	tickers := parseTickers([]byte(`[
	  {"market":"KRW-BTC","trade_price":70000000.0,"acc_trade_price_24h":2.5e11},
	  {"market":"KRW-XRP","trade_price":800.0,"acc_trade_price_24h":5.0e10}
	]`))
	require.Contains(t, tickers, "BTC")
	assert.InDelta(t, 2.5e11, tickers["BTC"].Turnover24, 1e-3)

	markets := parseKRWMarkets([]byte(`[
	  {"market":"KRW-BTC"},{"market":"BTC-ETH"},{"market":"KRW-XRP"}
	]`), "KRW")
	assert.Equal(t, []string{"BTC", "XRP"}, markets)
}

func TestParseOrderbook(t *testing.T) {
	payload := `[{"market":"KRW-BTC","orderbook_units":[
	  {"ask_price":101.0,"bid_price":100.0,"ask_size":1.5,"bid_size":6.0},
	  {"ask_price":102.0,"bid_price":99.0,"ask_size":0.5,"bid_size":1.0}
	]}]`
	book := parseOrderbook([]byte(payload))
	require.Len(t, book.Bids, 2)
	assert.InDelta(t, 7.0, book.BidVolume(), 1e-9)
	assert.InDelta(t, 2.0, book.AskVolume(), 1e-9)
}

func TestAuthTokenShape(t *testing.T) {
	c := NewClient("", "access", "secret")
	token, err := c.authToken("market=KRW-BTC")
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)
}
