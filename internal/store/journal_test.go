package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upbot/internal/agent"
	"upbot/internal/exchange"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalRoundTrip(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	err := j.RecordOrder(ctx, exchange.Order{
		ID: "ord-1", Instrument: "XRP", Side: exchange.SideBuy,
		Price: 800, Requested: 10, Status: exchange.StatusOpen,
	}, "buy #1")
	require.NoError(t, err)

	err = j.RecordTrade(ctx, agent.Trade{
		Instrument: "XRP", Side: exchange.SideSell,
		Price: 850, Amount: 10, Profit: 500, At: time.Now(),
	})
	require.NoError(t, err)

	orders, err := j.RecentOrders(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ord-1", orders[0].OrderID)
	assert.Equal(t, "bid", orders[0].Side)
	assert.JSONEq(t, `{"ID":"ord-1","Instrument":"XRP","Side":"bid","Price":800,"Requested":10,"Filled":0,"Status":"open"}`, string(orders[0].Raw))

	trades, err := j.RecentTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.InDelta(t, 500.0, trades[0].Profit, 1e-9)
}

func TestJournalRecentOrdersNewestFirst(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, j.RecordOrder(ctx, exchange.Order{
			ID: id, Instrument: "BTC", Side: exchange.SideBuy, Price: float64(i),
		}, ""))
	}
	orders, err := j.RecentOrders(ctx, 2)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "c", orders[0].OrderID)
	assert.Equal(t, "b", orders[1].OrderID)
}

func TestJournalAppliesConnectionPragmas(t *testing.T) {
	j := openTestJournal(t)

	var mode string
	require.NoError(t, j.db.Raw("PRAGMA journal_mode").Scan(&mode).Error)
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, j.db.Raw("PRAGMA busy_timeout").Scan(&timeout).Error)
	assert.Equal(t, 5000, timeout)
}

func TestJournalRejectsEmptyPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}
