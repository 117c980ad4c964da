package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upbot/internal/agent"
)

func TestWriteRendersHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.html")
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	history := []agent.BalancePoint{
		{At: start, Total: 100000, Profit: 0},
		{At: start.Add(time.Minute), Total: 100500, Profit: 500},
		{At: start.Add(2 * time.Minute), Total: 100200, Profit: 500},
	}
	instruments := []agent.InstrumentStatus{
		{Instrument: "KRW-BTC", RealizedProfit: 500},
		{Instrument: "KRW-ETH", RealizedProfit: -120},
	}
	require.NoError(t, Write(path, history, instruments))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "balance")
	assert.Contains(t, html, "profit")
	assert.Contains(t, html, "KRW-BTC")
	assert.Contains(t, html, "echarts")
}

func TestWriteSkipsShortHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, Write(path, []agent.BalancePoint{{Total: 1}}, nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
