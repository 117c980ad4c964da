package agent

import (
	"time"

	"upbot/internal/market"
)

// tradableTimeframe is the window whose availability decides whether an
// instrument participates in a tick at all.
const tradableTimeframe = market.TF1m

// InstrumentStatus is the externally visible slice of one instrument's
// state.
type InstrumentStatus struct {
	Instrument     string  `json:"instrument"`
	BuyCount       int     `json:"buy_count"`
	SellCount      int     `json:"sell_count"`
	Position       float64 `json:"position"`
	AvgEntryPrice  float64 `json:"avg_entry_price"`
	RealizedProfit float64 `json:"realized_profit"`
	PendingBuys    int     `json:"pending_buys"`
	PendingSells   int     `json:"pending_sells"`
	Monitoring     bool    `json:"monitoring"`
}

// Snapshot is the agent's state at the end of a tick.
type Snapshot struct {
	At           time.Time          `json:"at"`
	TotalBalance float64            `json:"total_balance"`
	TopBalance   float64            `json:"top_balance"`
	TotalProfit  float64            `json:"total_profit"`
	Strategy     string             `json:"strategy"`
	Instruments  []InstrumentStatus `json:"instruments"`
}

// BalancePoint is one sample of the equity curve.
type BalancePoint struct {
	At     time.Time
	Total  float64
	Profit float64
}

func (a *Agent) publishSnapshot(total float64) {
	now := a.ex.Now()
	snap := Snapshot{
		At:           now,
		TotalBalance: total,
		TopBalance:   a.topBalance,
		TotalProfit:  a.TotalProfit(),
		Strategy:     a.strat.Name(),
	}
	for _, inst := range sortedKeys(a.states) {
		st := a.states[inst]
		snap.Instruments = append(snap.Instruments, InstrumentStatus{
			Instrument:     inst,
			BuyCount:       st.BuyCount,
			SellCount:      st.SellCount,
			Position:       st.Position,
			AvgEntryPrice:  st.AvgEntryPrice,
			RealizedProfit: st.RealizedProfit,
			PendingBuys:    len(st.PendingBuys),
			PendingSells:   len(st.PendingSells),
			Monitoring:     a.monitoring[inst],
		})
	}
	a.mu.Lock()
	a.snap = snap
	a.history = append(a.history, BalancePoint{At: now, Total: total, Profit: snap.TotalProfit})
	a.mu.Unlock()
}

// Snapshot returns the last published tick snapshot.
func (a *Agent) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}

// History returns the balance samples collected so far.
func (a *Agent) History() []BalancePoint {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]BalancePoint(nil), a.history...)
}
