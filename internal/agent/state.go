package agent

import (
	"sort"
	"time"
)

// buyCountHistoryCap bounds the completed buy-run history; the oldest entry
// drops out when full.
const buyCountHistoryCap = 5

// PendingOrder references an order the agent submitted and has not yet seen
// reach a terminal status.
type PendingOrder struct {
	ID          string
	SubmittedAt time.Time
}

// State is the mutable trading record for one instrument. Created on first
// sighting, it lives for the process lifetime and is mutated only by the
// agent loop.
type State struct {
	BuyCount  int
	SellCount int

	buyCountHistory []int

	PendingBuys  []PendingOrder
	PendingSells []PendingOrder

	AvgEntryPrice  float64
	Position       float64
	RealizedProfit float64

	LastBuyAt  time.Time
	LastSellAt time.Time
}

func newState() *State {
	// a single zero seed makes the first skip criterion -1, so the very
	// first buy signal is actionable
	return &State{buyCountHistory: []int{0}}
}

// SkipCriterion is median(buy count history) - 1. Orders are only placed
// while BuyCount exceeds it.
func (s *State) SkipCriterion() float64 {
	if len(s.buyCountHistory) == 0 {
		return -1
	}
	return medianInt(s.buyCountHistory) - 1
}

// CloseBuyCycle records the finished buy run into the bounded history and
// resets the counter. Zero-length runs are not recorded.
func (s *State) CloseBuyCycle() {
	if s.BuyCount > 0 {
		s.buyCountHistory = append(s.buyCountHistory, s.BuyCount)
		if len(s.buyCountHistory) > buyCountHistoryCap {
			s.buyCountHistory = s.buyCountHistory[len(s.buyCountHistory)-buyCountHistoryCap:]
		}
	}
	s.BuyCount = 0
}

// BuyCountHistory returns a copy of the recorded buy runs.
func (s *State) BuyCountHistory() []int {
	return append([]int(nil), s.buyCountHistory...)
}

// SeedBuyCountHistory replaces the history, mainly for tests and restarts.
func (s *State) SeedBuyCountHistory(values ...int) {
	s.buyCountHistory = append([]int(nil), values...)
}

// AbsorbBuyFills folds executed buy fills into the volume-weighted average
// entry price and open position.
func (s *State) AbsorbBuyFills(prices, amounts []float64) {
	var fillValue, fillAmount float64
	for i := range amounts {
		fillValue += prices[i] * amounts[i]
		fillAmount += amounts[i]
	}
	if fillAmount <= 0 {
		return
	}
	s.AvgEntryPrice = (s.AvgEntryPrice*s.Position + fillValue) / (s.Position + fillAmount)
	s.Position += fillAmount
}

// SettleSellFills folds executed sell fills into realized profit and reduces
// the open position. Profit is recognized against at most the tracked
// position, so over-filled sells cannot over-credit.
func (s *State) SettleSellFills(prices, amounts []float64) (avgPrice, amount, profit float64) {
	var fillValue, fillAmount float64
	for i := range amounts {
		fillValue += prices[i] * amounts[i]
		fillAmount += amounts[i]
	}
	if fillAmount <= 0 {
		return 0, 0, 0
	}
	avgPrice = fillValue / fillAmount
	matched := fillAmount
	if matched > s.Position {
		matched = s.Position
	}
	profit = (avgPrice - s.AvgEntryPrice) * matched
	s.RealizedProfit += profit
	s.Position -= fillAmount
	if s.Position < 0 {
		s.Position = 0
	}
	return avgPrice, fillAmount, profit
}

func medianInt(values []int) float64 {
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}
