package agent

import (
	"context"

	"upbot/internal/exchange"
)

// OrderPlan is a concrete order a strategy wants placed.
type OrderPlan struct {
	Price    float64
	Quantity float64
}

// Notional is the quote value of the plan.
func (p OrderPlan) Notional() float64 { return p.Price * p.Quantity }

// Strategy decides when and how to trade. The agent owns the order
// lifecycle and per-instrument state; strategies only read them.
type Strategy interface {
	Name() string

	// BuyingCandidates filters or extends the exchange's candidate set.
	BuyingCandidates(ctx context.Context, ex exchange.Exchange) ([]string, error)

	IsBuyTiming(ctx context.Context, ex exchange.Exchange, instrument string) (bool, error)
	IsSellTiming(ctx context.Context, ex exchange.Exchange, instrument string) (bool, error)

	// PlanBuy sizes a buy for the current state. ok is false when the
	// sizing rules produce no actionable order.
	PlanBuy(ctx context.Context, ex exchange.Exchange, instrument string, st *State) (plan OrderPlan, ok bool, err error)

	// PlanSell sizes a sell of the currently free position.
	PlanSell(ctx context.Context, ex exchange.Exchange, instrument string, st *State) (plan OrderPlan, ok bool, err error)
}

// Sizing holds the shared order sizing knobs.
type Sizing struct {
	// BalanceDivisor splits total balance into tranches, default 5.
	BalanceDivisor float64
	// ReserveMargin is quote cash never spent, default 100.
	ReserveMargin float64
	// MinNotional is the exchange's minimum order value, default 6000.
	MinNotional float64
}

func (s *Sizing) applyDefaults() {
	if s.BalanceDivisor <= 0 {
		s.BalanceDivisor = 5
	}
	if s.ReserveMargin <= 0 {
		s.ReserveMargin = 100
	}
	if s.MinNotional <= 0 {
		s.MinNotional = 6000
	}
}
