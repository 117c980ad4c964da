// Package agent runs the self-directed trading loop: evaluate strategy
// signals per tick, drive the order lifecycle, and survive adapter failures
// by reinitializing instead of exiting.
package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"upbot/internal/exchange"
	"upbot/internal/logger"
	"upbot/internal/scheduler"
)

// Config holds the loop timing and stop parameters.
type Config struct {
	TickInterval     time.Duration
	BuyCooldown      time.Duration
	SellCooldown     time.Duration
	StaleSellTimeout time.Duration
	// Retention stops trading when total balance falls below
	// top balance times this fraction.
	Retention   float64
	IncidentDir string
}

func (c *Config) applyDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Minute
	}
	if c.BuyCooldown <= 0 {
		c.BuyCooldown = 10 * time.Minute
	}
	if c.SellCooldown <= 0 {
		c.SellCooldown = 10 * time.Minute
	}
	if c.StaleSellTimeout <= 0 {
		c.StaleSellTimeout = 30 * time.Minute
	}
	if c.Retention <= 0 || c.Retention >= 1 {
		c.Retention = 0.9
	}
	if c.IncidentDir == "" {
		c.IncidentDir = "incidents"
	}
}

// Trade is a realized round-trip settlement, reported to the journal.
type Trade struct {
	Instrument string
	Side       exchange.Side
	Price      float64
	Amount     float64
	Profit     float64
	At         time.Time
}

// Journal persists order submissions and settled trades. Implementations
// must tolerate being called on every tick; failures are logged, never
// fatal.
type Journal interface {
	RecordOrder(ctx context.Context, order exchange.Order, note string) error
	RecordTrade(ctx context.Context, trade Trade) error
}

// Notifier pushes human-facing trade events.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Agent owns all per-instrument state and runs the tick loop against one
// exchange adapter.
type Agent struct {
	cfg      Config
	ex       exchange.Exchange
	strat    Strategy
	journal  Journal
	notifier Notifier

	states     map[string]*State
	monitoring map[string]bool
	topBalance float64
	liquidated bool

	mu      sync.RWMutex
	snap    Snapshot
	history []BalancePoint
}

func New(cfg Config, ex exchange.Exchange, strat Strategy) *Agent {
	cfg.applyDefaults()
	return &Agent{
		cfg:        cfg,
		ex:         ex,
		strat:      strat,
		states:     make(map[string]*State),
		monitoring: make(map[string]bool),
	}
}

func (a *Agent) SetJournal(j Journal)   { a.journal = j }
func (a *Agent) SetNotifier(n Notifier) { a.notifier = n }

func (a *Agent) state(instrument string) *State {
	st, ok := a.states[instrument]
	if !ok {
		st = newState()
		a.states[instrument] = st
	}
	return st
}

// TotalProfit sums realized profit across instruments.
func (a *Agent) TotalProfit() float64 {
	var sum float64
	for _, st := range a.states {
		sum += st.RealizedProfit
	}
	return sum
}

// Run drives the supervised tick loop until the context is canceled, the
// adapter signals its stop condition, or the drawdown stop trips. A failed
// tick is logged and dumped, the adapter is reinitialized, and the loop
// continues. Holdings are liquidated on the way out.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.ex.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize exchange: %w", err)
	}
	total, err := a.ex.TotalBalance(ctx)
	if err != nil {
		return fmt.Errorf("starting balance: %w", err)
	}
	a.topBalance = total
	logger.Infof("trading started strategy=%s total=%.0f", a.strat.Name(), total)
	a.notify(ctx, fmt.Sprintf("trading started, balance %.0f", total))

	pacer := scheduler.NewPacer(a.cfg.TickInterval)
	for ctx.Err() == nil {
		pacer.Mark()
		cont, err := a.tick(ctx)
		if err != nil {
			logger.Errorf("tick failed: %v", err)
			logger.DumpIncident(a.cfg.IncidentDir, err)
			if ierr := a.ex.Initialize(ctx); ierr != nil {
				logger.Errorf("reinitialize exchange: %v", ierr)
			}
		} else if !cont {
			break
		}
		if !pacer.Wait(ctx) {
			break
		}
	}
	a.Liquidate(context.WithoutCancel(ctx))
	return nil
}

// tick runs one full pass. The returned bool is false when trading should
// stop; any error aborts the rest of the tick and triggers the supervisor.
func (a *Agent) tick(ctx context.Context) (bool, error) {
	cont, err := a.ex.RefreshSnapshot(ctx)
	if err != nil {
		return true, err
	}
	if !cont {
		logger.Infof("exchange signaled end of trading")
		return false, nil
	}

	total, err := a.ex.TotalBalance(ctx)
	if err != nil {
		return true, err
	}
	if total > a.topBalance {
		a.topBalance = total
	}
	if total < a.topBalance*a.cfg.Retention {
		logger.Warnf("drawdown stop: total=%.0f top=%.0f retention=%.2f", total, a.topBalance, a.cfg.Retention)
		a.notify(ctx, fmt.Sprintf("drawdown stop hit, balance %.0f", total))
		return false, nil
	}

	if err := a.buyPass(ctx); err != nil {
		return true, err
	}
	if err := a.sellPass(ctx); err != nil {
		return true, err
	}
	if err := a.reconcile(ctx); err != nil {
		return true, err
	}

	a.publishSnapshot(total)
	logger.Infof("tick done total=%.0f profit=%.0f monitored=%d", total, a.TotalProfit(), len(a.monitoring))
	return true, nil
}

func (a *Agent) buyPass(ctx context.Context) error {
	candidates, err := a.strat.BuyingCandidates(ctx, a.ex)
	if err != nil {
		return fmt.Errorf("buying candidates: %w", err)
	}
	set := make(map[string]bool, len(candidates)+len(a.monitoring))
	for _, inst := range candidates {
		set[inst] = true
	}
	for inst := range a.monitoring {
		set[inst] = true
	}
	now := a.ex.Now()
	for _, inst := range sortedKeys(set) {
		st := a.state(inst)
		if now.Sub(st.LastBuyAt) < a.cfg.BuyCooldown {
			continue
		}
		tradable, err := a.tradable(ctx, inst)
		if err != nil {
			return err
		}
		if !tradable {
			continue
		}
		timing, err := a.strat.IsBuyTiming(ctx, a.ex, inst)
		if err != nil {
			return fmt.Errorf("buy timing %s: %w", inst, err)
		}
		if !timing {
			continue
		}
		a.monitoring[inst] = true
		st.LastBuyAt = now
		st.BuyCount++
		st.SellCount = 0
		plan, ok, err := a.strat.PlanBuy(ctx, a.ex, inst, st)
		if err != nil {
			return fmt.Errorf("plan buy %s: %w", inst, err)
		}
		if !ok {
			logger.Debugf("buy %s #%d skipped by sizing (skip=%.1f)", inst, st.BuyCount, st.SkipCriterion())
			continue
		}
		id, err := a.ex.SubmitLimitOrder(ctx, inst, exchange.SideBuy, plan.Price, plan.Quantity)
		if err != nil {
			// a rejected order does not poison the tick
			logger.Errorf("submit buy %s: %v", inst, err)
			logger.DumpIncident(a.cfg.IncidentDir, err)
			continue
		}
		st.PendingBuys = append(st.PendingBuys, PendingOrder{ID: id, SubmittedAt: now})
		a.recordOrder(ctx, exchange.Order{
			ID: id, Instrument: inst, Side: exchange.SideBuy,
			Price: plan.Price, Requested: plan.Quantity, Status: exchange.StatusOpen,
		}, fmt.Sprintf("buy #%d", st.BuyCount))
		logger.Infof("buy %s #%d price=%.8g qty=%.8g notional=%.0f", inst, st.BuyCount, plan.Price, plan.Quantity, plan.Notional())
		a.notify(ctx, fmt.Sprintf("buy %s at %.8g for %.0f", inst, plan.Price, plan.Notional()))
	}
	return nil
}

func (a *Agent) sellPass(ctx context.Context) error {
	set := make(map[string]bool, len(a.monitoring))
	for inst := range a.monitoring {
		set[inst] = true
	}
	quote := a.ex.QuoteCurrency()
	for currency, bal := range a.ex.Balances() {
		if currency != quote && bal.Total > 0 {
			set[currency] = true
		}
	}
	now := a.ex.Now()
	for _, inst := range sortedKeys(set) {
		st := a.state(inst)
		if now.Sub(st.LastSellAt) < a.cfg.SellCooldown {
			continue
		}
		tradable, err := a.tradable(ctx, inst)
		if err != nil {
			return err
		}
		if !tradable {
			continue
		}
		timing, err := a.strat.IsSellTiming(ctx, a.ex, inst)
		if err != nil {
			return fmt.Errorf("sell timing %s: %w", inst, err)
		}
		if !timing {
			continue
		}
		delete(a.monitoring, inst)
		if err := a.absorbBuyFills(ctx, inst, st); err != nil {
			return err
		}
		st.CloseBuyCycle()
		// the cooldown starts at the signal even when nothing is sellable
		st.LastSellAt = now
		if a.ex.Balances()[inst].Free <= 0 {
			continue
		}
		st.SellCount++
		plan, ok, err := a.strat.PlanSell(ctx, a.ex, inst, st)
		if err != nil {
			return fmt.Errorf("plan sell %s: %w", inst, err)
		}
		if !ok {
			continue
		}
		id, err := a.ex.SubmitLimitOrder(ctx, inst, exchange.SideSell, plan.Price, plan.Quantity)
		if err != nil {
			logger.Errorf("submit sell %s: %v", inst, err)
			logger.DumpIncident(a.cfg.IncidentDir, err)
			continue
		}
		st.PendingSells = append(st.PendingSells, PendingOrder{ID: id, SubmittedAt: now})
		a.recordOrder(ctx, exchange.Order{
			ID: id, Instrument: inst, Side: exchange.SideSell,
			Price: plan.Price, Requested: plan.Quantity, Status: exchange.StatusOpen,
		}, fmt.Sprintf("sell #%d", st.SellCount))
		logger.Infof("sell %s #%d price=%.8g qty=%.8g", inst, st.SellCount, plan.Price, plan.Quantity)
		a.notify(ctx, fmt.Sprintf("sell %s at %.8g", inst, plan.Price))
	}
	return nil
}

// absorbBuyFills cancels the instrument's open buy orders and folds whatever
// executed into the average entry price. Runs when a sell signal fires so
// the cost basis is settled before the exit is sized.
func (a *Agent) absorbBuyFills(ctx context.Context, instrument string, st *State) error {
	if len(st.PendingBuys) == 0 {
		return nil
	}
	var prices, amounts []float64
	for _, rec := range st.PendingBuys {
		order, err := a.ex.Order(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("query buy order %s: %w", rec.ID, err)
		}
		if err := checkOrderStatus(order); err != nil {
			return err
		}
		if order.Status == exchange.StatusOpen {
			if err := a.ex.CancelOrder(ctx, rec.ID); err != nil {
				return fmt.Errorf("cancel buy order %s: %w", rec.ID, err)
			}
			order, err = a.ex.Order(ctx, rec.ID)
			if err != nil {
				return fmt.Errorf("query canceled buy order %s: %w", rec.ID, err)
			}
		}
		if order.Filled > 0 {
			prices = append(prices, order.Price)
			amounts = append(amounts, order.Filled)
		}
	}
	st.PendingBuys = nil
	st.AbsorbBuyFills(prices, amounts)
	if len(amounts) > 0 {
		logger.Infof("absorbed %d buy fills %s entry=%.8g position=%.8g", len(amounts), instrument, st.AvgEntryPrice, st.Position)
	}
	return nil
}

// reconcile walks pending sell orders: settles terminal ones into realized
// profit and force-exits stale open ones by canceling and market-selling the
// remainder. The replacement record keeps the original submission time so a
// repeatedly stuck exit cannot stay pending forever.
func (a *Agent) reconcile(ctx context.Context) error {
	now := a.ex.Now()
	for _, inst := range sortedKeys(a.states) {
		st := a.states[inst]
		if len(st.PendingSells) == 0 {
			continue
		}
		var kept []PendingOrder
		var prices, amounts []float64
		for _, rec := range st.PendingSells {
			order, err := a.ex.Order(ctx, rec.ID)
			if err != nil {
				return fmt.Errorf("query sell order %s: %w", rec.ID, err)
			}
			if err := checkOrderStatus(order); err != nil {
				return err
			}
			if order.Status == exchange.StatusOpen {
				if now.Sub(rec.SubmittedAt) < a.cfg.StaleSellTimeout {
					kept = append(kept, rec)
					continue
				}
				logger.Warnf("force exit %s: sell %s open for %s", inst, rec.ID, now.Sub(rec.SubmittedAt))
				if err := a.ex.CancelOrder(ctx, rec.ID); err != nil {
					return fmt.Errorf("cancel stale sell %s: %w", rec.ID, err)
				}
				order, err = a.ex.Order(ctx, rec.ID)
				if err != nil {
					return fmt.Errorf("query canceled sell %s: %w", rec.ID, err)
				}
				if remaining := order.Remaining(); remaining > 0 {
					id, err := a.ex.SubmitMarketOrder(ctx, inst, exchange.SideSell, remaining)
					if err != nil {
						return fmt.Errorf("market sell remainder %s: %w", inst, err)
					}
					kept = append(kept, PendingOrder{ID: id, SubmittedAt: rec.SubmittedAt})
					a.recordOrder(ctx, exchange.Order{
						ID: id, Instrument: inst, Side: exchange.SideSell,
						Requested: remaining, Status: exchange.StatusOpen,
					}, "force exit")
				}
			}
			if order.Filled > 0 {
				prices = append(prices, order.Price)
				amounts = append(amounts, order.Filled)
			}
		}
		st.PendingSells = kept
		if len(amounts) == 0 {
			continue
		}
		avg, amount, profit := st.SettleSellFills(prices, amounts)
		a.recordTrade(ctx, Trade{
			Instrument: inst, Side: exchange.SideSell,
			Price: avg, Amount: amount, Profit: profit, At: now,
		})
		logger.Infof("settled %s amount=%.8g avg=%.8g profit=%.0f total_profit=%.0f", inst, amount, avg, profit, st.RealizedProfit)
		a.notify(ctx, fmt.Sprintf("settled %s, profit %.0f", inst, profit))
	}
	return nil
}

// Liquidate cancels what is pending and market-sells every non-quote
// holding. Safe to call more than once; only the first call acts.
func (a *Agent) Liquidate(ctx context.Context) {
	if a.liquidated {
		return
	}
	a.liquidated = true
	if err := a.ex.Initialize(ctx); err != nil {
		logger.Errorf("liquidation init: %v", err)
		logger.DumpIncident(a.cfg.IncidentDir, err)
		return
	}
	for _, st := range a.states {
		for _, rec := range append(st.PendingBuys, st.PendingSells...) {
			if err := a.ex.CancelOrder(ctx, rec.ID); err != nil {
				logger.Warnf("liquidation cancel %s: %v", rec.ID, err)
			}
		}
		st.PendingBuys = nil
		st.PendingSells = nil
	}
	quote := a.ex.QuoteCurrency()
	balances := a.ex.Balances()
	for _, inst := range sortedKeys(balances) {
		if inst == quote {
			continue
		}
		free := balances[inst].Free
		if free <= 0 {
			continue
		}
		tradable, err := a.tradable(ctx, inst)
		if err != nil || !tradable {
			continue
		}
		if _, err := a.ex.SubmitMarketOrder(ctx, inst, exchange.SideSell, free); err != nil {
			logger.Errorf("liquidate %s: %v", inst, err)
			logger.DumpIncident(a.cfg.IncidentDir, err)
			if ierr := a.ex.Initialize(ctx); ierr != nil {
				logger.Errorf("liquidation reinit: %v", ierr)
			}
			continue
		}
		logger.Infof("liquidated %s qty=%.8g", inst, free)
	}
	logger.Infof("trading ended total_profit=%.0f", a.TotalProfit())
	a.notify(ctx, fmt.Sprintf("trading ended, profit %.0f", a.TotalProfit()))
}

// checkOrderStatus guards the lifecycle invariant: a status outside the
// known set means the adapter and exchange disagree, which poisons the
// whole tick.
func checkOrderStatus(o exchange.Order) error {
	switch o.Status {
	case exchange.StatusOpen, exchange.StatusClosed, exchange.StatusCanceled:
		return nil
	}
	return fmt.Errorf("order %s: %w: %q", o.ID, exchange.ErrUnexpectedOrderStatus, o.Status)
}

// tradable reports whether the instrument has market data this tick.
func (a *Agent) tradable(ctx context.Context, instrument string) (bool, error) {
	series, err := a.ex.Candles(ctx, instrument, tradableTimeframe)
	if err != nil {
		return false, fmt.Errorf("candles %s: %w", instrument, err)
	}
	return series.Len() > 0, nil
}

func (a *Agent) recordOrder(ctx context.Context, order exchange.Order, note string) {
	if a.journal == nil {
		return
	}
	if err := a.journal.RecordOrder(ctx, order, note); err != nil {
		logger.Warnf("journal order %s: %v", order.ID, err)
	}
}

func (a *Agent) recordTrade(ctx context.Context, trade Trade) {
	if a.journal == nil {
		return
	}
	if err := a.journal.RecordTrade(ctx, trade); err != nil {
		logger.Warnf("journal trade %s: %v", trade.Instrument, err)
	}
}

func (a *Agent) notify(ctx context.Context, text string) {
	if a.notifier != nil {
		a.notifier.Notify(ctx, text)
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
