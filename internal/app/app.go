// Package app wires configuration into a running trading process: exchange
// gateway, strategy, agent loop, journal, notifier, and the HTTP status
// server.
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"upbot/internal/agent"
	"upbot/internal/config"
	"upbot/internal/exchange/upbit"
	"upbot/internal/logger"
	"upbot/internal/notifier"
	"upbot/internal/report"
	"upbot/internal/store"
	tradehttp "upbot/internal/transport/http"
)

type App struct {
	cfg     *config.Config
	agent   *agent.Agent
	journal *store.Journal
	httpSrv *tradehttp.Server
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.Log.Level)

	gateway := upbit.New(upbit.Options{
		BaseURL:       cfg.Exchange.BaseURL,
		AccessKey:     cfg.Exchange.AccessKey,
		SecretKey:     cfg.Exchange.SecretKey,
		QuoteCurrency: cfg.Exchange.QuoteCurrency,
		Flagship:      cfg.Exchange.Flagship,
		OnlyFlagship:  cfg.Exchange.OnlyFlagship,
		TurnoverFloor: cfg.Exchange.TurnoverFloor,
		CandleCount:   cfg.Exchange.CandleCount,
	})

	strat, err := buildStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	tick, buyCD, sellCD, stale := cfg.Agent.Durations()
	ag := agent.New(agent.Config{
		TickInterval:     tick,
		BuyCooldown:      buyCD,
		SellCooldown:     sellCD,
		StaleSellTimeout: stale,
		Retention:        cfg.Agent.Retention,
		IncidentDir:      cfg.Agent.IncidentDir,
	}, gateway, strat)

	journal, err := store.Open(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	ag.SetJournal(journal)

	if cfg.Notify.Telegram.Token != "" && cfg.Notify.Telegram.ChatID != "" {
		ag.SetNotifier(notifier.NewTelegram(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID))
	}

	a := &App{cfg: cfg, agent: ag, journal: journal}
	if cfg.Server.Enabled {
		srv, err := tradehttp.NewServer(tradehttp.ServerConfig{
			Addr:    cfg.Server.Listen,
			Agent:   ag,
			Journal: journal,
		})
		if err != nil {
			return nil, err
		}
		a.httpSrv = srv
	}
	return a, nil
}

func buildStrategy(cfg config.StrategyConfig) (agent.Strategy, error) {
	sizing := agent.Sizing{
		BalanceDivisor: cfg.Sizing.BalanceDivisor,
		ReserveMargin:  cfg.Sizing.ReserveMargin,
		MinNotional:    cfg.Sizing.MinNotional,
	}
	switch cfg.Name {
	case "bollmfi":
		s := agent.NewBollMFI(sizing)
		s.CrashGuard = cfg.CrashGuard
		return s, nil
	case "suddenrise":
		return agent.NewSuddenRise(sizing), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", cfg.Name)
}

// Agent exposes the agent for harnesses and tests.
func (a *App) Agent() *agent.Agent { return a.agent }

// Run starts the HTTP server and the trading loop, writes the equity report
// when the loop finishes, and shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, ctx := errgroup.WithContext(ctx)

	if a.httpSrv != nil {
		group.Go(func() error {
			logger.Infof("status server listening on %s", a.httpSrv.Addr())
			if err := a.httpSrv.Start(ctx); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		defer cancel()
		err := a.agent.Run(ctx)
		if rerr := report.Write(a.cfg.Report.Path, a.agent.History(), a.agent.Snapshot().Instruments); rerr != nil {
			logger.Errorf("write report: %v", rerr)
		} else {
			logger.Infof("report written to %s", a.cfg.Report.Path)
		}
		return err
	})

	err := group.Wait()
	if cerr := a.journal.Close(); cerr != nil {
		logger.Warnf("close journal: %v", cerr)
	}
	return err
}
