package config

import (
	"fmt"

	"upbot/internal/scheduler"
)

func validate(c *Config) error {
	if err := c.Exchange.validate(); err != nil {
		return err
	}
	if err := c.Agent.validate(); err != nil {
		return err
	}
	if err := c.Strategy.validate(); err != nil {
		return err
	}
	return nil
}

func (e *ExchangeConfig) validate() error {
	if e.AccessKey == "" || e.SecretKey == "" {
		return fmt.Errorf("exchange.access_key and exchange.secret_key are required (or UPBIT_ACCESS_KEY / UPBIT_SECRET_KEY)")
	}
	return nil
}

func (a *AgentConfig) validate() error {
	var ok bool
	if a.tickInterval, ok = scheduler.ParseIntervalDuration(a.TickInterval); !ok {
		return fmt.Errorf("agent.tick_interval is invalid: %q", a.TickInterval)
	}
	if a.buyCooldown, ok = scheduler.ParseIntervalDuration(a.BuyCooldown); !ok {
		return fmt.Errorf("agent.buy_cooldown is invalid: %q", a.BuyCooldown)
	}
	if a.sellCooldown, ok = scheduler.ParseIntervalDuration(a.SellCooldown); !ok {
		return fmt.Errorf("agent.sell_cooldown is invalid: %q", a.SellCooldown)
	}
	if a.staleSellTimeout, ok = scheduler.ParseIntervalDuration(a.StaleSellTimeout); !ok {
		return fmt.Errorf("agent.stale_sell_timeout is invalid: %q", a.StaleSellTimeout)
	}
	return nil
}

func (s *StrategyConfig) validate() error {
	switch s.Name {
	case "bollmfi", "suddenrise":
		return nil
	}
	return fmt.Errorf("strategy.name must be bollmfi or suddenrise, got %q", s.Name)
}
