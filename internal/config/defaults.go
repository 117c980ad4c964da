package config

func (c *Config) applyDefaults() {
	if c.Exchange.BaseURL == "" {
		c.Exchange.BaseURL = "https://api.upbit.com"
	}
	if c.Exchange.QuoteCurrency == "" {
		c.Exchange.QuoteCurrency = "KRW"
	}
	if c.Exchange.Flagship == "" {
		c.Exchange.Flagship = "BTC"
	}
	if c.Exchange.TurnoverFloor <= 0 {
		c.Exchange.TurnoverFloor = 100_000_000_000
	}
	if c.Exchange.CandleCount <= 0 {
		c.Exchange.CandleCount = 200
	}

	if c.Agent.TickInterval == "" {
		c.Agent.TickInterval = "1m"
	}
	if c.Agent.BuyCooldown == "" {
		c.Agent.BuyCooldown = "10m"
	}
	if c.Agent.SellCooldown == "" {
		c.Agent.SellCooldown = "10m"
	}
	if c.Agent.StaleSellTimeout == "" {
		c.Agent.StaleSellTimeout = "30m"
	}
	if c.Agent.Retention <= 0 || c.Agent.Retention >= 1 {
		c.Agent.Retention = 0.9
	}
	if c.Agent.IncidentDir == "" {
		c.Agent.IncidentDir = "incidents"
	}

	if c.Strategy.Name == "" {
		c.Strategy.Name = "bollmfi"
	}
	if c.Strategy.Sizing.BalanceDivisor <= 0 {
		c.Strategy.Sizing.BalanceDivisor = 5
	}
	if c.Strategy.Sizing.ReserveMargin <= 0 {
		c.Strategy.Sizing.ReserveMargin = 100
	}
	if c.Strategy.Sizing.MinNotional <= 0 {
		c.Strategy.Sizing.MinNotional = 6000
	}

	if c.Journal.Path == "" {
		c.Journal.Path = "data/journal.db"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8086"
	}
	if c.Report.Path == "" {
		c.Report.Path = "report.html"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
