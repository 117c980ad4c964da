// Package config loads the YAML configuration file, fills defaults, and
// validates the result before anything else starts.
package config

import "time"

type Config struct {
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Server   ServerConfig   `mapstructure:"server"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Report   ReportConfig   `mapstructure:"report"`
	Log      LogConfig      `mapstructure:"log"`
}

type ExchangeConfig struct {
	BaseURL       string  `mapstructure:"base_url"`
	AccessKey     string  `mapstructure:"access_key"`
	SecretKey     string  `mapstructure:"secret_key"`
	QuoteCurrency string  `mapstructure:"quote_currency"`
	Flagship      string  `mapstructure:"flagship"`
	OnlyFlagship  bool    `mapstructure:"only_flagship"`
	TurnoverFloor float64 `mapstructure:"turnover_floor"`
	CandleCount   int     `mapstructure:"candle_count"`
}

type AgentConfig struct {
	TickInterval     string  `mapstructure:"tick_interval"`
	BuyCooldown      string  `mapstructure:"buy_cooldown"`
	SellCooldown     string  `mapstructure:"sell_cooldown"`
	StaleSellTimeout string  `mapstructure:"stale_sell_timeout"`
	Retention        float64 `mapstructure:"retention"`
	IncidentDir      string  `mapstructure:"incident_dir"`

	tickInterval     time.Duration
	buyCooldown      time.Duration
	sellCooldown     time.Duration
	staleSellTimeout time.Duration
}

// Durations returns the parsed interval fields. Valid only after Load.
func (a AgentConfig) Durations() (tick, buyCooldown, sellCooldown, staleSell time.Duration) {
	return a.tickInterval, a.buyCooldown, a.sellCooldown, a.staleSellTimeout
}

type StrategyConfig struct {
	Name       string       `mapstructure:"name"`
	CrashGuard bool         `mapstructure:"crash_guard"`
	Sizing     SizingConfig `mapstructure:"sizing"`
}

type SizingConfig struct {
	BalanceDivisor float64 `mapstructure:"balance_divisor"`
	ReserveMargin  float64 `mapstructure:"reserve_margin"`
	MinNotional    float64 `mapstructure:"min_notional"`
}

type JournalConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID string `mapstructure:"chat_id"`
}

type ReportConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}
