package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv pulls credentials from the environment when the file leaves them
// empty, so keys never have to live on disk.
func (c *Config) applyEnv() {
	if c.Exchange.AccessKey == "" {
		c.Exchange.AccessKey = os.Getenv("UPBIT_ACCESS_KEY")
	}
	if c.Exchange.SecretKey == "" {
		c.Exchange.SecretKey = os.Getenv("UPBIT_SECRET_KEY")
	}
	if c.Notify.Telegram.Token == "" {
		c.Notify.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if c.Notify.Telegram.ChatID == "" {
		c.Notify.Telegram.ChatID = os.Getenv("TELEGRAM_CHAT_ID")
	}
}
