package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"upbot/internal/logger"
)

// ChangeListener is called with the freshly validated config after a reload.
type ChangeListener func(*Config)

// Watcher reloads the config file on filesystem changes. A reload that fails
// validation is logged and dropped; listeners only ever see good configs.
type Watcher struct {
	path string
	v    *viper.Viper

	mu        sync.Mutex
	listeners []ChangeListener
}

func Watch(path string) (*Watcher, error) {
	if _, err := Load(path); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	w := &Watcher{path: path, v: v}
	v.OnConfigChange(func(evt fsnotify.Event) {
		cfg, err := Load(w.path)
		if err != nil {
			logger.Errorf("config reload failed (%s): %v", evt.Name, err)
			return
		}
		w.mu.Lock()
		listeners := append([]ChangeListener(nil), w.listeners...)
		w.mu.Unlock()
		for _, fn := range listeners {
			fn(cfg)
		}
	})
	v.WatchConfig()
	return w, nil
}

func (w *Watcher) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	w.mu.Unlock()
}
