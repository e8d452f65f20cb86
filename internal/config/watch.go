package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch starts watching the config file for changes and invokes onChange
// with the freshly loaded configuration after every edit. Edits that fail
// to load or validate are reported to onError and otherwise ignored; the
// previous configuration stays in effect.
//
// Viper debounces rapid writes, but editors that replace the file (rename
// over it) can still deliver more than one event per save. Callers should
// treat onChange as at-least-once.
func Watch(onChange func(*Config), onError func(error)) {
	viper.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := Load()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}
