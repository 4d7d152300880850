package configwatcher

import "github.com/bft-labs/tcpmirror/pkg/mirror"

// WithConfigWatcher returns a mirror Option that enables config file watching.
// The file comes from mirror.Config.ConfigPath; without one the plugin stays
// idle.
//
// Usage:
//
//	m, err := mirror.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        DebounceDelay: 200 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) mirror.Option {
	return mirror.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher returns a mirror Option that enables config
// watching with default settings.
func WithDefaultConfigWatcher() mirror.Option {
	return WithConfigWatcher(DefaultConfig())
}
