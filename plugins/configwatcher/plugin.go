// Package configwatcher reloads the tcpmirror config file while the mirror
// runs. A changed log_level is applied immediately; changes to the port or
// the target list are reported as requiring a restart.
package configwatcher

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/tcpmirror/internal/cliconfig"
	"github.com/bft-labs/tcpmirror/pkg/log"
	"github.com/bft-labs/tcpmirror/pkg/mirror"
)

// Plugin implements config watching functionality.
type Plugin struct {
	mu sync.Mutex

	debounceDelay time.Duration
	onReload      func(cliconfig.FileConfig)

	path     string
	port     int
	targets  []string
	logLevel string
	logger   mirror.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// OnReload is called with every successfully parsed file. Optional.
	OnReload func(cliconfig.FileConfig)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{DebounceDelay: 100 * time.Millisecond}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		debounceDelay: cfg.DebounceDelay,
		onReload:      cfg.OnReload,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize records the running settings and starts the watcher.
func (p *Plugin) Initialize(ctx context.Context, cfg mirror.PluginConfig) error {
	p.mu.Lock()
	p.path = cfg.ConfigPath
	p.port = cfg.Port
	p.targets = append([]string(nil), cfg.Targets...)
	p.logger = cfg.Logger
	if p.logger == nil {
		p.logger = log.NewNoopLogger()
	}
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("config watcher disabled: no config file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors replace files on save, so the directory is watched rather than
	// the file itself.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher started", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload parses the file and applies what can change at runtime.
func (p *Plugin) reload() {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		p.logger.Warn("config reload failed", log.String("path", p.path), log.Err(err))
		return
	}

	p.mu.Lock()
	changedLevel := fc.LogLevel != "" && fc.LogLevel != p.logLevel
	portChanged := fc.Port != 0 && fc.Port != p.port
	targetsChanged := len(fc.Targets) > 0 && !slices.Equal(fc.Targets, p.targets)
	onReload := p.onReload
	p.mu.Unlock()

	if changedLevel {
		if err := cliconfig.SetLogLevel(fc.LogLevel); err != nil {
			p.logger.Warn("ignoring invalid log level", log.String("level", fc.LogLevel))
		} else {
			p.mu.Lock()
			p.logLevel = fc.LogLevel
			p.mu.Unlock()
			p.logger.Info("log level changed", log.String("level", fc.LogLevel))
		}
	}
	if portChanged {
		p.logger.Warn("listening port changed in config file, restart required",
			log.Int("running", p.port), log.Int("configured", fc.Port))
	}
	if targetsChanged {
		p.logger.Warn("targets changed in config file, restart required",
			log.Any("configured", fc.Targets))
	}

	if onReload != nil {
		onReload(fc)
	}
}
