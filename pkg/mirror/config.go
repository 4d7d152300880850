package mirror

import (
	"fmt"
	"time"

	"github.com/bft-labs/tcpmirror/internal/app"
	"github.com/bft-labs/tcpmirror/internal/domain"
)

// Config holds the settings of one mirror instance.
type Config struct {
	// Port is the TCP port the mirror listens on, on all interfaces.
	Port int

	// ListenAddr overrides Port with an explicit bind address, e.g.
	// "127.0.0.1:0". Optional.
	ListenAddr string

	// Targets lists the downstream endpoints as "host:port". At least one is
	// required.
	Targets []string

	// Backoff is the pause after a failed connect attempt.
	// Default: 1 second
	Backoff time.Duration

	// DialTimeout bounds each connect attempt.
	// Default: 5 seconds
	DialTimeout time.Duration

	// SendTimeout bounds each write to a target.
	// Default: 1 second
	SendTimeout time.Duration

	// ProbeTimeout bounds the liveness read after each send.
	// Default: 1 second
	ProbeTimeout time.Duration

	// ConfigPath is handed to plugins that watch the config file. Optional.
	ConfigPath string
}

// SetDefaults fills zero-valued timings.
func (c *Config) SetDefaults() {
	if c.Backoff <= 0 {
		c.Backoff = app.DefaultBackoff
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = app.DefaultDialTimeout
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = app.DefaultSendTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = app.DefaultProbeTimeout
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.ListenAddr == "" && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", domain.ErrInvalidConfig, c.Port)
	}
	_, err := domain.ParseTargets(c.Targets)
	return err
}

func (c Config) listenAddr() string {
	if c.ListenAddr != "" {
		return c.ListenAddr
	}
	return app.ListenAddr(c.Port)
}

func (c Config) workerConfig() app.WorkerConfig {
	return app.WorkerConfig{
		Backoff:      c.Backoff,
		DialTimeout:  c.DialTimeout,
		SendTimeout:  c.SendTimeout,
		ProbeTimeout: c.ProbeTimeout,
	}
}
