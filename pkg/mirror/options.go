package mirror

import (
	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/tcpmirror/internal/ports"
	"github.com/bft-labs/tcpmirror/pkg/log"
)

// Logger is the interface for structured logging.
type Logger = log.Logger

// LogField represents a structured log field.
type LogField = log.Field

// Recorder receives per-chunk metrics from the ingestion loop.
type Recorder = ports.Recorder

// Dialer opens downstream connections. *net.Dialer satisfies it.
type Dialer = ports.Dialer

// Option configures optional behavior of a Mirror.
type Option func(*options)

type options struct {
	logger       Logger
	recorder     Recorder
	dialer       Dialer
	eventHandler EventHandler
	plugins      []Plugin
	clock        clockwork.Clock
}

func defaultOptions() options {
	return options{
		logger:   log.NewNoopLogger(),
		recorder: ports.NopRecorder{},
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRecorder sets the sink for per-chunk metrics.
// If not provided, metrics are discarded.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithDialer replaces the dialer used for downstream connections.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithEventHandler sets a handler for mirror events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the mirror starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithClock sets the clock driving reconnect backoff. Intended for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}
