package mirror

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/bft-labs/tcpmirror/internal/app"
	"github.com/bft-labs/tcpmirror/internal/domain"
	"github.com/bft-labs/tcpmirror/internal/ports"
)

// Mirror accepts one inbound TCP stream and replicates it to every target.
// Use New() to create an instance, then Start() to bind and begin mirroring.
// A Mirror is single-use.
type Mirror struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	ingester  *app.Ingester
	workers   []*app.Worker
	logger    ports.Logger
	plugins   []Plugin

	mu     sync.Mutex
	cancel context.CancelFunc

	done     chan struct{}
	doneOnce sync.Once
	err      error
}

// New creates a Mirror in StateIdle. It fails if the configuration is
// invalid; nothing is bound until Start.
func New(cfg Config, opts ...Option) (*Mirror, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	targets, err := domain.ParseTargets(cfg.Targets)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = defaultOptions().logger
	}
	if o.recorder == nil {
		o.recorder = ports.NopRecorder{}
	}

	m := &Mirror{
		config:  cfg,
		opts:    o,
		logger:  o.logger,
		plugins: o.plugins,
		done:    make(chan struct{}),
	}
	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	m.lifecycle = app.NewLifecycle(m.logger, emitter)

	wcfg := cfg.workerConfig()
	wcfg.Clock = o.clock
	for _, t := range targets {
		m.workers = append(m.workers, app.NewWorker(t, wcfg, o.dialer, m.logger, emitter))
	}

	m.ingester = app.NewIngester(app.IngesterConfig{
		ListenAddr: cfg.listenAddr(),
		OnAccept: func(peer string) {
			_ = m.lifecycle.TransitionTo(app.StateMirroring, "accepted "+peer)
		},
	}, m.workers, o.recorder, m.logger)

	return m, nil
}

// Start binds the listening port and begins mirroring in the background.
// The bind happens before Start returns, so a port that is already in use is
// reported here as ErrListen. ctx bounds the lifetime of the mirror.
func (m *Mirror) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}

	if err := m.ingester.Listen(); err != nil {
		m.logger.Error("cannot bind listening port", ports.Err(err))
		_ = m.lifecycle.TransitionTo(app.StateCrashed, "listen failed")
		m.finish(err)
		return err
	}
	if err := m.lifecycle.TransitionTo(app.StateListening, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.lifecycle.SetCancel(cancel)

	pluginCfg := PluginConfig{
		ConfigPath: m.config.ConfigPath,
		Port:       m.config.Port,
		Targets:    append([]string(nil), m.config.Targets...),
		Logger:     m.logger,
	}
	for i, p := range m.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			m.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			_ = m.ingester.Close()
			m.shutdownPlugins(m.plugins[:i])
			_ = m.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			m.finish(err)
			return err
		}
		m.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	m.lifecycle.AddWorker()
	go func() {
		defer m.lifecycle.WorkerDone()
		m.run(runCtx)
	}()

	return nil
}

// run serves the inbound stream and, unless Stop owns the shutdown, finishes
// the mirror when the stream ends.
func (m *Mirror) run(ctx context.Context) {
	err := m.ingester.Serve(ctx)

	if err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
		m.logger.Error("mirror failed", ports.Err(err))
		if m.lifecycle.TransitionTo(app.StateCrashed, err.Error()) == nil {
			m.shutdownPlugins(m.plugins)
			m.finish(err)
		}
		return
	}

	reason := "inbound stream ended"
	if ctx.Err() != nil {
		reason = "context cancelled"
	}
	if m.lifecycle.TransitionTo(app.StateStopping, reason) != nil {
		// Stop is already shutting down.
		return
	}
	m.shutdownPlugins(m.plugins)
	_ = m.lifecycle.TransitionTo(app.StateStopped, reason)
	m.finish(nil)
}

// Stop cancels mirroring, closes every connection and waits for the workers.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced, and
// ErrNotRunning if the mirror is not running.
func (m *Mirror) Stop() error {
	m.mu.Lock()

	if !m.lifecycle.CanStop() {
		m.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := m.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		m.mu.Unlock()
		return domain.ErrNotRunning
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	err := m.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
	m.shutdownPlugins(m.plugins)

	if err != nil {
		_ = m.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = m.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	m.finish(err)
	return err
}

// Done is closed once the mirror has ended, whether by Stop, by the inbound
// peer closing the stream, or by a failure.
func (m *Mirror) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the mirror has ended and returns its terminal error.
func (m *Mirror) Wait() error {
	<-m.done
	return m.err
}

// Err returns the error the mirror ended with, or nil while running or after
// a clean shutdown.
func (m *Mirror) Err() error {
	select {
	case <-m.done:
		return m.err
	default:
		return nil
	}
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (m *Mirror) Status() State {
	return convertState(m.lifecycle.State())
}

// Addr returns the bound listening address, or nil before Start.
func (m *Mirror) Addr() net.Addr {
	return m.ingester.Addr()
}

// Targets returns a snapshot of every downstream worker.
func (m *Mirror) Targets() []TargetStatus {
	out := make([]TargetStatus, 0, len(m.workers))
	for _, w := range m.workers {
		out = append(out, TargetStatus{
			Target: w.Target().String(),
			State:  convertConnState(w.State()),
			Queued: w.Queue().Len(),
		})
	}
	return out
}

func (m *Mirror) finish(err error) {
	m.doneOnce.Do(func() {
		m.err = err
		close(m.done)
	})
}

// shutdownPlugins shuts plugins down in reverse order.
func (m *Mirror) shutdownPlugins(plugins []Plugin) {
	ctx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			m.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			m.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnWorkerState(target domain.Target, previous, current app.WorkerState) {
	if e.handler == nil {
		return
	}
	e.handler.OnTargetState(TargetStateEvent{
		Target:   target.String(),
		Previous: convertConnState(previous),
		Current:  convertConnState(current),
	})
}

func convertState(s app.State) State {
	switch s {
	case app.StateListening:
		return StateListening
	case app.StateMirroring:
		return StateMirroring
	case app.StateStopping:
		return StateStopping
	case app.StateStopped:
		return StateStopped
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateIdle
	}
}

func convertConnState(s app.WorkerState) ConnState {
	switch s {
	case app.StateConnecting:
		return ConnConnecting
	case app.StateConnected:
		return ConnConnected
	default:
		return ConnDisconnected
	}
}
