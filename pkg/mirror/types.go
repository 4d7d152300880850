package mirror

import (
	"context"

	"github.com/bft-labs/tcpmirror/internal/domain"
)

// Errors returned by the mirror.
var (
	ErrListen          = domain.ErrListen
	ErrNoTargets       = domain.ErrNoTargets
	ErrInvalidTarget   = domain.ErrInvalidTarget
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
)

// State is the lifecycle state of a Mirror.
type State int

const (
	// StateIdle means New succeeded and Start has not been called.
	StateIdle State = iota
	// StateListening means the port is bound and no peer has connected yet.
	StateListening
	// StateMirroring means the inbound peer is connected and data is fanned out.
	StateMirroring
	// StateStopping means shutdown is in progress.
	StateStopping
	// StateStopped means the mirror ended cleanly.
	StateStopped
	// StateCrashed means the mirror ended with an error.
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateListening:
		return "Listening"
	case StateMirroring:
		return "Mirroring"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// ConnState is the connection state of one downstream target.
type ConnState int

const (
	ConnDisconnected ConnState = iota
	ConnConnecting
	ConnConnected
)

// String returns a human-readable representation of the state.
func (s ConnState) String() string {
	switch s {
	case ConnDisconnected:
		return "Disconnected"
	case ConnConnecting:
		return "Connecting"
	case ConnConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// TargetStatus is a snapshot of one downstream worker.
type TargetStatus struct {
	Target string
	State  ConnState
	Queued int
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// TargetStateEvent is emitted whenever a downstream worker changes state.
type TargetStateEvent struct {
	Target   string
	Previous ConnState
	Current  ConnState
}

// EventHandler receives mirror events. Methods are called synchronously from
// mirror goroutines and must return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnTargetState(event TargetStateEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnTargetState(TargetStateEvent) {}

// PluginConfig is passed to plugins on initialization.
type PluginConfig struct {
	ConfigPath string
	Port       int
	Targets    []string
	Logger     Logger
}

// Plugin extends a mirror with optional behavior. Plugins are initialized in
// registration order by Start and shut down in reverse order when the mirror
// ends.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// BasePlugin implements the lifecycle methods of Plugin with no-ops.
type BasePlugin struct{}

func (BasePlugin) Name() string                                  { return "base" }
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (BasePlugin) Shutdown(context.Context) error                 { return nil }
