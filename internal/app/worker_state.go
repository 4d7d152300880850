package app

import "github.com/bft-labs/tcpmirror/internal/domain"

// WorkerState is the connection state of one downstream worker.
type WorkerState int32

const (
	StateDisconnected WorkerState = iota
	StateConnecting
	StateConnected
)

// String returns a human-readable representation of the state.
func (s WorkerState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// StateObserver is notified of every worker state transition.
// It is called synchronously from the worker goroutine and must return quickly.
type StateObserver interface {
	OnWorkerState(target domain.Target, previous, current WorkerState)
}
