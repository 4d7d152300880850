package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the mirror domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrListen is returned when the inbound listening socket cannot be bound.
	ErrListen = errors.New("tcpmirror: listen failed")

	// ErrNoTargets is returned when no downstream target is configured.
	ErrNoTargets = errors.New("tcpmirror: at least one target is required")

	// ErrInvalidTarget is returned when a target is not a valid host:port.
	ErrInvalidTarget = errors.New("tcpmirror: invalid target")

	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("tcpmirror: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("tcpmirror: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("tcpmirror: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("tcpmirror: invalid configuration")
)

// ConnectFailure categorizes why a downstream connect attempt failed.
// Every category is retried the same way; the distinction exists for logs.
type ConnectFailure int

const (
	ConnectRefused ConnectFailure = iota
	ConnectUnreachable
	ConnectOther
)

func (f ConnectFailure) String() string {
	switch f {
	case ConnectRefused:
		return "refused"
	case ConnectUnreachable:
		return "unreachable"
	default:
		return "other"
	}
}

// ConnectError is the result of a failed downstream connect attempt.
type ConnectError struct {
	Target  Target
	Failure ConnectFailure
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %s: %v", e.Target, e.Failure, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }
