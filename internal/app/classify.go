package app

import (
	"errors"
	"io"
	"net"
	"os"

	"github.com/bft-labs/tcpmirror/internal/domain"
)

// connectError wraps a dial failure with its category.
func connectError(target domain.Target, err error) *domain.ConnectError {
	return &domain.ConnectError{Target: target, Failure: classifyConnect(err), Err: err}
}

func classifyConnect(err error) domain.ConnectFailure {
	switch {
	case isRefused(err):
		return domain.ConnectRefused
	case isUnreachable(err):
		return domain.ConnectUnreachable
	default:
		return domain.ConnectOther
	}
}

// isTimeout reports a deadline expiry on a send or probe.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isPeerClosed reports errors meaning the remote side is gone.
func isPeerClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		isBrokenPipe(err)
}
