package app

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultBackoff is the pause between failed connect attempts.
const DefaultBackoff = time.Second

// backoff waits a fixed interval between reconnect attempts.
// There is no growth and no retry limit.
type backoff struct {
	interval time.Duration
	clock    clockwork.Clock
}

func newBackoff(interval time.Duration, clock clockwork.Clock) *backoff {
	if interval <= 0 {
		interval = DefaultBackoff
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &backoff{interval: interval, clock: clock}
}

// Wait blocks for one interval or until ctx is done.
func (b *backoff) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.clock.After(b.interval):
		return nil
	}
}
