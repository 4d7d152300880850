package ports

import (
	"context"
	"net"
)

// Dialer opens outbound connections to downstream targets.
// *net.Dialer satisfies this interface.
type Dialer interface {
	// DialContext connects to address on the named network.
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}
