package domain

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Target identifies one downstream endpoint that receives a full copy of the
// inbound stream. Targets are fixed for the lifetime of the process.
type Target struct {
	Host string
	Port int
}

// ParseTarget parses a "host:port" string.
// Only the syntax is checked; whether the host resolves is discovered by the
// worker at connect time.
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Target{}, fmt.Errorf("%w %q: %v", ErrInvalidTarget, s, err)
	}
	if host == "" {
		return Target{}, fmt.Errorf("%w %q: missing host", ErrInvalidTarget, s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Target{}, fmt.Errorf("%w %q: bad port", ErrInvalidTarget, s)
	}
	return Target{Host: host, Port: port}, nil
}

// ParseTargets parses every entry, failing on the first invalid one.
func ParseTargets(list []string) ([]Target, error) {
	if len(list) == 0 {
		return nil, ErrNoTargets
	}
	out := make([]Target, 0, len(list))
	for _, s := range list {
		t, err := ParseTarget(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Addr returns the dialable "host:port" form.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

func (t Target) String() string { return t.Addr() }
