// Package http serves the pull-based metrics endpoint.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/tcpmirror/internal/ports"
)

// DefaultMetricsAddr is where metrics are exposed unless configured otherwise.
const DefaultMetricsAddr = ":8000"

// MetricsPath is the HTTP path of the metrics endpoint.
const MetricsPath = "/metrics"

// MetricsServer exposes a Prometheus registry over HTTP.
type MetricsServer struct {
	addr     string
	server   *http.Server
	listener net.Listener
	logger   ports.Logger
}

// NewMetricsServer creates a server for gatherer on addr.
func NewMetricsServer(addr string, gatherer prometheus.Gatherer, logger ports.Logger) *MetricsServer {
	if addr == "" {
		addr = DefaultMetricsAddr
	}
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &MetricsServer{
		addr: addr,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start binds the address and serves in the background.
// Bind errors are returned synchronously.
func (s *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", s.addr, err)
	}
	s.listener = ln
	s.logger.Info("metrics endpoint listening", ports.String("addr", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", ports.Err(err))
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *MetricsServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops the server, waiting for in-flight scrapes until ctx ends.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
