// Package tcpmirror replicates one inbound TCP stream to several downstream
// servers.
//
// Example usage:
//
//	cfg := tcpmirror.DefaultConfig()
//	cfg.Port = 9000
//	cfg.Targets = []string{"10.0.0.5:9000", "10.0.0.6:9000"}
//	if err := tcpmirror.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// For lifecycle control, events and plugins use pkg/mirror directly.
package tcpmirror

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bft-labs/tcpmirror/internal/cliconfig"
	"github.com/bft-labs/tcpmirror/pkg/log"
	"github.com/bft-labs/tcpmirror/pkg/mirror"
)

// Config holds the configuration of a mirror.
type Config = mirror.Config

// Run mirrors until the inbound peer closes its stream or ctx is cancelled.
// It logs through the process logger and returns mirror.ErrListen when the
// port cannot be bound.
func Run(ctx context.Context, cfg Config) error {
	m, err := mirror.New(cfg, mirror.WithLogger(log.NewZerologAdapterWithLogger(Logger())))
	if err != nil {
		return err
	}
	if err := m.Start(ctx); err != nil {
		return err
	}
	return m.Wait()
}

// DefaultConfig returns a Config with default timings. Port and Targets must
// be set before calling Run.
func DefaultConfig() Config {
	var cfg Config
	cfg.SetDefaults()
	return cfg
}

// Logger returns the package-level zerolog logger.
func Logger() zerolog.Logger {
	return cliconfig.Logger()
}
