package cliconfig

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/bft-labs/tcpmirror/pkg/log"
)

var logger = log.NewConsoleLogger(os.Stderr)

// Logger returns the process logger. Its verbosity is governed by the
// zerolog global level, see SetLogLevel.
func Logger() zerolog.Logger {
	return logger
}

// SetLogLevel parses level and applies it process-wide.
func SetLogLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
