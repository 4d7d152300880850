package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/tcpmirror/internal/adapters/http"
	"github.com/bft-labs/tcpmirror/internal/adapters/prom"
	"github.com/bft-labs/tcpmirror/internal/cliconfig"
	"github.com/bft-labs/tcpmirror/pkg/log"
	"github.com/bft-labs/tcpmirror/pkg/mirror"
	"github.com/bft-labs/tcpmirror/plugins/configwatcher"
)

const helpDescription = `
Replicate one inbound TCP stream to any number of downstream servers.

Highlights:
  - Accepts a single connection and copies every byte to each target.
  - Each target reconnects on its own; a dead target never stalls the others.
  - Data that arrives while a target is down is dropped, not replayed.
  - Prometheus metrics on :8000/metrics; configure via file, env, or flags.
`

var exampleUsage = strings.TrimSpace(`
  tcpmirror -p 9000 10.0.0.5:9000 replay.internal:7000
  LOG_LEVEL=debug tcpmirror --config /etc/tcpmirror/config.toml
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	logger := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "tcpmirror [flags] host:port [host:port...]",
		Short:   "Replicate one inbound TCP stream to many downstream servers",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			if len(args) > 0 {
				cfg.Targets = args
				changed["targets"] = true
			}

			watchPath := ""
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
				watchPath = cfgFile
			}

			// TCPMIRROR_* and LOG_LEVEL override the file but not flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cliconfig.SetLogLevel(cfg.LogLevel); err != nil {
				return err
			}
			logger.Info().Interface("config", cfg).Msg("configuration")

			recorder := prom.NewRecorder()
			adapter := log.NewZerologAdapterWithLogger(logger)

			metrics := http.NewMetricsServer(cfg.MetricsAddr, recorder.Registry(), adapter)
			if err := metrics.Start(); err != nil {
				return fmt.Errorf("start metrics server: %w", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = metrics.Shutdown(ctx)
			}()

			opts := []mirror.Option{
				mirror.WithLogger(adapter),
				mirror.WithRecorder(recorder),
			}
			if cfg.WatchConfig {
				opts = append(opts, configwatcher.WithDefaultConfigWatcher())
			}

			m, err := mirror.New(mirror.Config{
				Port:         cfg.Port,
				Targets:      cfg.Targets,
				Backoff:      cfg.Backoff,
				DialTimeout:  cfg.DialTimeout,
				SendTimeout:  cfg.SendTimeout,
				ProbeTimeout: cfg.ProbeTimeout,
				ConfigPath:   watchPath,
			}, opts...)
			if err != nil {
				return fmt.Errorf("create mirror: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			if err := m.Start(ctx); err != nil {
				return fmt.Errorf("start mirror: %w", err)
			}

			select {
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("received signal, stopping...")
				if err := m.Stop(); err != nil {
					return fmt.Errorf("stop mirror: %w", err)
				}
				return nil
			case <-m.Done():
				if err := m.Err(); err != nil {
					return err
				}
				logger.Info().Msg("inbound stream ended")
				return nil
			}
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.tcpmirror/config.toml)")
	root.Flags().IntVarP(&cfg.Port, "port", "p", cfg.Port, "TCP port to accept the inbound stream on")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address of the Prometheus metrics endpoint")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warning, error, critical)")

	root.Flags().DurationVar(&cfg.Backoff, "backoff", cfg.Backoff, "pause between failed connect attempts")
	root.Flags().DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "timeout for each connect attempt")
	root.Flags().DurationVar(&cfg.SendTimeout, "send-timeout", cfg.SendTimeout, "timeout for each write to a target")
	root.Flags().DurationVar(&cfg.ProbeTimeout, "probe-timeout", cfg.ProbeTimeout, "timeout of the liveness read after each send")
	root.Flags().BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload log level when the config file changes")

	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("tcpmirror")
		os.Exit(1)
	}
}
