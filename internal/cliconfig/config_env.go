package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables
// (TCPMIRROR_* and LOG_LEVEL). It respects flags that have been explicitly
// set (changed map) and fails on malformed values.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if err := s.setIntFromString("port", os.Getenv("TCPMIRROR_PORT"), &cfg.Port); err != nil {
		return err
	}
	s.setCSV("targets", os.Getenv("TCPMIRROR_TARGETS"), &cfg.Targets)
	s.setString("metrics-addr", os.Getenv("TCPMIRROR_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("backoff", os.Getenv("TCPMIRROR_BACKOFF"), &cfg.Backoff); err != nil {
		return err
	}
	if err := s.setDuration("dial-timeout", os.Getenv("TCPMIRROR_DIAL_TIMEOUT"), &cfg.DialTimeout); err != nil {
		return err
	}
	if err := s.setDuration("send-timeout", os.Getenv("TCPMIRROR_SEND_TIMEOUT"), &cfg.SendTimeout); err != nil {
		return err
	}
	if err := s.setDuration("probe-timeout", os.Getenv("TCPMIRROR_PROBE_TIMEOUT"), &cfg.ProbeTimeout); err != nil {
		return err
	}

	s.setBoolFromString("watch-config", os.Getenv("TCPMIRROR_WATCH_CONFIG"), &cfg.WatchConfig)
	return nil
}
