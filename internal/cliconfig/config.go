package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/tcpmirror/internal/adapters/http"
	"github.com/bft-labs/tcpmirror/internal/app"
	"github.com/bft-labs/tcpmirror/internal/domain"
	"github.com/bft-labs/tcpmirror/pkg/log"
)

// Config holds CLI configuration for tcpmirror.
type Config struct {
	Port    int
	Targets []string

	MetricsAddr string
	LogLevel    string

	Backoff      time.Duration
	DialTimeout  time.Duration
	SendTimeout  time.Duration
	ProbeTimeout time.Duration

	WatchConfig bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:  http.DefaultMetricsAddr,
		LogLevel:     "info",
		Backoff:      app.DefaultBackoff,
		DialTimeout:  app.DefaultDialTimeout,
		SendTimeout:  app.DefaultSendTimeout,
		ProbeTimeout: app.DefaultProbeTimeout,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", domain.ErrInvalidConfig, c.Port)
	}
	if _, err := domain.ParseTargets(c.Targets); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: invalid log level %q", domain.ErrInvalidConfig, c.LogLevel)
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = http.DefaultMetricsAddr
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"backoff", c.Backoff},
		{"dial timeout", c.DialTimeout},
		{"send timeout", c.SendTimeout},
		{"probe timeout", c.ProbeTimeout},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidConfig, d.name)
		}
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings replaces a list if the new one is non-empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setCSV splits a comma-separated value into a list.
func (s *configSetter) setCSV(flag, value string, dst *[]string) {
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	s.setStrings(flag, list, dst)
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
