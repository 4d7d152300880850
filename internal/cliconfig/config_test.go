package cliconfig

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/tcpmirror/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MetricsAddr != ":8000" {
		t.Errorf("MetricsAddr = %v, want :8000", cfg.MetricsAddr)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.Backoff != time.Second {
		t.Errorf("Backoff = %v, want 1s", cfg.Backoff)
	}
	if cfg.Port != 0 || len(cfg.Targets) != 0 {
		t.Error("port and targets must not have defaults")
	}
}

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Port = 9000
	cfg.Targets = []string{"127.0.0.1:9001", "example.com:9002"}
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "no targets",
			mutate:  func(c *Config) { c.Targets = nil },
			wantErr: domain.ErrNoTargets,
		},
		{
			name:    "target without port",
			mutate:  func(c *Config) { c.Targets = []string{"localhost"} },
			wantErr: domain.ErrInvalidTarget,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:   "warning alias",
			mutate: func(c *Config) { c.LogLevel = "WARNING" },
		},
		{
			name:    "zero backoff",
			mutate:  func(c *Config) { c.Backoff = 0 },
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "negative probe timeout",
			mutate:  func(c *Config) { c.ProbeTimeout = -time.Second },
			wantErr: domain.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateRestoresMetricsAddr(t *testing.T) {
	cfg := validConfig()
	cfg.MetricsAddr = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.MetricsAddr != ":8000" {
		t.Errorf("MetricsAddr = %q, want :8000", cfg.MetricsAddr)
	}
}

func TestConfigSetter_SetCSV(t *testing.T) {
	var dst []string
	s := newConfigSetter(map[string]bool{})
	s.setCSV("targets", " a:1, ,b:2 ,", &dst)
	if len(dst) != 2 || dst[0] != "a:1" || dst[1] != "b:2" {
		t.Errorf("setCSV = %v, want [a:1 b:2]", dst)
	}

	s.setCSV("targets", "", &dst)
	if len(dst) != 2 {
		t.Errorf("empty value should not clear the list, got %v", dst)
	}
}

func TestSetLogLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	if err := SetLogLevel("debug"); err != nil {
		t.Fatalf("SetLogLevel(debug) error = %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("global level = %v, want debug", zerolog.GlobalLevel())
	}
	if err := SetLogLevel("nope"); err == nil {
		t.Error("SetLogLevel(nope) should fail")
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Error("failed SetLogLevel must not change the level")
	}
}
