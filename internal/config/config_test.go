package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerURL != "http://localhost:8000/api" {
		t.Errorf("ServerURL: got %q", cfg.ServerURL)
	}
	if cfg.PollInterval != 3*time.Second || cfg.CountInterval != 5*time.Second {
		t.Errorf("intervals: got %v / %v", cfg.PollInterval, cfg.CountInterval)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_URL", "https://support.example.com/api/")
	t.Setenv("POLL_INTERVAL", "500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerURL != "https://support.example.com/api" {
		t.Errorf("trailing slash must be trimmed, got %q", cfg.ServerURL)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval: got %v", cfg.PollInterval)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"BadScheme", func(c *Config) { c.ServerURL = "ftp://x" }},
		{"ZeroPoll", func(c *Config) { c.PollInterval = 0 }},
		{"NegativeCount", func(c *Config) { c.CountInterval = -time.Second }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{
				ServerURL:     "http://localhost:8000/api",
				PollInterval:  time.Second,
				CountInterval: time.Second,
			}
			tc.mod(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoadRejectsBadInterval(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Error("expected an error for an unparseable interval")
	}
}
