package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "empty outdir",
			mutate: func(cfg *Config) {
				cfg.OutDir = ""
			},
			wantErr: "output directory",
		},
		{
			name: "negative delay",
			mutate: func(cfg *Config) {
				cfg.Delay = -1 * time.Second
			},
			wantErr: "delay",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "zero reviews page size",
			mutate: func(cfg *Config) {
				cfg.ReviewsPageSize = 0
			},
			wantErr: "reviews page size",
		},
		{
			name: "zero reviews max pages",
			mutate: func(cfg *Config) {
				cfg.ReviewsMaxPages = 0
			},
			wantErr: "reviews max pages",
		},
		{
			name: "zero testimonials max pages",
			mutate: func(cfg *Config) {
				cfg.TestimonialsMaxPages = 0
			},
			wantErr: "testimonials max pages",
		},
		{
			name: "empty user agent",
			mutate: func(cfg *Config) {
				cfg.UserAgent = ""
			},
			wantErr: "user agent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("HARVESTER_TEST_INT", "42")
	value, ok, err := EnvInt("HARVESTER_TEST_INT")
	if err != nil || !ok || value != 42 {
		t.Fatalf("EnvInt = (%d, %v, %v), want (42, true, nil)", value, ok, err)
	}

	t.Setenv("HARVESTER_TEST_INT", "nope")
	if _, _, err := EnvInt("HARVESTER_TEST_INT"); err == nil {
		t.Fatalf("expected parse error for non-numeric value")
	}

	if _, ok, _ := EnvInt("HARVESTER_TEST_INT_UNSET"); ok {
		t.Fatalf("unset variable should report ok=false")
	}
}

func TestEnvString(t *testing.T) {
	t.Setenv("HARVESTER_TEST_STR", "output")
	if value, ok := EnvString("HARVESTER_TEST_STR"); !ok || value != "output" {
		t.Fatalf("EnvString = (%q, %v), want (\"output\", true)", value, ok)
	}
	if _, ok := EnvString("HARVESTER_TEST_STR_UNSET"); ok {
		t.Fatalf("unset variable should report ok=false")
	}
}
