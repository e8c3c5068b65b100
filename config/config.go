package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds harvester configuration.
type Config struct {
	BaseURL              string
	OutDir               string
	Delay                time.Duration
	Timeout              time.Duration
	UserAgent            string
	PerCategory          bool
	ReviewsPageSize      int
	ReviewsMaxPages      int
	TestimonialsMaxPages int
	SeenCapacity         int
	MetricsAddr          string
	Verbose              bool
}

// DefaultConfig returns conservative defaults for the demo target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:              "https://web-scraping.dev",
		OutDir:               "data",
		Delay:                0,
		Timeout:              30 * time.Second,
		UserAgent:            "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		PerCategory:          false,
		ReviewsPageSize:      20,
		ReviewsMaxPages:      200,
		TestimonialsMaxPages: 200,
		SeenCapacity:         1 << 16,
		MetricsAddr:          "",
		Verbose:              false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.OutDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ReviewsPageSize <= 0 {
		return fmt.Errorf("reviews page size must be positive")
	}
	if c.ReviewsMaxPages <= 0 {
		return fmt.Errorf("reviews max pages must be positive")
	}
	if c.TestimonialsMaxPages <= 0 {
		return fmt.Errorf("testimonials max pages must be positive")
	}
	if c.SeenCapacity <= 0 {
		return fmt.Errorf("seen capacity must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// EnvInt reads an integer environment variable. The second return reports
// whether the variable was set.
func EnvInt(name string) (int, bool, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", name, err)
	}
	return value, true, nil
}

// EnvString reads a string environment variable.
func EnvString(name string) (string, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}
