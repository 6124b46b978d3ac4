package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_MAPS_API_KEY", "test-key")
	t.Setenv("SEARCH_LOCATION", "Jakarta, Indonesia")
	t.Setenv("SEARCH_QUERY", "coffee shop")
}

func TestLoad(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NUM_RESULTS", "60")
	t.Setenv("SEARCH_RADIUS", "25000")
	t.Setenv("CONCURRENCY", "5")
	t.Setenv("RATE_LIMIT", "10")
	t.Setenv("RATE_LIMIT_PERIOD", "1")
	t.Setenv("OUTPUT_FILE", "leads")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Query != "coffee shop" || cfg.Location != "Jakarta, Indonesia" {
		t.Fatalf("unexpected search values: %+v", cfg)
	}
	if cfg.MaxResults != 60 || cfg.RadiusMeters != 25000 || cfg.Concurrency != 5 {
		t.Fatalf("unexpected numeric values: %+v", cfg)
	}
	if cfg.RateLimit.Requests != 10 || cfg.RateLimit.Interval != time.Second {
		t.Fatalf("unexpected rate limit config: %+v", cfg.RateLimit)
	}
	if cfg.Output.File != "leads" || !cfg.Output.CSV || !cfg.Output.JSON {
		t.Fatalf("unexpected output config: %+v", cfg.Output)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BaseDelay != 500*time.Millisecond {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Retry)
	}
}

func mustLoad(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	return cfg
}

func TestValidateMissingRequired(t *testing.T) {
	os.Unsetenv("GOOGLE_MAPS_API_KEY")
	t.Setenv("SEARCH_LOCATION", "Jakarta")
	t.Setenv("SEARCH_QUERY", "plumber")

	err := mustLoad(t).Validate()
	if err == nil {
		t.Fatalf("expected error for missing api key")
	}
	var cfgErr ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
}

func TestValidateSinkPreconditions(t *testing.T) {
	setRequiredEnv(t)

	t.Run("postgres enabled without dsn", func(t *testing.T) {
		t.Setenv("OUTPUT_POSTGRES", "true")
		os.Unsetenv("DATABASE_URL")
		if err := mustLoad(t).Validate(); err == nil {
			t.Fatalf("expected error when DATABASE_URL missing")
		}
	})

	t.Run("elastic enabled without url", func(t *testing.T) {
		t.Setenv("OUTPUT_POSTGRES", "false")
		t.Setenv("OUTPUT_ELASTIC", "true")
		os.Unsetenv("ELASTICSEARCH_URL")
		if err := mustLoad(t).Validate(); err == nil {
			t.Fatalf("expected error when ELASTICSEARCH_URL missing")
		}
	})

	t.Run("no sink enabled", func(t *testing.T) {
		t.Setenv("OUTPUT_ELASTIC", "false")
		t.Setenv("OUTPUT_CSV", "false")
		t.Setenv("OUTPUT_JSON", "false")
		if err := mustLoad(t).Validate(); err == nil {
			t.Fatalf("expected error when all sinks disabled")
		}
	})
}

func TestParseRateLimit(t *testing.T) {
	cfg, err := parseRateLimit("5", "2s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Requests != 5 || cfg.Interval != 2*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	// bare seconds form
	cfg, err = parseRateLimit("10", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Interval != time.Second {
		t.Fatalf("expected 1s interval, got %s", cfg.Interval)
	}

	if _, err := parseRateLimit("0", "1s"); err == nil {
		t.Fatalf("expected error for zero requests")
	}
	if _, err := parseRateLimit("abc", "1s"); err == nil {
		t.Fatalf("expected error for malformed request count")
	}
	if _, err := parseRateLimit("5", "never"); err == nil {
		t.Fatalf("expected error for malformed period")
	}
}

func TestGetEnv(t *testing.T) {
	os.Unsetenv("FOO")
	if val := getEnv("FOO", "fallback"); val != "fallback" {
		t.Fatalf("expected fallback, got %s", val)
	}
	t.Setenv("FOO", "value")
	if val := getEnv("FOO", "fallback"); val != "value" {
		t.Fatalf("expected env value, got %s", val)
	}
}
