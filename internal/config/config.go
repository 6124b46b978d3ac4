package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ConfigError indicates an invalid or incomplete configuration. The pipeline
// never starts when Load returns one.
type ConfigError struct {
	Message string
}

// Error implements the error interface.
func (e ConfigError) Error() string {
	return e.Message
}

// RateLimitConfig indicates how many provider requests are allowed within a
// given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// RetryConfig parameterizes the detail fetcher's retry behaviour.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// OutputConfig selects which sinks receive the final record set.
type OutputConfig struct {
	File          string
	CSV           bool
	JSON          bool
	Postgres      bool
	DatabaseURL   string
	PostgresTable string
	Elastic       bool
	ElasticURL    string
	ElasticIndex  string
}

// Config aggregates application-wide configuration values for one run.
type Config struct {
	APIKey       string
	Location     string
	Query        string
	MaxResults   int
	RadiusMeters int
	Concurrency  int
	RateLimit    RateLimitConfig
	Retry        RetryConfig
	PhoneRegion  string
	EnrichEmails bool
	Output       OutputConfig
	AdminAddr    string
	LogLevel     string
}

// Load reads configuration from environment variables and applies sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		APIKey:       os.Getenv("GOOGLE_MAPS_API_KEY"),
		Location:     os.Getenv("SEARCH_LOCATION"),
		Query:        os.Getenv("SEARCH_QUERY"),
		PhoneRegion:  getEnv("PHONE_REGION", "US"),
		EnrichEmails: parseBool(getEnv("ENRICH_EMAILS", "true")),
		AdminAddr:    os.Getenv("ADMIN_ADDR"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Output: OutputConfig{
			File:          getEnv("OUTPUT_FILE", "output"),
			CSV:           parseBool(getEnv("OUTPUT_CSV", "true")),
			JSON:          parseBool(getEnv("OUTPUT_JSON", "true")),
			Postgres:      parseBool(getEnv("OUTPUT_POSTGRES", "false")),
			DatabaseURL:   os.Getenv("DATABASE_URL"),
			PostgresTable: getEnv("POSTGRES_TABLE", "google_maps_data"),
			Elastic:       parseBool(getEnv("OUTPUT_ELASTIC", "false")),
			ElasticURL:    os.Getenv("ELASTICSEARCH_URL"),
			ElasticIndex:  getEnv("ELASTICSEARCH_INDEX", "businesses"),
		},
	}

	var err error
	if cfg.MaxResults, err = parsePositiveInt(getEnv("NUM_RESULTS", "100")); err != nil {
		return nil, ConfigError{Message: fmt.Sprintf("invalid NUM_RESULTS: %v", err)}
	}
	if cfg.RadiusMeters, err = parsePositiveInt(getEnv("SEARCH_RADIUS", "50000")); err != nil {
		return nil, ConfigError{Message: fmt.Sprintf("invalid SEARCH_RADIUS: %v", err)}
	}
	if cfg.Concurrency, err = parsePositiveInt(getEnv("CONCURRENCY", "10")); err != nil {
		return nil, ConfigError{Message: fmt.Sprintf("invalid CONCURRENCY: %v", err)}
	}

	rl, err := parseRateLimit(getEnv("RATE_LIMIT", "10"), getEnv("RATE_LIMIT_PERIOD", "1s"))
	if err != nil {
		return nil, err
	}
	cfg.RateLimit = rl

	retry, err := parseRetry()
	if err != nil {
		return nil, err
	}
	cfg.Retry = retry

	// Validation is deferred to the caller so flags can still fill in
	// values the environment left empty.
	return cfg, nil
}

// Validate checks cross-field preconditions before any pipeline work begins.
func (c *Config) Validate() error {
	missing := make([]string, 0)
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "GOOGLE_MAPS_API_KEY")
	}
	if strings.TrimSpace(c.Location) == "" {
		missing = append(missing, "SEARCH_LOCATION")
	}
	if strings.TrimSpace(c.Query) == "" {
		missing = append(missing, "SEARCH_QUERY")
	}
	if len(missing) > 0 {
		return ConfigError{Message: fmt.Sprintf("missing required configuration: %s", strings.Join(missing, ", "))}
	}

	if c.Output.Postgres && strings.TrimSpace(c.Output.DatabaseURL) == "" {
		return ConfigError{Message: "OUTPUT_POSTGRES is enabled but DATABASE_URL is not set"}
	}
	if c.Output.Elastic && strings.TrimSpace(c.Output.ElasticURL) == "" {
		return ConfigError{Message: "OUTPUT_ELASTIC is enabled but ELASTICSEARCH_URL is not set"}
	}
	if !c.Output.CSV && !c.Output.JSON && !c.Output.Postgres && !c.Output.Elastic {
		return ConfigError{Message: "no output sink enabled"}
	}
	return nil
}

func parseRateLimit(requests, period string) (RateLimitConfig, error) {
	n, err := strconv.Atoi(strings.TrimSpace(requests))
	if err != nil || n <= 0 {
		return RateLimitConfig{}, ConfigError{Message: fmt.Sprintf("invalid RATE_LIMIT value: %q", requests)}
	}

	interval, err := parseFlexDuration(period)
	if err != nil || interval <= 0 {
		return RateLimitConfig{}, ConfigError{Message: fmt.Sprintf("invalid RATE_LIMIT_PERIOD value: %q", period)}
	}

	return RateLimitConfig{Requests: n, Interval: interval}, nil
}

func parseRetry() (RetryConfig, error) {
	attempts, err := parsePositiveInt(getEnv("RETRY_MAX_ATTEMPTS", "3"))
	if err != nil {
		return RetryConfig{}, ConfigError{Message: fmt.Sprintf("invalid RETRY_MAX_ATTEMPTS: %v", err)}
	}
	base, err := parseFlexDuration(getEnv("RETRY_BASE_DELAY", "500ms"))
	if err != nil {
		return RetryConfig{}, ConfigError{Message: fmt.Sprintf("invalid RETRY_BASE_DELAY: %v", err)}
	}
	maxDelay, err := parseFlexDuration(getEnv("RETRY_MAX_DELAY", "10s"))
	if err != nil {
		return RetryConfig{}, ConfigError{Message: fmt.Sprintf("invalid RETRY_MAX_DELAY: %v", err)}
	}
	return RetryConfig{MaxAttempts: attempts, BaseDelay: base, MaxDelay: maxDelay}, nil
}

// parseFlexDuration accepts Go duration strings and bare numbers of seconds,
// matching the legacy RATE_LIMIT_PERIOD=1 style of configuration.
func parseFlexDuration(input string) (time.Duration, error) {
	input = strings.TrimSpace(input)
	if secs, err := strconv.Atoi(input); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(input)
}

func parsePositiveInt(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("value must be positive, got %d", n)
	}
	return n, nil
}

func parseBool(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
