package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the parcoursmaker server.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Extractor   ExtractorConfig
	Images      ImagesConfig
	RecordStore RecordStoreConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RateLimitPerMin int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// ExtractorConfig configures the remote listing-extraction service and the
// poll loop that drives its jobs to completion.
type ExtractorConfig struct {
	BaseURL         string
	RequestTimeout  time.Duration
	WarmupDelay     time.Duration
	PollInterval    time.Duration
	MaxPollAttempts int
	ListingDomains  []string
}

type ImagesConfig struct {
	FetchTimeout time.Duration
}

// RecordStoreConfig configures the external record store. The test and
// production endpoint sets are identical in shape; a caller-supplied flag on
// each commit selects between them.
type RecordStoreConfig struct {
	TestBaseURL       string
	ProductionBaseURL string
	APIKey            string
	Timeout           time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("PARCOURS_PORT", 8080),
			Env:             envString("PARCOURS_ENV", "development"),
			RateLimitPerMin: envInt("PARCOURS_RATE_LIMIT_PER_MIN", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Extractor: ExtractorConfig{
			BaseURL:         os.Getenv("EXTRACTOR_BASE_URL"),
			RequestTimeout:  envDuration("EXTRACTOR_REQUEST_TIMEOUT", 30*time.Second),
			WarmupDelay:     envDuration("EXTRACTOR_WARMUP_DELAY", 2*time.Second),
			PollInterval:    envDuration("EXTRACTOR_POLL_INTERVAL", 3*time.Second),
			MaxPollAttempts: envInt("EXTRACTOR_MAX_POLL_ATTEMPTS", 60),
			ListingDomains:  envList("EXTRACTOR_LISTING_DOMAINS", []string{"airbnb.com", "airbnb.fr"}),
		},
		Images: ImagesConfig{
			FetchTimeout: envDuration("IMAGE_FETCH_TIMEOUT", 20*time.Second),
		},
		RecordStore: RecordStoreConfig{
			TestBaseURL:       os.Getenv("RECORDSTORE_TEST_BASE_URL"),
			ProductionBaseURL: os.Getenv("RECORDSTORE_PRODUCTION_BASE_URL"),
			APIKey:            os.Getenv("RECORDSTORE_API_KEY"),
			Timeout:           envDuration("RECORDSTORE_TIMEOUT", 45*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Extractor.BaseURL == "" {
		return fmt.Errorf("EXTRACTOR_BASE_URL is required")
	}
	if !isHTTPURL(c.Extractor.BaseURL) {
		return fmt.Errorf("EXTRACTOR_BASE_URL must start with http:// or https://, got %q", c.Extractor.BaseURL)
	}
	if c.Extractor.MaxPollAttempts <= 0 {
		return fmt.Errorf("EXTRACTOR_MAX_POLL_ATTEMPTS must be positive, got %d", c.Extractor.MaxPollAttempts)
	}
	if len(c.Extractor.ListingDomains) == 0 {
		return fmt.Errorf("EXTRACTOR_LISTING_DOMAINS must not be empty")
	}

	if c.RecordStore.TestBaseURL == "" {
		return fmt.Errorf("RECORDSTORE_TEST_BASE_URL is required")
	}
	if !isHTTPURL(c.RecordStore.TestBaseURL) {
		return fmt.Errorf("RECORDSTORE_TEST_BASE_URL must start with http:// or https://, got %q", c.RecordStore.TestBaseURL)
	}
	// Production endpoints are optional: commits flagged for production are
	// rejected at request time when they are not configured.
	if c.RecordStore.ProductionBaseURL != "" && !isHTTPURL(c.RecordStore.ProductionBaseURL) {
		return fmt.Errorf("RECORDSTORE_PRODUCTION_BASE_URL must start with http:// or https://, got %q", c.RecordStore.ProductionBaseURL)
	}

	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
